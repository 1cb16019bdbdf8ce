package icp

import (
	"bytes"

	"github.com/example/icp/internal/wire"
)

// handleQueryVersion implements QUERY_VERSION: payload = {major, minor,
// revision} (§4.3).
func (s *Server) handleQueryVersion(payload []byte) Frame {
	if len(payload) != 0 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	return Frame{Code: RespVersion, Payload: []byte{s.Version.Major, s.Version.Minor, s.Version.Revision}}
}

// handleVarQueryList implements VAR_QUERY_LIST: one byte per variable,
// high bit writable, low 7 bits size (0 encodes 128) (§4.3).
func (s *Server) handleVarQueryList(payload []byte) Frame {
	if len(payload) != 0 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	out := make([]byte, len(s.catalog.vars))
	for i, v := range s.catalog.vars {
		out[i] = encodeVarDescriptor(v)
	}
	return Frame{Code: RespVarList, Payload: out}
}

func encodeVarDescriptor(v *Variable) byte {
	size := byte(v.Size & 0x7f)
	if v.Size == 128 {
		size = 0
	}
	if v.Writable {
		size |= 0x80
	}
	return size
}

// handleGroupQueryList implements GROUP_QUERY_LIST: one byte per group,
// high bit writable, low 7 bits member count (§4.3).
func (s *Server) handleGroupQueryList(payload []byte) Frame {
	if len(payload) != 0 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	out := make([]byte, len(s.catalog.groups))
	for i, g := range s.catalog.groups {
		b := byte(len(g.Members) & 0x7f)
		if g.Writable {
			b |= 0x80
		}
		out[i] = b
	}
	return Frame{Code: RespGroupList, Payload: out}
}

// handleGroupQuery implements GROUP_QUERY(id): one byte per member, the
// variable id, in ascending order (§4.3).
func (s *Server) handleGroupQuery(payload []byte) Frame {
	if len(payload) != 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	g, ok := s.group(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	out := make([]byte, len(g.Members))
	for i, m := range g.Members {
		out[i] = byte(m.id)
	}
	return Frame{Code: RespGroup, Payload: out}
}

// handleCurveQueryList implements CURVE_QUERY_LIST: 5-byte records
// {writable, block_size_be16, nblocks_be16}, nblocks=0 encodes 65536
// (§4.3).
func (s *Server) handleCurveQueryList(payload []byte) Frame {
	if len(payload) != 0 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	out := make([]byte, 0, 5*len(s.catalog.curves))
	for _, c := range s.catalog.curves {
		out = append(out, encodeCurveDescriptor(c)...)
	}
	return Frame{Code: RespCurveList, Payload: out}
}

func encodeCurveDescriptor(c *Curve) []byte {
	rec := make([]byte, 5)
	if c.Writable {
		rec[0] = 1
	}
	wire.PutUint16(rec[1:3], uint16(c.BlockSize))
	n := uint16(c.NBlocks)
	if c.NBlocks == 65536 {
		n = 0
	}
	wire.PutUint16(rec[3:5], n)
	return rec
}

// handleCurveQueryCsum implements CURVE_QUERY_CSUM(id) (§4.3).
func (s *Server) handleCurveQueryCsum(payload []byte) Frame {
	if len(payload) != 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	c, ok := s.curve(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	csum := c.Checksum()
	return Frame{Code: RespCurveCsum, Payload: csum[:]}
}

// handleFuncQueryList implements FUNC_QUERY_LIST: one byte per function,
// high nibble input size, low nibble output size (§4.3).
func (s *Server) handleFuncQueryList(payload []byte) Frame {
	if len(payload) != 0 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	out := make([]byte, len(s.catalog.funcs))
	for i, f := range s.catalog.funcs {
		out[i] = byte(f.InputSize<<4) | byte(f.OutputSize&0x0f)
	}
	return Frame{Code: RespFuncList, Payload: out}
}

// handleVarRead implements VAR_READ(id) (§4.4).
func (s *Server) handleVarRead(payload []byte) Frame {
	if len(payload) != 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	v, ok := s.variable(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	s.fireBeforeRead([]*Variable{v})
	return Frame{Code: RespVarValue, Payload: v.Bytes()}
}

// handleGroupRead implements GROUP_READ(id): pre-read hook, then the
// concatenation of member values in group order (§4.4).
func (s *Server) handleGroupRead(payload []byte) Frame {
	if len(payload) != 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	g, ok := s.group(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	s.fireBeforeRead(g.Members)

	var buf bytes.Buffer
	for _, m := range g.Members {
		buf.Write(m.buf)
	}
	return Frame{Code: RespGroupVals, Payload: buf.Bytes()}
}

// handleVarWrite implements VAR_WRITE(id, bytes): payload is 1 + S bytes
// (§4.4).
func (s *Server) handleVarWrite(payload []byte) Frame {
	if len(payload) < 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	v, ok := s.variable(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	if len(payload) != 1+v.Size {
		return errorFrame(ErrInvalidPayloadSize)
	}
	if !v.Writable {
		return errorFrame(ErrReadOnly)
	}

	newBytes := payload[1:]
	if v.Validate != nil && !v.Validate.Validate(v.buf, newBytes) {
		return errorFrame(ErrInvalidValue)
	}

	copy(v.buf, newBytes)
	s.fireAfterWrite([]*Variable{v})
	return okFrame()
}

// handleVarWriteRead implements VAR_WRITE_READ(w_id, r_id, bytes):
// payload is w_id, r_id, bytes(size=size_of(w_id)). Write first
// (including validator), then post-write hook for w_id, then pre-read
// hook for r_id, then r_id's bytes (§4.4).
func (s *Server) handleVarWriteRead(payload []byte) Frame {
	if len(payload) < 2 {
		return errorFrame(ErrInvalidPayloadSize)
	}

	w, ok := s.variable(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	r, ok := s.variable(payload[1])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	if len(payload) != 2+w.Size {
		return errorFrame(ErrInvalidPayloadSize)
	}
	if !w.Writable {
		return errorFrame(ErrReadOnly)
	}

	newBytes := payload[2:]
	if w.Validate != nil && !w.Validate.Validate(w.buf, newBytes) {
		return errorFrame(ErrInvalidValue)
	}

	copy(w.buf, newBytes)
	s.fireAfterWrite([]*Variable{w})
	s.fireBeforeRead([]*Variable{r})
	return Frame{Code: RespVarValue, Payload: r.Bytes()}
}

// handleVarBinOp implements VAR_BIN_OP(id, op, mask): bitwise mutation,
// validator not consulted (§4.4).
func (s *Server) handleVarBinOp(payload []byte) Frame {
	if len(payload) < 2 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	v, ok := s.variable(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	op := BinOp(payload[1])
	if !validBinOp(op) {
		return errorFrame(ErrOpNotSupported)
	}
	if len(payload) != 2+v.Size {
		return errorFrame(ErrInvalidPayloadSize)
	}
	if !v.Writable {
		return errorFrame(ErrReadOnly)
	}

	mask := payload[2:]
	apply(op, v.buf, mask)

	s.fireAfterWrite([]*Variable{v})
	return okFrame()
}

// handleGroupWrite implements GROUP_WRITE(id, bytes): payload size is
// 1 + group.size. Every member whose validator passes is written; any
// failing member causes an overall INVALID_VALUE, but already-checked
// passing members are still committed. Post-write hook fires regardless
// (§4.4).
func (s *Server) handleGroupWrite(payload []byte) Frame {
	if len(payload) < 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	g, ok := s.group(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	if len(payload) != 1+g.Size {
		return errorFrame(ErrInvalidPayloadSize)
	}
	if !g.Writable {
		return errorFrame(ErrReadOnly)
	}

	failed := false
	off := 1
	for _, m := range g.Members {
		slice := payload[off : off+m.Size]
		off += m.Size

		if m.Validate != nil && !m.Validate.Validate(m.buf, slice) {
			failed = true
			continue
		}
		copy(m.buf, slice)
	}

	s.fireAfterWrite(g.Members)
	if failed {
		return errorFrame(ErrInvalidValue)
	}
	return okFrame()
}

// handleGroupBinOp implements GROUP_BIN_OP(id, op, mask): applies the
// bitwise op to every member in order, no validators (§4.4).
func (s *Server) handleGroupBinOp(payload []byte) Frame {
	if len(payload) < 2 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	g, ok := s.group(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	op := BinOp(payload[1])
	if !validBinOp(op) {
		return errorFrame(ErrOpNotSupported)
	}
	if len(payload) != 2+g.Size {
		return errorFrame(ErrInvalidPayloadSize)
	}
	if !g.Writable {
		return errorFrame(ErrReadOnly)
	}

	mask := payload[2:]
	off := 0
	for _, m := range g.Members {
		apply(op, m.buf, mask[off:off+m.Size])
		off += m.Size
	}

	s.fireAfterWrite(g.Members)
	return okFrame()
}

// handleGroupCreate implements GROUP_CREATE(ids...) (§4.4).
func (s *Server) handleGroupCreate(payload []byte) Frame {
	_, code, ok := s.catalog.createGroup(payload)
	if !ok {
		return errorFrame(code)
	}
	return okFrame()
}

// handleGroupRemoveAll implements GROUP_REMOVE_ALL (§4.4).
func (s *Server) handleGroupRemoveAll(payload []byte) Frame {
	if len(payload) != 0 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	s.catalog.removeAllGroups()
	return okFrame()
}

// handleFuncExecute implements FUNC_EXECUTE(id, in...) (§4.6).
func (s *Server) handleFuncExecute(payload []byte) Frame {
	if len(payload) < 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	f, ok := s.function(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	if len(payload) != 1+f.InputSize {
		return errorFrame(ErrInvalidPayloadSize)
	}

	out := make([]byte, f.OutputSize)
	if code := f.Fn.Invoke(payload[1:], out); code != 0 {
		return Frame{Code: RespFuncError, Payload: []byte{code}}
	}
	return Frame{Code: RespFuncReturn, Payload: out}
}

// variable, group, curve and function resolve a wire id byte to a
// catalogue entry, implementing the INVALID_ID check shared by every
// handler (§4.3 step 4).
func (s *Server) variable(id byte) (*Variable, bool) {
	if int(id) >= len(s.catalog.vars) {
		return nil, false
	}
	return s.catalog.vars[id], true
}

func (s *Server) group(id byte) (*Group, bool) {
	if int(id) >= len(s.catalog.groups) {
		return nil, false
	}
	return s.catalog.groups[id], true
}

func (s *Server) curve(id byte) (*Curve, bool) {
	if int(id) >= len(s.catalog.curves) {
		return nil, false
	}
	return s.catalog.curves[id], true
}

func (s *Server) function(id byte) (*Function, bool) {
	if int(id) >= len(s.catalog.funcs) {
		return nil, false
	}
	return s.catalog.funcs[id], true
}
