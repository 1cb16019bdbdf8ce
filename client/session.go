package client

import (
	"github.com/example/icp"
)

// Transport is the duplex byte channel a Session is built on. Framing,
// addressing and link-level checksums are the transport's concern, not
// the session's (§1, §9) — Send/Recv exchange already-framed icp.Frame
// bytes.
type Transport interface {
	Send(b []byte) error
	Recv() ([]byte, error)
}

// Session holds the transport, the discovered version, and cached
// descriptor lists for the four catalogue kinds (§4.8).
type Session struct {
	t       Transport
	Version icp.Version

	vars   []*VarHandle
	groups []*GroupHandle
	curves []*CurveHandle
	funcs  []*FuncHandle
}

// NewSession allocates a session over t. Call Init before issuing any
// other operation.
func NewSession(t Transport) *Session {
	return &Session{t: t}
}

// Vars, Groups, Curves and Funcs return the cached descriptor lists
// populated by Init (and refreshed after GROUP_CREATE, GROUP_REMOVE_ALL
// and CURVE_RECALC_CSUM, per §4.8).
func (s *Session) Vars() []*VarHandle     { return s.vars }
func (s *Session) Groups() []*GroupHandle { return s.groups }
func (s *Session) Curves() []*CurveHandle { return s.curves }
func (s *Session) Funcs() []*FuncHandle   { return s.funcs }

// Init performs discovery: version, then variables, groups (and member
// ids), curves (and checksums), and functions (§4.8).
func (s *Session) Init() error {
	if err := s.queryVersion(); err != nil {
		return err
	}
	if err := s.refreshVars(); err != nil {
		return err
	}
	if err := s.refreshGroups(); err != nil {
		return err
	}
	if err := s.refreshCurves(); err != nil {
		return err
	}
	return s.refreshFuncs()
}

// exchange sends req and returns the parsed response frame, rejecting any
// response whose code is not want (§4.8, §7).
func (s *Session) exchange(req icp.Frame, want icp.Command) (icp.Frame, error) {
	if err := s.t.Send(req.Marshal()); err != nil {
		return icp.Frame{}, ErrComm
	}

	raw, err := s.t.Recv()
	if err != nil {
		return icp.Frame{}, ErrComm
	}

	resp, err := icp.ParseFrame(raw)
	if err != nil {
		return icp.Frame{}, ErrComm
	}

	if resp.Code != want {
		if code, ok := errCode(resp.Code); ok {
			return icp.Frame{}, &ServerError{Code: code}
		}
		return icp.Frame{}, ErrComm
	}
	return resp, nil
}

func errCode(c icp.Command) (icp.ErrCode, bool) {
	switch icp.ErrCode(c) {
	case icp.ErrMalformedMessage, icp.ErrOpNotSupported, icp.ErrInvalidID,
		icp.ErrInvalidValue, icp.ErrInvalidPayloadSize, icp.ErrReadOnly,
		icp.ErrInsufficientMemory:
		return icp.ErrCode(c), true
	default:
		return 0, false
	}
}

// queryVersion issues QUERY_VERSION. A server replying OP_NOT_SUPPORTED is
// special-cased to version 1.0.0, per §4.8.
func (s *Session) queryVersion() error {
	resp, err := s.exchange(icp.Frame{Code: icp.QueryVersion}, icp.RespVersion)
	if se, ok := err.(*ServerError); ok && se.Code == icp.ErrOpNotSupported {
		s.Version = icp.Version{Major: 1, Minor: 0, Revision: 0}
		return nil
	}
	if err != nil {
		return err
	}
	if len(resp.Payload) != 3 {
		return ErrComm
	}
	s.Version = icp.Version{Major: resp.Payload[0], Minor: resp.Payload[1], Revision: resp.Payload[2]}
	return nil
}

func (s *Session) refreshVars() error {
	resp, err := s.exchange(icp.Frame{Code: icp.VarQueryList}, icp.RespVarList)
	if err != nil {
		return err
	}

	vars := make([]*VarHandle, len(resp.Payload))
	for i, b := range resp.Payload {
		size := int(b & 0x7f)
		if size == 0 {
			size = 128
		}
		vars[i] = &VarHandle{session: s, id: byte(i), Size: size, Writable: b&0x80 != 0}
	}
	s.vars = vars
	return nil
}

func (s *Session) refreshGroups() error {
	resp, err := s.exchange(icp.Frame{Code: icp.GroupQueryList}, icp.RespGroupList)
	if err != nil {
		return err
	}

	groups := make([]*GroupHandle, len(resp.Payload))
	for i, b := range resp.Payload {
		count := int(b & 0x7f)
		writable := b&0x80 != 0

		members, err := s.queryGroupMembers(byte(i))
		if err != nil {
			return err
		}
		if len(members) != count {
			return ErrComm
		}

		size := 0
		for _, mid := range members {
			if int(mid) >= len(s.vars) {
				return ErrComm
			}
			size += s.vars[mid].Size
		}

		groups[i] = &GroupHandle{session: s, id: byte(i), Members: members, Size: size, Writable: writable}
	}
	s.groups = groups
	return nil
}

func (s *Session) queryGroupMembers(id byte) ([]byte, error) {
	resp, err := s.exchange(icp.Frame{Code: icp.GroupQuery, Payload: []byte{id}}, icp.RespGroup)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

func (s *Session) refreshCurves() error {
	resp, err := s.exchange(icp.Frame{Code: icp.CurveQueryList}, icp.RespCurveList)
	if err != nil {
		return err
	}
	if len(resp.Payload)%5 != 0 {
		return ErrComm
	}

	n := len(resp.Payload) / 5
	curves := make([]*CurveHandle, n)
	for i := 0; i < n; i++ {
		rec := resp.Payload[i*5 : i*5+5]
		nblocks := int(rec[3])<<8 | int(rec[4])
		if nblocks == 0 {
			nblocks = 65536
		}

		ch := &CurveHandle{
			session:   s,
			id:        byte(i),
			Writable:  rec[0] != 0,
			BlockSize: int(rec[1])<<8 | int(rec[2]),
			NBlocks:   nblocks,
		}

		csum, err := s.queryCurveChecksum(ch.id)
		if err != nil {
			return err
		}
		ch.Checksum = csum
		curves[i] = ch
	}
	s.curves = curves
	return nil
}

func (s *Session) queryCurveChecksum(id byte) ([16]byte, error) {
	var csum [16]byte
	resp, err := s.exchange(icp.Frame{Code: icp.CurveQueryCsum, Payload: []byte{id}}, icp.RespCurveCsum)
	if err != nil {
		return csum, err
	}
	if len(resp.Payload) != 16 {
		return csum, ErrComm
	}
	copy(csum[:], resp.Payload)
	return csum, nil
}

func (s *Session) refreshFuncs() error {
	resp, err := s.exchange(icp.Frame{Code: icp.FuncQueryList}, icp.RespFuncList)
	if err != nil {
		return err
	}

	funcs := make([]*FuncHandle, len(resp.Payload))
	for i, b := range resp.Payload {
		funcs[i] = &FuncHandle{session: s, id: byte(i), InputSize: int(b >> 4), OutputSize: int(b & 0x0f)}
	}
	s.funcs = funcs
	return nil
}

// checkOwned validates, by pointer identity, that owner (a handle's
// owning session) is this session (§9).
func (s *Session) checkOwned(owner *Session) error {
	if owner != s {
		return ErrNotInSession
	}
	return nil
}

// ReadVar issues VAR_READ(v.id) and returns the variable's current bytes.
func (s *Session) ReadVar(v *VarHandle) ([]byte, error) {
	if err := s.checkOwned(v.session); err != nil {
		return nil, err
	}
	resp, err := s.exchange(icp.Frame{Code: icp.VarRead, Payload: []byte{v.id}}, icp.RespVarValue)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// WriteVar issues VAR_WRITE(v.id, b).
func (s *Session) WriteVar(v *VarHandle, b []byte) error {
	if err := s.checkOwned(v.session); err != nil {
		return err
	}
	if !v.Writable {
		return ErrReadOnly
	}
	if len(b) != v.Size {
		return ErrPayloadSize
	}

	payload := append([]byte{v.id}, b...)
	_, err := s.exchange(icp.Frame{Code: icp.VarWrite, Payload: payload}, icp.RespOK)
	return err
}

// WriteReadVars issues VAR_WRITE_READ(w.id, r.id, b) and returns r's
// resulting bytes.
func (s *Session) WriteReadVars(w, r *VarHandle, b []byte) ([]byte, error) {
	if err := s.checkOwned(w.session); err != nil {
		return nil, err
	}
	if err := s.checkOwned(r.session); err != nil {
		return nil, err
	}
	if !w.Writable {
		return nil, ErrReadOnly
	}
	if len(b) != w.Size {
		return nil, ErrPayloadSize
	}

	payload := append([]byte{w.id, r.id}, b...)
	resp, err := s.exchange(icp.Frame{Code: icp.VarWriteRead, Payload: payload}, icp.RespVarValue)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// BinOpVar issues VAR_BIN_OP(v.id, op, mask).
func (s *Session) BinOpVar(v *VarHandle, op icp.BinOp, mask []byte) error {
	if err := s.checkOwned(v.session); err != nil {
		return err
	}
	if !v.Writable {
		return ErrReadOnly
	}
	if len(mask) != v.Size {
		return ErrPayloadSize
	}

	payload := append([]byte{v.id, byte(op)}, mask...)
	_, err := s.exchange(icp.Frame{Code: icp.VarBinOp, Payload: payload}, icp.RespOK)
	return err
}

// ReadGroup issues GROUP_READ(g.id) and returns the concatenated member
// values in group order.
func (s *Session) ReadGroup(g *GroupHandle) ([]byte, error) {
	if err := s.checkOwned(g.session); err != nil {
		return nil, err
	}
	resp, err := s.exchange(icp.Frame{Code: icp.GroupRead, Payload: []byte{g.id}}, icp.RespGroupVals)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// WriteGroup issues GROUP_WRITE(g.id, b), b sized to g.Size.
func (s *Session) WriteGroup(g *GroupHandle, b []byte) error {
	if err := s.checkOwned(g.session); err != nil {
		return err
	}
	if !g.Writable {
		return ErrReadOnly
	}
	if len(b) != g.Size {
		return ErrPayloadSize
	}

	payload := append([]byte{g.id}, b...)
	_, err := s.exchange(icp.Frame{Code: icp.GroupWrite, Payload: payload}, icp.RespOK)
	return err
}

// BinOpGroup issues GROUP_BIN_OP(g.id, op, mask), mask sized to g.Size.
func (s *Session) BinOpGroup(g *GroupHandle, op icp.BinOp, mask []byte) error {
	if err := s.checkOwned(g.session); err != nil {
		return err
	}
	if !g.Writable {
		return ErrReadOnly
	}
	if len(mask) != g.Size {
		return ErrPayloadSize
	}

	payload := append([]byte{g.id, byte(op)}, mask...)
	_, err := s.exchange(icp.Frame{Code: icp.GroupBinOp, Payload: payload}, icp.RespOK)
	return err
}

// CreateGroup issues GROUP_CREATE(ids...) with the wire ids of vars, then
// refreshes the cached group list (§4.4, §4.8).
func (s *Session) CreateGroup(vars []*VarHandle) error {
	ids := make([]byte, len(vars))
	for i, v := range vars {
		if err := s.checkOwned(v.session); err != nil {
			return err
		}
		ids[i] = v.id
	}

	if _, err := s.exchange(icp.Frame{Code: icp.GroupCreate, Payload: ids}, icp.RespOK); err != nil {
		return err
	}
	return s.refreshGroups()
}

// RemoveAllGroups issues GROUP_REMOVE_ALL, then refreshes the cached
// group list (§4.4, §4.8).
func (s *Session) RemoveAllGroups() error {
	if _, err := s.exchange(icp.Frame{Code: icp.GroupRemoveAll}, icp.RespOK); err != nil {
		return err
	}
	return s.refreshGroups()
}

// FuncExecute issues FUNC_EXECUTE(f.id, in...). On a domain error it
// returns a non-nil error of type *FuncError carrying the 1-byte
// domain code, distinct from a transport/protocol ServerError.
func (s *Session) FuncExecute(f *FuncHandle, in []byte) ([]byte, error) {
	if err := s.checkOwned(f.session); err != nil {
		return nil, err
	}
	if len(in) != f.InputSize {
		return nil, ErrPayloadSize
	}

	payload := append([]byte{f.id}, in...)
	if err := s.t.Send(icp.Frame{Code: icp.FuncExecute, Payload: payload}.Marshal()); err != nil {
		return nil, ErrComm
	}

	raw, err := s.t.Recv()
	if err != nil {
		return nil, ErrComm
	}
	resp, err := icp.ParseFrame(raw)
	if err != nil {
		return nil, ErrComm
	}

	switch resp.Code {
	case icp.RespFuncReturn:
		return resp.Payload, nil
	case icp.RespFuncError:
		if len(resp.Payload) != 1 {
			return nil, ErrComm
		}
		return nil, &FuncError{Code: resp.Payload[0]}
	default:
		if code, ok := errCode(resp.Code); ok {
			return nil, &ServerError{Code: code}
		}
		return nil, ErrComm
	}
}

// FuncError reports a function's 1-byte domain error (§4.6), distinct
// from a protocol-level ServerError.
type FuncError struct {
	Code byte
}

func (e *FuncError) Error() string {
	return "icp/client: function domain error"
}
