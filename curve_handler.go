package icp

import (
	"crypto/md5"

	"github.com/example/icp/internal/wire"
)

// handleCurveBlockRequest implements CURVE_BLOCK_REQUEST(id, off):
// responds with {id, off_be16, bytes...}, up to BlockSize bytes. A short
// read signals end-of-data to the client (§4.5).
//
// The conformant boundary is off >= nblocks -> INVALID_VALUE (§9 Open
// Question — the source material's off > nblocks tolerance is not carried
// over).
func (s *Server) handleCurveBlockRequest(payload []byte) Frame {
	if len(payload) != 3 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	c, ok := s.curve(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	off := wire.Uint16(payload[1:3])
	if int(off) >= c.NBlocks {
		return errorFrame(ErrInvalidValue)
	}

	buf := make([]byte, c.BlockSize)
	n, err := c.ReadBlock(off, buf)
	if err != nil || n < 0 || n > c.BlockSize {
		return errorFrame(ErrInvalidValue)
	}

	out := make([]byte, 3+n)
	out[0] = payload[0]
	wire.PutUint16(out[1:3], off)
	copy(out[3:], buf[:n])
	return Frame{Code: RespCurveBlock, Payload: out}
}

// handleCurveBlock implements CURVE_BLOCK(id, off, bytes): writes bytes
// into block off, permitted only on a writable curve (§4.5).
func (s *Server) handleCurveBlock(payload []byte) Frame {
	if len(payload) < 3 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	c, ok := s.curve(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}
	if !c.Writable {
		return errorFrame(ErrReadOnly)
	}

	off := wire.Uint16(payload[1:3])
	if int(off) >= c.NBlocks {
		return errorFrame(ErrInvalidValue)
	}

	data := payload[3:]
	if len(data) > c.BlockSize {
		return errorFrame(ErrInvalidPayloadSize)
	}

	if err := c.WriteBlock(off, data); err != nil {
		return errorFrame(ErrInvalidValue)
	}
	return okFrame()
}

// handleCurveRecalcCsum implements CURVE_RECALC_CSUM(id): reads every
// block 0..nblocks-1 via the callback, feeds the fixed BlockSize bytes
// into an MD5 stream, and stores + returns the resulting digest (§4.5).
//
// This walks the whole curve synchronously; dispatch has no timeout at
// this layer (§5).
func (s *Server) handleCurveRecalcCsum(payload []byte) Frame {
	if len(payload) != 1 {
		return errorFrame(ErrInvalidPayloadSize)
	}
	c, ok := s.curve(payload[0])
	if !ok {
		return errorFrame(ErrInvalidID)
	}

	h := md5.New()
	buf := make([]byte, c.BlockSize)
	for block := 0; block < c.NBlocks; block++ {
		n, err := c.ReadBlock(uint16(block), buf)
		if err != nil {
			return errorFrame(ErrInvalidValue)
		}
		h.Write(buf[:n])
		if n < c.BlockSize {
			// zero-pad short blocks so every block contributes a fixed
			// BlockSize span to the digest, per §4.5.
			pad := make([]byte, c.BlockSize-n)
			h.Write(pad)
		}
	}

	sum := h.Sum(nil)
	copy(c.checksum[:], sum)
	csum := c.checksum
	return Frame{Code: RespCurveCsum, Payload: csum[:]}
}
