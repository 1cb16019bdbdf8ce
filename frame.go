package icp

import "github.com/example/icp/internal/wire"

// MaxPayloadLen is the largest payload a frame may carry (§4.1).
const MaxPayloadLen = 65535

// headerLen is the number of bytes preceding the payload: code (1) plus
// big-endian length (2).
const headerLen = 3

// Frame is the on-wire unit exchanged by server and client: a one-byte
// command code, a big-endian payload length, and the payload itself.
type Frame struct {
	Code    Command
	Payload []byte
}

// Marshal encodes f into its wire representation.
func (f Frame) Marshal() []byte {
	buf := make([]byte, headerLen+len(f.Payload))
	buf[0] = byte(f.Code)
	wire.PutUint16(buf[1:3], uint16(len(f.Payload)))
	copy(buf[3:], f.Payload)
	return buf
}

// ParseFrame decodes b into a Frame. It returns ErrMalformedMessage (via a
// *ProtocolError) whenever the supplied buffer length contradicts the
// declared payload length, per §4.1.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < headerLen {
		return Frame{}, &ProtocolError{ErrMalformedMessage}
	}

	n := wire.Uint16(b[1:3])
	if len(b) != headerLen+int(n) {
		return Frame{}, &ProtocolError{ErrMalformedMessage}
	}

	return Frame{Code: Command(b[0]), Payload: b[3:]}, nil
}

// errorFrame builds the wire response for a dispatch-level error.
func errorFrame(code ErrCode) Frame {
	return Frame{Code: Command(code), Payload: nil}
}

// okFrame builds the bare 0xE0 OK response.
func okFrame() Frame {
	return Frame{Code: RespOK}
}
