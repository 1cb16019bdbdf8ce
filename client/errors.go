// Package client implements the host-side session: discovery, caching of
// catalogue descriptors as typed handles, and the typed operations that
// issue one request/response exchange apiece (§4.8).
package client

import (
	"errors"
	"fmt"

	"github.com/example/icp"
)

// Local client errors (§7). These never reach the wire; they are raised
// by local validation before a request is sent, or when the transport or
// an unexpected response code makes an exchange unusable.
var (
	// ErrComm covers transport send/recv failure, a response shorter than
	// a frame header, or a response code that is neither the expected one
	// nor a wire error code. A wire error code is returned as *ServerError,
	// not as ErrComm.
	ErrComm = errors.New("icp/client: communication error")
	// ErrNotInSession is returned when a handle does not belong to this
	// session (by identity, not just by id) (§9 redesign note).
	ErrNotInSession = errors.New("icp/client: descriptor not from this session")
	// ErrReadOnly is returned when a write is attempted against a
	// read-only variable, group or curve, caught locally before sending.
	ErrReadOnly = errors.New("icp/client: entity is read-only")
	// ErrPayloadSize is returned when a caller-supplied buffer doesn't
	// match the handle's declared size.
	ErrPayloadSize = errors.New("icp/client: payload size mismatch")
)

// ServerError reports that the server replied with a wire error code
// (§7). Its Code names the precise error.
type ServerError struct {
	Code icp.ErrCode
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("icp/client: server error %s", e.Code)
}
