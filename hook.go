package icp

// Hook is an optional server-wide callout, invoked once before any
// read-producing handler commits its response and once after any
// write/bin-op handler commits its mutation (§4.7).
//
// The return value is observational only: the dispatcher does not use it
// to veto the read or write it accompanies (§9 Open Question — the source
// material's boolean return is never consulted to that effect either).
type Hook interface {
	BeforeRead(vars []*Variable) bool
	AfterWrite(vars []*Variable) bool
}

// HookFuncs adapts two plain functions to the Hook interface. A nil field
// is treated as a no-op returning true.
type HookFuncs struct {
	Read  func(vars []*Variable) bool
	Write func(vars []*Variable) bool
}

// BeforeRead implements Hook.
func (h HookFuncs) BeforeRead(vars []*Variable) bool {
	if h.Read == nil {
		return true
	}
	return h.Read(vars)
}

// AfterWrite implements Hook.
func (h HookFuncs) AfterWrite(vars []*Variable) bool {
	if h.Write == nil {
		return true
	}
	return h.Write(vars)
}

func (s *Server) fireBeforeRead(vars []*Variable) {
	if s.hook != nil {
		s.hook.BeforeRead(vars)
	}
}

func (s *Server) fireAfterWrite(vars []*Variable) {
	if s.hook != nil {
		s.hook.AfterWrite(vars)
	}
}
