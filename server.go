package icp

// Version identifies the server's protocol version (§3).
type Version struct {
	Major, Minor, Revision byte
}

// String renders the version the way the original printable-string field
// does (§9).
func (v Version) String() string {
	return itoaDec(v.Major) + "." + itoaDec(v.Minor) + "." + itoaDec(v.Revision)
}

func itoaDec(b byte) string {
	if b < 10 {
		return string([]byte{'0' + b})
	}
	return itoaDec(b/10) + string([]byte{'0' + b%10})
}

// DefaultVersion is the protocol version reported by QUERY_VERSION unless
// a Server overrides it.
var DefaultVersion = Version{1, 0, 0}

// Server holds the catalogue, the optional hook, and the dispatch table.
// It performs no internal threading: ProcessPacket must be called
// sequentially by the caller (§5).
type Server struct {
	catalog *catalog
	hook    Hook
	Version Version

	handlers map[Command]handlerFunc
}

// handlerFunc dispatches one command's payload and returns the response
// frame. It never returns a Go error for protocol-level failures — those
// are encoded as an error Frame instead (§7 "server handlers never abort
// dispatch on user errors").
type handlerFunc func(s *Server, payload []byte) Frame

// NewServer allocates a server with the three standard groups already
// created (§3, §6 server_new).
func NewServer() *Server {
	s := &Server{catalog: newCatalog(), Version: DefaultVersion}
	s.handlers = map[Command]handlerFunc{
		QueryVersion:    (*Server).handleQueryVersion,
		VarQueryList:    (*Server).handleVarQueryList,
		GroupQueryList:  (*Server).handleGroupQueryList,
		GroupQuery:      (*Server).handleGroupQuery,
		CurveQueryList:  (*Server).handleCurveQueryList,
		CurveQueryCsum:  (*Server).handleCurveQueryCsum,
		FuncQueryList:   (*Server).handleFuncQueryList,
		VarRead:         (*Server).handleVarRead,
		GroupRead:       (*Server).handleGroupRead,
		VarWrite:        (*Server).handleVarWrite,
		GroupWrite:      (*Server).handleGroupWrite,
		VarBinOp:        (*Server).handleVarBinOp,
		GroupBinOp:      (*Server).handleGroupBinOp,
		VarWriteRead:    (*Server).handleVarWriteRead,
		GroupCreate:     (*Server).handleGroupCreate,
		GroupRemoveAll:  (*Server).handleGroupRemoveAll,
		CurveBlockReq:   (*Server).handleCurveBlockRequest,
		CurveBlock:      (*Server).handleCurveBlock,
		CurveRecalcCsum: (*Server).handleCurveRecalcCsum,
		FuncExecute:     (*Server).handleFuncExecute,
	}
	return s
}

// RegisterVariable adds v to the catalogue (§4.2).
func (s *Server) RegisterVariable(v *Variable) error {
	return s.catalog.registerVariable(v)
}

// RegisterCurve adds c to the catalogue (§4.2).
func (s *Server) RegisterCurve(c *Curve) error {
	return s.catalog.registerCurve(c)
}

// RegisterFunction adds f to the catalogue (§4.2).
func (s *Server) RegisterFunction(f *Function) error {
	return s.catalog.registerFunction(f)
}

// RegisterHook installs h as the server-wide hook, replacing any
// previously registered one. A nil h clears it.
func (s *Server) RegisterHook(h Hook) {
	s.hook = h
}

// Variables, Groups, Curves and Functions expose read-only views of the
// catalogue, primarily useful to embedders wiring up a transport.
func (s *Server) Variables() []*Variable { return s.catalog.vars }
func (s *Server) Groups() []*Group       { return s.catalog.groups }
func (s *Server) Curves() []*Curve       { return s.catalog.curves }
func (s *Server) Functions() []*Function { return s.catalog.funcs }

// ProcessPacket decodes req, dispatches it to the matching handler, and
// returns the encoded response frame (§4.3, §6). The only Go error it
// ever returns is for a nil request; every other failure mode in §7's
// taxonomy is carried back as an error-response frame, never as err.
func (s *Server) ProcessPacket(req []byte) ([]byte, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	f, err := ParseFrame(req)
	if err != nil {
		return errorFrame(ErrMalformedMessage).Marshal(), nil
	}

	h, ok := s.handlers[f.Code]
	if !ok {
		return errorFrame(ErrOpNotSupported).Marshal(), nil
	}

	resp := h(s, f.Payload)
	return resp.Marshal(), nil
}
