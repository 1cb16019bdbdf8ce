package icp

// Command identifies a request or response frame by its wire code.
type Command byte

// Request codes. Each has a declared success response code (one of the
// Resp* constants below) and may instead produce one of the error
// responses in errors.go.
const (
	QueryVersion    Command = 0x00
	VarQueryList    Command = 0x02
	GroupQueryList  Command = 0x04
	GroupQuery      Command = 0x06
	CurveQueryList  Command = 0x08
	CurveQueryCsum  Command = 0x0A
	FuncQueryList   Command = 0x0C
	VarRead         Command = 0x10
	GroupRead       Command = 0x12
	VarWrite        Command = 0x20
	GroupWrite      Command = 0x22
	VarBinOp        Command = 0x24
	GroupBinOp      Command = 0x26
	VarWriteRead    Command = 0x28
	GroupCreate     Command = 0x30
	GroupRemoveAll  Command = 0x32
	CurveBlockReq   Command = 0x40
	CurveBlock      Command = 0x41
	CurveRecalcCsum Command = 0x42
	FuncExecute     Command = 0x50
)

// Response codes.
const (
	RespVersion    Command = 0x01
	RespVarList    Command = 0x03
	RespGroupList  Command = 0x05
	RespGroup      Command = 0x07
	RespCurveList  Command = 0x09
	RespCurveCsum  Command = 0x0B
	RespFuncList   Command = 0x0D
	RespVarValue   Command = 0x11
	RespGroupVals  Command = 0x13
	RespCurveBlock Command = 0x41 // CURVE_BLOCK doubles as write-request and read-response
	RespFuncReturn Command = 0x51
	RespFuncError  Command = 0x53
	RespOK         Command = 0xE0
)

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "Command(" + itoa(byte(c)) + ")"
}

var commandNames = map[Command]string{
	QueryVersion:    "QUERY_VERSION",
	VarQueryList:    "VAR_QUERY_LIST",
	GroupQueryList:  "GROUP_QUERY_LIST",
	GroupQuery:      "GROUP_QUERY",
	CurveQueryList:  "CURVE_QUERY_LIST",
	CurveQueryCsum:  "CURVE_QUERY_CSUM",
	FuncQueryList:   "FUNC_QUERY_LIST",
	VarRead:         "VAR_READ",
	GroupRead:       "GROUP_READ",
	VarWrite:        "VAR_WRITE",
	GroupWrite:      "GROUP_WRITE",
	VarBinOp:        "VAR_BIN_OP",
	GroupBinOp:      "GROUP_BIN_OP",
	VarWriteRead:    "VAR_WRITE_READ",
	GroupCreate:     "GROUP_CREATE",
	GroupRemoveAll:  "GROUP_REMOVE_ALL",
	CurveBlockReq:   "CURVE_BLOCK_REQUEST",
	CurveBlock:      "CURVE_BLOCK",
	CurveRecalcCsum: "CURVE_RECALC_CSUM",
	FuncExecute:     "FUNC_EXECUTE",
	RespVersion:     "VERSION",
	RespOK:          "OK",
	RespFuncReturn:  "FUNC_RETURN",
	RespFuncError:   "FUNC_ERROR",
}

func itoa(b byte) string {
	const hex = "0123456789ABCDEF"
	return string([]byte{'0', 'x', hex[b>>4], hex[b&0xf]})
}
