package icp

import (
	"bytes"
	"testing"
)

func newOneVarServer(t *testing.T, writable bool) (*Server, *Variable) {
	t.Helper()
	s := NewServer()
	v := NewVariable(4, writable)
	if err := s.RegisterVariable(v); err != nil {
		t.Fatalf("RegisterVariable: %v", err)
	}
	return s, v
}

func process(t *testing.T, s *Server, req []byte) []byte {
	t.Helper()
	resp, err := s.ProcessPacket(req)
	if err != nil {
		t.Fatalf("ProcessPacket(% x): %v", req, err)
	}
	return resp
}

// TestEndToEndScenarios reproduces spec §8's six literal byte scenarios
// verbatim.
func TestEndToEndScenarios(t *testing.T) {
	t.Run("query one-variable server", func(t *testing.T) {
		s, _ := newOneVarServer(t, true)
		got := process(t, s, []byte{0x02, 0x00, 0x00})
		want := []byte{0x03, 0x00, 0x01, 0x84}
		if !bytes.Equal(got, want) {
			t.Fatalf("got % x, want % x", got, want)
		}
	})

	t.Run("read variable 0", func(t *testing.T) {
		s, _ := newOneVarServer(t, true)
		got := process(t, s, []byte{0x10, 0x00, 0x01, 0x00})
		want := []byte{0x11, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Fatalf("got % x, want % x", got, want)
		}
	})

	t.Run("write variable 0", func(t *testing.T) {
		s, _ := newOneVarServer(t, true)
		got := process(t, s, []byte{0x20, 0x00, 0x05, 0x00, 0x01, 0x02, 0x03, 0x04})
		want := []byte{0xE0, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Fatalf("got % x, want % x", got, want)
		}
	})

	t.Run("toggle low nibble", func(t *testing.T) {
		s, v := newOneVarServer(t, true)
		got := process(t, s, []byte{0x24, 0x00, 0x06, 0x00, 0x54, 0x00, 0x00, 0x00, 0x0F})
		want := []byte{0xE0, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Fatalf("got % x, want % x", got, want)
		}
		if !bytes.Equal(v.Bytes(), []byte{0x00, 0x00, 0x00, 0x0F}) {
			t.Fatalf("var bytes = % x, want 00 00 00 0F", v.Bytes())
		}
	})

	t.Run("write read-only variable", func(t *testing.T) {
		s, _ := newOneVarServer(t, false)
		got := process(t, s, []byte{0x20, 0x00, 0x05, 0x00, 0x01, 0x02, 0x03, 0x04})
		want := []byte{0xE6, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Fatalf("got % x, want % x", got, want)
		}
	})

	t.Run("unknown opcode", func(t *testing.T) {
		s, _ := newOneVarServer(t, true)
		got := process(t, s, []byte{0xFE, 0x00, 0x00})
		want := []byte{0xE2, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Fatalf("got % x, want % x", got, want)
		}
	})
}

// TestReadWriteRoundTrip anchors L1.
func TestReadWriteRoundTrip(t *testing.T) {
	s, v := newOneVarServer(t, true)
	want := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	process(t, s, Frame{Code: VarWrite, Payload: append([]byte{0}, want...)}.Marshal())
	resp := process(t, s, Frame{Code: VarRead, Payload: []byte{0}}.Marshal())

	f, err := ParseFrame(resp)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if f.Code != RespVarValue || !bytes.Equal(f.Payload, want) {
		t.Fatalf("read back %+v, want payload % x", f, want)
	}
	_ = v
}

func TestVarReadInvalidID(t *testing.T) {
	s, _ := newOneVarServer(t, true)
	resp := process(t, s, Frame{Code: VarRead, Payload: []byte{5}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != Command(ErrInvalidID) {
		t.Fatalf("code = %v, want INVALID_ID", f.Code)
	}
}

func TestWriteReadValidator(t *testing.T) {
	s := NewServer()
	v := NewVariable(1, true)
	v.Validate = ValidatorFunc(func(current, proposed []byte) bool {
		return proposed[0] < 0x80
	})
	if err := s.RegisterVariable(v); err != nil {
		t.Fatalf("RegisterVariable: %v", err)
	}

	resp := process(t, s, Frame{Code: VarWrite, Payload: []byte{0, 0xFF}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != Command(ErrInvalidValue) {
		t.Fatalf("code = %v, want INVALID_VALUE", f.Code)
	}
	if v.Bytes()[0] != 0 {
		t.Fatalf("var bytes = % x, want unchanged", v.Bytes())
	}

	resp = process(t, s, Frame{Code: VarWrite, Payload: []byte{0, 0x10}}.Marshal())
	f, _ = ParseFrame(resp)
	if f.Code != RespOK {
		t.Fatalf("code = %v, want OK", f.Code)
	}
}

// TestGroupWritePartialFailure anchors §4.4's GROUP_WRITE contract:
// passing members are committed even when a later member's validator
// fails, and the hook still fires for the whole group.
func TestGroupWritePartialFailure(t *testing.T) {
	s := NewServer()
	ok := NewVariable(1, true)
	rejecting := NewVariable(1, true)
	rejecting.Validate = ValidatorFunc(func(current, proposed []byte) bool { return false })

	_ = s.RegisterVariable(ok)
	_ = s.RegisterVariable(rejecting)

	var hookCalls int
	s.RegisterHook(HookFuncs{Write: func(vars []*Variable) bool {
		hookCalls++
		return true
	}})

	g, _, created := s.catalog.createGroup([]byte{0, 1})
	if !created {
		t.Fatal("createGroup failed")
	}

	resp := process(t, s, Frame{Code: GroupWrite, Payload: []byte{byte(g.id), 0x42, 0x99}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != Command(ErrInvalidValue) {
		t.Fatalf("code = %v, want INVALID_VALUE", f.Code)
	}
	if ok.Bytes()[0] != 0x42 {
		t.Fatalf("ok var = % x, want committed 0x42", ok.Bytes())
	}
	if rejecting.Bytes()[0] != 0 {
		t.Fatalf("rejecting var = % x, want unchanged", rejecting.Bytes())
	}
	if hookCalls != 1 {
		t.Fatalf("hookCalls = %d, want 1", hookCalls)
	}
}

func TestCurveBlockReadWrite(t *testing.T) {
	data := make([]byte, 8)
	s := NewServer()
	curve := &Curve{
		Writable:  true,
		BlockSize: 4,
		NBlocks:   2,
		ReadBlock: func(b uint16, out []byte) (int, error) {
			return copy(out, data[int(b)*4:int(b)*4+4]), nil
		},
		WriteBlock: func(b uint16, in []byte) error {
			copy(data[int(b)*4:int(b)*4+4], in)
			return nil
		},
	}
	if err := s.RegisterCurve(curve); err != nil {
		t.Fatalf("RegisterCurve: %v", err)
	}

	resp := process(t, s, Frame{Code: CurveBlock, Payload: []byte{0, 0x00, 0x01, 0xAA, 0xBB, 0xCC, 0xDD}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != RespOK {
		t.Fatalf("write block: code = %v, want OK", f.Code)
	}

	resp = process(t, s, Frame{Code: CurveBlockReq, Payload: []byte{0, 0x00, 0x01}}.Marshal())
	f, _ = ParseFrame(resp)
	if f.Code != RespCurveBlock {
		t.Fatalf("read block: code = %v, want RespCurveBlock", f.Code)
	}
	want := []byte{0, 0x00, 0x01, 0xAA, 0xBB, 0xCC, 0xDD}
	if !bytes.Equal(f.Payload, want) {
		t.Fatalf("read block payload = % x, want % x", f.Payload, want)
	}
}

// TestCurveBlockOffsetBoundary anchors §9's resolved open question: a
// block offset equal to nblocks is INVALID_VALUE, not tolerated.
func TestCurveBlockOffsetBoundary(t *testing.T) {
	s := NewServer()
	curve := &Curve{
		BlockSize: 1,
		NBlocks:   1,
		ReadBlock: func(b uint16, out []byte) (int, error) { return copy(out, []byte{0}), nil },
	}
	_ = s.RegisterCurve(curve)

	resp := process(t, s, Frame{Code: CurveBlockReq, Payload: []byte{0, 0x00, 0x01}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != Command(ErrInvalidValue) {
		t.Fatalf("off == nblocks: code = %v, want INVALID_VALUE", f.Code)
	}
}

func TestCurveRecalcChecksum(t *testing.T) {
	s := NewServer()
	data := []byte{1, 2, 3, 4, 5, 6}
	curve := &Curve{
		BlockSize: 2,
		NBlocks:   3,
		ReadBlock: func(b uint16, out []byte) (int, error) {
			return copy(out, data[int(b)*2:int(b)*2+2]), nil
		},
	}
	_ = s.RegisterCurve(curve)

	resp := process(t, s, Frame{Code: CurveRecalcCsum, Payload: []byte{0}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != RespCurveCsum || len(f.Payload) != 16 {
		t.Fatalf("code=%v len(payload)=%d, want RespCurveCsum/16", f.Code, len(f.Payload))
	}
	if got := curve.Checksum(); !bytes.Equal(got[:], f.Payload) {
		t.Fatalf("curve.Checksum() = % x, want % x", got, f.Payload)
	}
}

func TestFuncExecute(t *testing.T) {
	s := NewServer()
	fn := &Function{
		InputSize:  1,
		OutputSize: 1,
		Fn: InvokerFunc(func(in, out []byte) byte {
			if in[0] == 0 {
				return 1
			}
			out[0] = in[0] * 2
			return 0
		}),
	}
	if err := s.RegisterFunction(fn); err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

	resp := process(t, s, Frame{Code: FuncExecute, Payload: []byte{0, 5}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != RespFuncReturn || len(f.Payload) != 1 || f.Payload[0] != 10 {
		t.Fatalf("got %+v, want FUNC_RETURN [10]", f)
	}

	resp = process(t, s, Frame{Code: FuncExecute, Payload: []byte{0, 0}}.Marshal())
	f, _ = ParseFrame(resp)
	if f.Code != RespFuncError || len(f.Payload) != 1 || f.Payload[0] != 1 {
		t.Fatalf("got %+v, want FUNC_ERROR [1]", f)
	}
}

func TestProcessPacketNilRequest(t *testing.T) {
	s := NewServer()
	if _, err := s.ProcessPacket(nil); err != ErrNilRequest {
		t.Fatalf("err = %v, want ErrNilRequest", err)
	}
}

// TestZeroArgCommandsRejectNonemptyPayload anchors §4.3 dispatch step 3
// for every zero-argument command: a well-formed frame carrying an
// unexpected trailing byte must be rejected with INVALID_PAYLOAD_SIZE
// rather than silently answered.
func TestZeroArgCommandsRejectNonemptyPayload(t *testing.T) {
	s, _ := newOneVarServer(t, true)

	for _, code := range []Command{
		QueryVersion, VarQueryList, GroupQueryList, CurveQueryList,
		FuncQueryList, GroupRemoveAll,
	} {
		resp := process(t, s, Frame{Code: code, Payload: []byte{0xFF}}.Marshal())
		f, err := ParseFrame(resp)
		if err != nil {
			t.Fatalf("%v: ParseFrame: %v", code, err)
		}
		if f.Code != Command(ErrInvalidPayloadSize) {
			t.Errorf("%v with nonempty payload: code = %v, want INVALID_PAYLOAD_SIZE", code, f.Code)
		}
	}
}

// TestGroupRemoveAllRejectsPayloadBeforeMutating anchors the same check
// for GROUP_REMOVE_ALL specifically: a malformed request must not
// truncate the group list.
func TestGroupRemoveAllRejectsPayloadBeforeMutating(t *testing.T) {
	s, v := newOneVarServer(t, true)
	if _, _, ok := s.catalog.createGroup([]byte{byte(v.ID())}); !ok {
		t.Fatal("createGroup failed")
	}
	before := len(s.catalog.groups)

	resp := process(t, s, Frame{Code: GroupRemoveAll, Payload: []byte{0x00}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != Command(ErrInvalidPayloadSize) {
		t.Fatalf("code = %v, want INVALID_PAYLOAD_SIZE", f.Code)
	}
	if len(s.catalog.groups) != before {
		t.Fatalf("groups mutated on malformed request: len = %d, want %d", len(s.catalog.groups), before)
	}
}

// TestBinOpUnknownOpCheckedBeforeSizeAndPermission anchors the original's
// validation order (var.c:159, group.c:216): an unrecognized op letter
// yields OP_NOT_SUPPORTED even when the payload is also the wrong size or
// the target is read-only, since the op is checked first.
func TestBinOpUnknownOpCheckedBeforeSizeAndPermission(t *testing.T) {
	s, _ := newOneVarServer(t, false) // read-only, size 4

	// Wrong payload size AND read-only AND unknown op: op wins.
	resp := process(t, s, Frame{Code: VarBinOp, Payload: []byte{0, 'Z', 0x00}}.Marshal())
	f, _ := ParseFrame(resp)
	if f.Code != Command(ErrOpNotSupported) {
		t.Fatalf("VAR_BIN_OP unknown op: code = %v, want OP_NOT_SUPPORTED", f.Code)
	}

	g, _, ok := s.catalog.createGroup([]byte{0})
	if !ok {
		t.Fatal("createGroup failed")
	}
	resp = process(t, s, Frame{Code: GroupBinOp, Payload: []byte{byte(g.id), 'Z', 0x00}}.Marshal())
	f, _ = ParseFrame(resp)
	if f.Code != Command(ErrOpNotSupported) {
		t.Fatalf("GROUP_BIN_OP unknown op: code = %v, want OP_NOT_SUPPORTED", f.Code)
	}
}
