package client

import "github.com/example/icp"

// RequestCurveBlock issues CURVE_BLOCK_REQUEST(c.id, off) and returns the
// bytes of that one block (§4.5).
func (s *Session) RequestCurveBlock(c *CurveHandle, off uint16) ([]byte, error) {
	if err := s.checkOwned(c.session); err != nil {
		return nil, err
	}
	if int(off) >= c.NBlocks {
		return nil, ErrPayloadSize
	}

	payload := []byte{c.id, byte(off >> 8), byte(off)}
	resp, err := s.exchange(icp.Frame{Code: icp.CurveBlockReq, Payload: payload}, icp.RespCurveBlock)
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) < 3 {
		return nil, ErrComm
	}
	return resp.Payload[3:], nil
}

// SendCurveBlock issues CURVE_BLOCK(c.id, off, b), writing one block of a
// writable curve (§4.5).
func (s *Session) SendCurveBlock(c *CurveHandle, off uint16, b []byte) error {
	if err := s.checkOwned(c.session); err != nil {
		return err
	}
	if !c.Writable {
		return ErrReadOnly
	}
	if int(off) >= c.NBlocks || len(b) > c.BlockSize {
		return ErrPayloadSize
	}

	payload := make([]byte, 3+len(b))
	payload[0] = c.id
	payload[1] = byte(off >> 8)
	payload[2] = byte(off)
	copy(payload[3:], b)

	_, err := s.exchange(icp.Frame{Code: icp.CurveBlock, Payload: payload}, icp.RespOK)
	return err
}

// ReadCurve reads the whole curve block-by-block into a freshly allocated
// buffer, stopping early the first time a block returns fewer bytes than
// BlockSize (§4.8 whole-curve read).
func (s *Session) ReadCurve(c *CurveHandle) ([]byte, error) {
	var out []byte
	for block := 0; block < c.NBlocks; block++ {
		b, err := s.RequestCurveBlock(c, uint16(block))
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		if len(b) < c.BlockSize {
			break
		}
	}
	return out, nil
}

// WriteCurve chunks data into BlockSize slices and issues successive
// CURVE_BLOCK writes starting at block 0 (§4.8 whole-curve write).
func (s *Session) WriteCurve(c *CurveHandle, data []byte) error {
	block := uint16(0)
	for off := 0; off < len(data); off += c.BlockSize {
		end := off + c.BlockSize
		if end > len(data) {
			end = len(data)
		}
		if err := s.SendCurveBlock(c, block, data[off:end]); err != nil {
			return err
		}
		block++
	}
	return nil
}

// RecalcChecksum issues CURVE_RECALC_CSUM(c.id), updates the cached
// checksum, and refreshes the curve list (§4.5, §4.8).
func (s *Session) RecalcChecksum(c *CurveHandle) ([16]byte, error) {
	if err := s.checkOwned(c.session); err != nil {
		return [16]byte{}, err
	}

	resp, err := s.exchange(icp.Frame{Code: icp.CurveRecalcCsum, Payload: []byte{c.id}}, icp.RespCurveCsum)
	if err != nil {
		return [16]byte{}, err
	}
	if len(resp.Payload) != 16 {
		return [16]byte{}, ErrComm
	}

	var csum [16]byte
	copy(csum[:], resp.Payload)
	c.Checksum = csum

	if err := s.refreshCurves(); err != nil {
		return csum, err
	}
	return csum, nil
}
