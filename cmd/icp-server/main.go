// Command icp-server demonstrates wiring an icp.Server to a TCP
// transport: accept a connection, read one frame at a time, dispatch it,
// write back the response.
package main

import (
	"encoding/binary"
	"flag"
	"io"
	"log"
	"net"

	"github.com/example/icp"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5050", "listen address")
	flag.Parse()

	srv := newDemoServer()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("icp-server: listen: %v", err)
	}
	log.Printf("icp-server: listening on %s", *addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("icp-server: accept: %v", err)
			continue
		}
		serve(srv, conn)
	}
}

func serve(srv *icp.Server, conn net.Conn) {
	defer conn.Close()

	for {
		req, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("icp-server: read: %v", err)
			}
			return
		}

		resp, err := srv.ProcessPacket(req)
		if err != nil {
			log.Printf("icp-server: process: %v", err)
			return
		}

		if _, err := conn.Write(resp); err != nil {
			log.Printf("icp-server: write: %v", err)
			return
		}
	}
}

// readFrame reads exactly one icp frame off r: the 3-byte header carries
// its own payload length, so no extra transport framing is needed.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint16(hdr[1:3])
	buf := make([]byte, 3+int(n))
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[3:]); err != nil {
		return nil, err
	}
	return buf, nil
}

// newDemoServer registers a handful of variables, a group, a curve and a
// function so the binary has something to expose out of the box.
func newDemoServer() *icp.Server {
	srv := icp.NewServer()

	status := icp.NewVariable(4, false)
	setpoint := icp.NewVariable(4, true)
	_ = srv.RegisterVariable(status)
	_ = srv.RegisterVariable(setpoint)

	block := make([]byte, 4096)
	curve := &icp.Curve{
		Writable:  true,
		BlockSize: 256,
		NBlocks:   16,
		ReadBlock: func(b uint16, out []byte) (int, error) {
			off := int(b) * 256
			return copy(out, block[off:off+256]), nil
		},
		WriteBlock: func(b uint16, in []byte) error {
			off := int(b) * 256
			copy(block[off:off+256], in)
			return nil
		},
	}
	_ = srv.RegisterCurve(curve)

	square := &icp.Function{
		InputSize:  1,
		OutputSize: 1,
		Fn: icp.InvokerFunc(func(in, out []byte) byte {
			v := int(in[0])
			out[0] = byte((v * v) & 0xff)
			return 0
		}),
	}
	_ = srv.RegisterFunction(square)

	return srv
}
