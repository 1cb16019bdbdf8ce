// Command icp-client demonstrates connecting a client.Session to the
// icp-server demo over TCP, discovering its catalogue, and reading the
// first variable.
package main

import (
	"encoding/binary"
	"flag"
	"io"
	"log"
	"net"

	"github.com/example/icp/client"
)

// netTransport adapts a net.Conn to client.Transport, framing each
// exchange the same self-delimiting way the server reads frames.
type netTransport struct {
	conn net.Conn
}

func (t *netTransport) Send(b []byte) error {
	_, err := t.conn.Write(b)
	return err
}

func (t *netTransport) Recv() ([]byte, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(t.conn, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint16(hdr[1:3])
	buf := make([]byte, 3+int(n))
	copy(buf, hdr[:])
	if _, err := io.ReadFull(t.conn, buf[3:]); err != nil {
		return nil, err
	}
	return buf, nil
}

func main() {
	addr := flag.String("addr", "127.0.0.1:5050", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("icp-client: dial: %v", err)
	}
	defer conn.Close()

	sess := client.NewSession(&netTransport{conn: conn})
	if err := sess.Init(); err != nil {
		log.Fatalf("icp-client: init: %v", err)
	}

	log.Printf("icp-client: server version %s, %d variables, %d groups, %d curves, %d functions",
		sess.Version, len(sess.Vars()), len(sess.Groups()), len(sess.Curves()), len(sess.Funcs()))

	if len(sess.Vars()) == 0 {
		return
	}

	v := sess.Vars()[0]
	val, err := sess.ReadVar(v)
	if err != nil {
		log.Fatalf("icp-client: read var 0: %v", err)
	}
	log.Printf("icp-client: variable 0 = % x", val)
}
