package worker

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"
)

// startOrigin starts a fake origin TCP server that replies with resp to
// the first request it reads up to "\r\n\r\n", and returns its address.
func startOrigin(t *testing.T, resp string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen origin: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		io.WriteString(conn, resp)
	}()

	return ln.Addr().String()
}

func TestHandleForwardGET(t *testing.T) {
	originAddr := startOrigin(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")

	client, workerSide := net.Pipe()
	w := New(Direct, nil)
	done := make(chan struct{})
	go func() {
		w.Handle(workerSide)
		close(done)
	}()

	req := "GET http://" + originAddr + "/ HTTP/1.1\r\nHost: " + originAddr + "\r\n\r\n"
	go client.Write([]byte(req))

	expected := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"
	out := make([]byte, len(expected))
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, out); err != nil {
		t.Fatalf("read relayed response: %v", err)
	}
	if string(out) != expected {
		t.Fatalf("relayed response = %q, want %q", out, expected)
	}

	// startOrigin closes its connection right after writing resp; the
	// client side never closes. Handle must still return promptly,
	// since the relay closes both legs as soon as either side reaches
	// EOF, without the client closing its own end.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return after origin closed its side")
	}
}

func TestHandleConnectTunnel(t *testing.T) {
	originAddr := startOrigin(t, "tunneled-bytes-ignored")

	client, workerSide := net.Pipe()
	w := New(Direct, nil)
	done := make(chan struct{})
	go func() {
		w.Handle(workerSide)
		close(done)
	}()

	req := "CONNECT " + originAddr + " HTTP/1.1\r\nHost: " + originAddr + "\r\n\r\n"
	go client.Write([]byte(req))

	buf := make([]byte, len(connectRespOK))
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("read CONNECT response: %v", err)
	}
	if string(buf) != connectRespOK {
		t.Fatalf("CONNECT response = %q, want %q", buf, connectRespOK)
	}

	// startOrigin replies and closes only after it reads a blank line, so
	// send one through the tunnel and drain the reply; its content is not
	// checked.
	go client.Write([]byte("\r\n"))
	tunneled := make([]byte, len("tunneled-bytes-ignored"))
	if _, err := io.ReadFull(client, tunneled); err != nil {
		t.Fatalf("read tunneled bytes: %v", err)
	}

	// As above: only the origin side closes. Handle must still return.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return after origin closed its side")
	}
}

// TestHandleOneSidedCloseUnblocksOtherDirection exercises the specific
// deadlock this relied on relay.Pump to avoid: the client aborts the
// tunnel (closes its end of the pipe) while the origin keeps its own socket
// open and never writes or closes. Before relay.Pump closed both legs
// on the first direction's EOF, the upstream-to-client goroutine would
// block forever in Read on the still-open origin socket, and Handle
// would never return.
func TestHandleOneSidedCloseUnblocksOtherDirection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen origin: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	client, workerSide := net.Pipe()
	w := New(Direct, nil)
	done := make(chan struct{})
	go func() {
		w.Handle(workerSide)
		close(done)
	}()

	req := "CONNECT " + ln.Addr().String() + " HTTP/1.1\r\nHost: " + ln.Addr().String() + "\r\n\r\n"
	go client.Write([]byte(req))

	var originConn net.Conn
	select {
	case originConn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("origin never accepted the tunnel")
	}
	defer originConn.Close()

	buf := make([]byte, len(connectRespOK))
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("read CONNECT response: %v", err)
	}

	// Only the client closes; originConn stays open and silent.
	client.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return after only the client side closed")
	}
}

func TestHandleMalformedHeadClosesConnection(t *testing.T) {
	client, workerSide := net.Pipe()
	w := New(Direct, nil)
	done := make(chan struct{})
	go func() {
		w.Handle(workerSide)
		close(done)
	}()

	go client.Write([]byte("not a valid request\r\n\r\n"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return for a malformed head")
	}
}
