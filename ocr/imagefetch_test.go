package ocr

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

// startSOCKS5 runs a minimal SOCKS5 server for one connection: no-auth
// greeting, CONNECT request, then a bidirectional relay to the requested
// target. The dialed target address is reported on the returned channel.
func startSOCKS5(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	dialed := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		greeting := make([]byte, 2)
		if _, err := io.ReadFull(conn, greeting); err != nil || greeting[0] != 0x05 {
			return
		}
		methods := make([]byte, greeting[1])
		if _, err := io.ReadFull(conn, methods); err != nil {
			return
		}
		conn.Write([]byte{0x05, 0x00}) // no auth

		head := make([]byte, 4)
		if _, err := io.ReadFull(conn, head); err != nil || head[1] != 0x01 {
			return
		}
		var host string
		switch head[3] {
		case 0x01:
			ip := make([]byte, 4)
			io.ReadFull(conn, ip)
			host = net.IP(ip).String()
		case 0x03:
			length := make([]byte, 1)
			io.ReadFull(conn, length)
			name := make([]byte, length[0])
			io.ReadFull(conn, name)
			host = string(name)
		case 0x04:
			ip := make([]byte, 16)
			io.ReadFull(conn, ip)
			host = net.IP(ip).String()
		default:
			return
		}
		portBytes := make([]byte, 2)
		io.ReadFull(conn, portBytes)
		target := net.JoinHostPort(host, strconv.Itoa(int(portBytes[0])<<8|int(portBytes[1])))
		dialed <- target

		upstream, err := net.Dial("tcp", target)
		if err != nil {
			conn.Write([]byte{0x05, 0x01, 0x00, 0x01, 0, 0, 0, 0, 0, 0})
			return
		}
		defer upstream.Close()
		conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0})

		go io.Copy(upstream, conn)
		io.Copy(conn, upstream)
	}()
	return ln.Addr().String(), dialed
}

func TestDialRaw_SOCKS5Negotiation(t *testing.T) {
	// Plain TCP target that writes a banner and closes.
	target, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer target.Close()
	go func() {
		conn, err := target.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("hello through the tunnel"))
		conn.Close()
	}()

	socksAddr, dialed := startSOCKS5(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := dialRaw(ctx, "tcp", target.Addr().String(), "socks5://"+socksAddr)
	if err != nil {
		t.Fatalf("dialRaw: %v", err)
	}
	defer conn.Close()

	select {
	case got := <-dialed:
		if got != target.Addr().String() {
			t.Errorf("proxy asked to connect to %s, want %s", got, target.Addr())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not go through the SOCKS5 proxy")
	}

	body, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "hello through the tunnel" {
		t.Errorf("read %q through the tunnel", body)
	}
}

func TestDialRaw_NoProxy(t *testing.T) {
	target, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer target.Close()
	go func() {
		conn, err := target.Accept()
		if err != nil {
			return
		}
		conn.Write([]byte("direct"))
		conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := dialRaw(ctx, "tcp", target.Addr().String(), "")
	if err != nil {
		t.Fatalf("dialRaw: %v", err)
	}
	defer conn.Close()

	body, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "direct" {
		t.Errorf("read %q", body)
	}
}
