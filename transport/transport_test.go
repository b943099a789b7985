package transport

import (
	"bytes"
	"io"
	"net"
	"testing"
)

// skipPreamble consumes the one-time preamble a Conn writes before its first
// frame; a reading Conn does not expect one, so the test drains it by hand.
func skipPreamble(t *testing.T, r io.Reader, f Framing) {
	t.Helper()
	var pre bytes.Buffer
	if err := f.WriteHandshake(&pre); err != nil {
		t.Fatalf("WriteHandshake: %v", err)
	}
	if _, err := io.ReadFull(r, make([]byte, pre.Len())); err != nil {
		t.Fatalf("reading preamble: %v", err)
	}
}

func roundTrip(t *testing.T, newFraming func() Framing) {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cConn := New(client, newFraming(), 1<<20)
	sConn := New(server, newFraming(), 1<<20)

	payload := []byte("hello, handshake")
	for len(payload)%4 != 0 {
		payload = append(payload, 0)
	}

	done := make(chan error, 1)
	go func() { done <- cConn.WriteFrame(payload) }()

	skipPreamble(t, server, newFraming())
	got, err := sConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestAbridgedRoundTrip(t *testing.T) {
	roundTrip(t, func() Framing { return Abridged{} })
}

func TestIntermediateRoundTrip(t *testing.T) {
	roundTrip(t, func() Framing { return Intermediate{} })
}

func TestFullRoundTrip(t *testing.T) {
	roundTrip(t, func() Framing { return &Full{} })
}

func TestAbridgedLargeFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cConn := New(client, Abridged{}, 1<<20)
	sConn := New(server, Abridged{}, 1<<20)

	payload := make([]byte, 0x7f*4+400)
	for i := range payload {
		payload[i] = byte(i)
	}

	done := make(chan error, 1)
	go func() { done <- cConn.WriteFrame(payload) }()

	skipPreamble(t, server, Abridged{})
	got, err := sConn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("got %d bytes, want %d", len(got), len(payload))
	}
}

func TestFullDetectsCRCTamper(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	f := &Full{}
	go func() {
		buf := []byte{16, 0, 0, 0, 0, 0, 0, 0, 0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4}
		client.Write(buf)
	}()

	sConn := New(server, f, 1<<20)
	if _, err := sConn.ReadFrame(); err == nil {
		t.Fatal("expected CRC mismatch error, got nil")
	}
}
