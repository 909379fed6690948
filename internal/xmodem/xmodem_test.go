package xmodem

import (
	"bytes"
	"net"
	"testing"
)

func TestChecksumWraps(t *testing.T) {
	buf := bytes.Repeat([]byte{0xFF}, PacketSize)
	if got := checksum(buf); got != 0x80 {
		t.Fatalf("checksum = %#x, want 0x80", got)
	}
}

func TestTransmitReceiveRoundTrip(t *testing.T) {
	sender, receiver := net.Pipe()
	defer sender.Close()
	defer receiver.Close()

	payload := bytes.Repeat([]byte("abcdefgh"), 40) // 320 bytes, spans 3 packets
	var out bytes.Buffer

	errc := make(chan error, 2)
	go func() {
		_, err := Transmit(bytes.NewReader(payload), sender)
		errc <- err
	}()
	go func() {
		_, err := Receive(receiver, &out)
		errc <- err
	}()

	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("transfer failed: %v", err)
		}
	}

	want := append([]byte{}, payload...)
	for len(want)%PacketSize != 0 {
		want = append(want, 0)
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("got %d bytes, want %d", out.Len(), len(want))
	}
}

func TestTransmitReceiveExactMultipleOfPacketSize(t *testing.T) {
	sender, receiver := net.Pipe()
	defer sender.Close()
	defer receiver.Close()

	payload := bytes.Repeat([]byte{0x42}, PacketSize*2)
	var out bytes.Buffer

	errc := make(chan error, 2)
	go func() {
		_, err := Transmit(bytes.NewReader(payload), sender)
		errc <- err
	}()
	go func() {
		_, err := Receive(receiver, &out)
		errc <- err
	}()
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("transfer failed: %v", err)
		}
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Fatalf("round trip mismatch, got %d bytes want %d", out.Len(), len(payload))
	}
}

// rawConn lets a test script a fixed byte sequence as the peer's
// responses, used to exercise the raw wire framing without a live
// Engine on the other end.
type rawConn struct {
	toSend  *bytes.Buffer
	written bytes.Buffer
}

func (r *rawConn) Read(p []byte) (int, error)  { return r.toSend.Read(p) }
func (r *rawConn) Write(p []byte) (int, error) { return r.written.Write(p) }

func TestWritePacketRawFraming(t *testing.T) {
	conn := &rawConn{toSend: bytes.NewBuffer([]byte{nak, ack})}
	e := New(conn)
	buf := bytes.Repeat([]byte{0x55}, PacketSize)
	n, err := e.WritePacket(buf)
	if err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if n != PacketSize {
		t.Fatalf("n = %d, want %d", n, PacketSize)
	}

	got := conn.written.Bytes()
	if got[0] != soh || got[1] != 1 || got[2] != 254 {
		t.Fatalf("bad header: %v", got[:3])
	}
	if got[len(got)-1] != checksum(buf) {
		t.Fatalf("bad trailing checksum")
	}
}

func TestReadPacketRejectsBadChecksum(t *testing.T) {
	buf := bytes.Repeat([]byte{0x11}, PacketSize)
	wire := []byte{soh, 1, 254}
	wire = append(wire, buf...)
	wire = append(wire, checksum(buf)^0xFF) // corrupt checksum

	conn := &rawConn{toSend: bytes.NewBuffer(wire)}
	e := New(conn)
	out := make([]byte, PacketSize)
	_, err := e.ReadPacket(out)
	if !isInterrupted(err) {
		t.Fatalf("expected interrupted error on bad checksum, got %v", err)
	}
}

func TestSendWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	conn := &rawConn{toSend: bytes.NewBuffer(bytes.Repeat([]byte{nak}, 1+maxRetries))}
	e := New(conn)
	buf := bytes.Repeat([]byte{0x01}, PacketSize)
	err := sendWithRetry(e, buf)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}
