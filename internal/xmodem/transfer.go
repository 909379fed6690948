package xmodem

import (
	"io"

	log "github.com/dsoprea/go-logging"
)

// maxRetries bounds how many times a single packet is retransmitted
// before the transfer gives up.
const maxRetries = 10

func isInterrupted(err error) bool {
	return err == errInterrupted
}

// Transmit uploads data to "to" using the XMODEM protocol, reading
// packets from data and padding the final short packet with zero
// bytes. It returns the number of bytes read from data.
func Transmit(data io.Reader, to io.ReadWriter) (int, error) {
	e := New(to)
	total := 0
	buf := make([]byte, PacketSize)

	for {
		n, err := io.ReadFull(data, buf)
		if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return total, err
		}
		for i := n; i < PacketSize; i++ {
			buf[i] = 0
		}

		if werr := sendWithRetry(e, buf); werr != nil {
			return total, werr
		}
		total += n

		if n < PacketSize {
			break
		}
	}

	if werr := sendWithRetry(e, nil); werr != nil {
		return total, werr
	}
	return total, nil
}

func sendWithRetry(e *Engine, buf []byte) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := e.WritePacket(buf)
		if err == nil {
			return nil
		}
		if !isInterrupted(err) {
			return err
		}
	}
	return log.Wrap(io.ErrClosedPipe)
}

// Receive downloads data from "from" using the XMODEM protocol,
// writing each packet's payload to into. It returns the total number
// of bytes written.
func Receive(from io.ReadWriter, into io.Writer) (int, error) {
	e := New(from)
	total := 0
	buf := make([]byte, PacketSize)

	for {
		n, err := recvWithRetry(e, buf)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		if _, err := into.Write(buf); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func recvWithRetry(e *Engine, buf []byte) (int, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		n, err := e.ReadPacket(buf)
		if err == nil {
			return n, nil
		}
		if !isInterrupted(err) {
			return 0, err
		}
	}
	return 0, log.Wrap(io.ErrClosedPipe)
}
