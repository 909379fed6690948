// Package xmodem implements the framed, checksummed XMODEM protocol
// variant used by the bootloader to receive a kernel image over the
// serial link: 132-byte frames (SOH, packet number, its complement,
// 128-byte payload, checksum) with a NAK/ACK handshake and a
// double-EOT termination sequence.
package xmodem

import (
	"errors"
	"io"

	log "github.com/dsoprea/go-logging"
)

const (
	soh byte = 0x01
	eot byte = 0x04
	ack byte = 0x06
	nak byte = 0x15
	can byte = 0x18

	// PacketSize is the fixed payload size of a single XMODEM packet.
	PacketSize = 128
)

// Engine is a single XMODEM session over a bidirectional byte stream.
// It can act as either sender or receiver depending on which of
// ReadPacket/WritePacket the caller drives; the two roles are never
// mixed within one Engine.
type Engine struct {
	packet  uint8
	started bool
	inner   io.ReadWriter
}

// New returns an Engine starting at packet number 1.
func New(inner io.ReadWriter) *Engine {
	return &Engine{packet: 1, inner: inner}
}

func (e *Engine) readByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(e.inner, buf[:]); err != nil {
		return 0, err
	}
	if buf[0] == can {
		return 0, log.Wrap(errors.New("xmodem: received CAN"))
	}
	return buf[0], nil
}

func (e *Engine) writeByte(b byte) error {
	_, err := e.inner.Write([]byte{b})
	return err
}

func (e *Engine) expectByteOrCancel(want byte, msg string) error {
	got, err := e.readByte()
	if err != nil {
		return err
	}
	if got != want {
		e.writeByte(can)
		return log.Errorf("xmodem: %s", msg)
	}
	return nil
}

func (e *Engine) expectByte(want byte, msg string) error {
	got, err := e.readByte()
	if err != nil {
		return err
	}
	if got != want {
		return log.Errorf("xmodem: %s", msg)
	}
	return nil
}

func checksum(buf []byte) byte {
	var sum byte
	for _, b := range buf {
		sum += b // wrapping 8-bit sum
	}
	return sum
}

// errInterrupted signals a recoverable per-packet failure (a bad
// checksum seen by the receiver, or the receiver answering a sent
// packet with NAK) that the retry driver in Transmit/Receive
// retransmits/re-accepts,
// matching the io.ErrorKind::Interrupted convention of the source
// protocol.
var errInterrupted = errors.New("xmodem: interrupted")

// ReadPacket receives (downloads) a single packet into buf, which must
// be exactly PacketSize bytes. On success it returns 128; at the end
// of the transfer (a double-EOT handshake) it returns 0. A checksum
// failure returns errInterrupted so the caller can retry.
func (e *Engine) ReadPacket(buf []byte) (int, error) {
	if len(buf) != PacketSize {
		return 0, io.ErrUnexpectedEOF
	}

	if !e.started {
		if err := e.writeByte(nak); err != nil {
			return 0, err
		}
		e.started = true
	}

	header, err := e.readByte()
	if err != nil {
		return 0, err
	}

	switch header {
	case soh:
		expected := e.packet
		if err := e.expectByteOrCancel(expected, "invalid packet number"); err != nil {
			return 0, err
		}
		if err := e.expectByteOrCancel(255-expected, "invalid packet number complement"); err != nil {
			return 0, err
		}
		if _, err := io.ReadFull(e.inner, buf); err != nil {
			return 0, err
		}
		sum, err := e.readByte()
		if err != nil {
			return 0, err
		}
		if sum != checksum(buf) {
			e.writeByte(nak)
			return 0, errInterrupted
		}
		e.packet++ // wraps at 256 back to 0, matching the source's u8 wrap
		if err := e.writeByte(ack); err != nil {
			return 0, err
		}
		return PacketSize, nil

	case eot:
		if err := e.writeByte(nak); err != nil {
			return 0, err
		}
		if err := e.expectByte(eot, "expected second EOT to end transmission"); err != nil {
			return 0, err
		}
		if err := e.writeByte(ack); err != nil {
			return 0, err
		}
		return 0, nil

	default:
		return 0, log.Errorf("xmodem: expected EOT or SOH to start packet, got %#x", header)
	}
}

// WritePacket sends (uploads) a single packet. buf must be either
// empty, which signals end of transmission, or exactly PacketSize
// bytes.
func (e *Engine) WritePacket(buf []byte) (int, error) {
	if len(buf) != 0 && len(buf) != PacketSize {
		return 0, io.ErrUnexpectedEOF
	}

	if !e.started {
		if err := e.expectByte(nak, "expected NAK from receiver to start"); err != nil {
			return 0, err
		}
		e.started = true
	}

	if len(buf) == 0 {
		if err := e.writeByte(eot); err != nil {
			return 0, err
		}
		if err := e.expectByte(nak, "expected NAK after EOT"); err != nil {
			return 0, err
		}
		if err := e.writeByte(eot); err != nil {
			return 0, err
		}
		if err := e.expectByte(ack, "expected ACK after second EOT"); err != nil {
			return 0, err
		}
		return 0, nil
	}

	packetNumber := e.packet
	if err := e.writeByte(soh); err != nil {
		return 0, err
	}
	if err := e.writeByte(packetNumber); err != nil {
		return 0, err
	}
	if err := e.writeByte(255 - packetNumber); err != nil {
		return 0, err
	}
	if _, err := e.inner.Write(buf); err != nil {
		return 0, err
	}
	if err := e.writeByte(checksum(buf)); err != nil {
		return 0, err
	}

	resp, err := e.readByte()
	if err != nil {
		return 0, err
	}
	switch resp {
	case ack:
		e.packet++
		return PacketSize, nil
	case nak:
		return 0, errInterrupted
	default:
		return 0, log.Errorf("xmodem: unexpected response %#x after packet", resp)
	}
}
