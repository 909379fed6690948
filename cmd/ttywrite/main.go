// Command ttywrite uploads a kernel image to a Raspberry Pi over a
// serial connection using the XMODEM protocol, putting the tty into
// raw mode for the duration of the transfer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/soypat/pi3kernel/internal/xmodem"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ttywrite:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var baud int
	cmd := &cobra.Command{
		Use:   "ttywrite <tty-path> <image-path>",
		Short: "ttywrite uploads a kernel image over serial via XMODEM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTTYWrite(args[0], args[1], baud)
		},
	}
	cmd.Flags().IntVar(&baud, "baud", 115200, "serial baud rate")
	return cmd
}

func runTTYWrite(ttyPath, imagePath string, baud int) error {
	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("ttywrite: opening tty: %w", err)
	}
	defer tty.Close()

	restore, err := setRawMode(int(tty.Fd()), baud)
	if err != nil {
		return fmt.Errorf("ttywrite: setting raw mode: %w", err)
	}
	defer restore()

	image, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("ttywrite: opening image: %w", err)
	}
	defer image.Close()

	n, err := xmodem.Transmit(image, tty)
	if err != nil {
		return fmt.Errorf("ttywrite: transfer failed after %d bytes: %w", n, err)
	}
	fmt.Fprintf(os.Stdout, "ttywrite: sent %d bytes\n", n)
	return nil
}

// setRawMode puts fd into raw, non-canonical mode at the given baud
// rate and returns a func that restores the previous termios state.
func setRawMode(fd int, baud int) (restore func(), err error) {
	original, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	raw := *original
	unix.CfmakeRaw(&raw)
	if rate, ok := baudRates[baud]; ok {
		raw.Cflag &^= unix.CBAUD
		raw.Cflag |= rate
		raw.Ispeed = uint32(baud)
		raw.Ospeed = uint32(baud)
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return func() { unix.IoctlSetTermios(fd, unix.TCSETS, original) }, nil
}

var baudRates = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}
