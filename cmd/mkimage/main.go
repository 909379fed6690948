// Command mkimage inspects a FAT32 disk image file: it lists
// directory contents and extracts individual files, without ever
// mounting the image into the host's own filesystem.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soypat/pi3kernel/internal/fat32"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mkimage:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkimage",
		Short: "mkimage inspects and extracts files from a FAT32 disk image",
	}
	cmd.AddCommand(listCmd(), extractCmd())
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <image-path> [dir]",
		Short: "list the contents of a directory in a FAT32 image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, close, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer close()

			dir := "/"
			if len(args) == 2 {
				dir = args[1]
			}
			entry, err := fs.Stat(dir)
			if err != nil {
				return err
			}
			entries, err := fs.ReadDir(entry)
			if err != nil {
				return err
			}
			for _, e := range entries {
				kind := "-"
				if e.IsDir {
					kind = "d"
				}
				fmt.Printf("%s %8s  %s\n", kind, humanize.Bytes(uint64(e.Size)), e.Name)
			}
			return nil
		},
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <image-path> <file-in-image> <dest-path>",
		Short: "extract a single file out of a FAT32 image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, close, err := openImage(args[0])
			if err != nil {
				return err
			}
			defer close()

			src, err := fs.Open(args[1])
			if err != nil {
				return err
			}
			dst, err := os.Create(args[2])
			if err != nil {
				return err
			}
			defer dst.Close()

			n, err := io.Copy(dst, src)
			if err != nil {
				return err
			}
			fmt.Printf("extracted %s (%s) to %s\n", filepath.Base(args[1]), humanize.Bytes(uint64(n)), args[2])
			return nil
		},
	}
}

// fileDevice adapts an *os.File holding a raw disk image to
// blockdev.BlockDevice.
type fileDevice struct {
	f          *os.File
	sectorSize uint32
}

func (d *fileDevice) SectorSize() uint32 { return d.sectorSize }

func (d *fileDevice) ReadSector(n uint64, buf []byte) (int, error) {
	return d.f.ReadAt(buf, int64(n)*int64(d.sectorSize))
}

func (d *fileDevice) WriteSector(n uint64, buf []byte) (int, error) {
	return d.f.WriteAt(buf, int64(n)*int64(d.sectorSize))
}

func openImage(path string) (*fat32.FS, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	const sectorSize = 512
	dev := &fileDevice{f: f, sectorSize: sectorSize}
	fs, err := fat32.Mount(dev)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return fs, func() { f.Close() }, nil
}
