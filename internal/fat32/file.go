package fat32

import "io"

// File is a cursor over a FAT32 regular file's cluster chain. It
// implements io.ReadSeeker.
type File struct {
	fs    *FS
	entry Entry
	chain []uint32
	pos   int64
}

// Name returns the file's resolved (long, if present) name.
func (f *File) Name() string { return f.entry.Name }

// Size returns the file's length in bytes, as recorded in its
// directory entry.
func (f *File) Size() int64 { return int64(f.entry.Size) }

func (f *File) Read(p []byte) (int, error) {
	if f.pos >= int64(f.entry.Size) {
		return 0, io.EOF
	}
	remaining := int64(f.entry.Size) - f.pos
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	clusterSize := int64(f.fs.bpb.ClusterSizeBytes())
	total := 0
	for total < len(p) {
		clusterIdx := int((f.pos + int64(total)) / clusterSize)
		inCluster := (f.pos + int64(total)) % clusterSize
		if clusterIdx >= len(f.chain) {
			break
		}
		block, err := f.fs.clusterBytes(f.chain[clusterIdx])
		if err != nil {
			return total, err
		}
		n := copy(p[total:], block[inCluster:])
		total += n
	}
	f.pos += int64(total)
	return total, nil
}

// Seek implements io.Seeker. Seeking before the start of the file or
// beyond its end is an error.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.pos + offset
	case io.SeekEnd:
		newPos = int64(f.entry.Size) + offset
	default:
		return 0, ErrSeekBounds
	}
	if newPos < 0 || newPos > int64(f.entry.Size) {
		return 0, ErrSeekBounds
	}
	f.pos = newPos
	return f.pos, nil
}
