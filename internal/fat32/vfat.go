package fat32

import (
	"errors"
	"path"
	"strings"

	"github.com/soypat/pi3kernel/internal/blockdev"
)

// ErrNoFAT32Partition is returned by Mount when a device's MBR has no
// partition table entry marked as a FAT32 filesystem.
var ErrNoFAT32Partition = errors.New("fat32: no FAT32 partition found in MBR")

// FS is a mounted, read-only FAT32 volume.
type FS struct {
	dev   *blockdev.CachedDevice
	bpb   BPB
	table *Table
	root  Entry

	// relSector is the mounted partition's starting sector on dev,
	// read out of the MBR at Mount time. BPB's own sector arithmetic
	// (FirstFATSector, FirstDataSector, ClusterToSector...) is
	// volume-relative; every sector this type hands to dev has
	// relSector added first.
	relSector uint32
}

// Mount reads dev's Master Boot Record, locates its FAT32 partition,
// and parses that partition's boot sector as a FAT32 BPB, returning a
// navigable filesystem.
func Mount(dev blockdev.BlockDevice) (*FS, error) {
	mbr, err := ReadMBR(dev)
	if err != nil {
		return nil, err
	}
	partition, _, ok := mbr.FindFAT32()
	if !ok {
		return nil, ErrNoFAT32Partition
	}
	relSector := partition.StartLBA()

	cached := blockdev.New(dev, blockdev.Partition{
		Start:      uint64(relSector),
		SectorSize: uint64(dev.SectorSize()),
	})

	sector := make([]byte, 512)
	if _, err := cached.ReadSector(uint64(relSector), sector); err != nil {
		return nil, err
	}
	bpb, err := ParseBPB(sector)
	if err != nil {
		return nil, err
	}

	fs := &FS{
		dev:       cached,
		bpb:       bpb,
		relSector: relSector,
	}
	fs.table = newTable(cached, &fs.bpb, relSector)
	fs.root = Entry{
		Name:    "/",
		Attr:    Attributes(attrDirectory),
		Cluster: bpb.RootCluster,
		IsDir:   true,
	}
	return fs, nil
}

// clusterBytes reads every sector of cluster into a single buffer.
func (fs *FS) clusterBytes(cluster uint32) ([]byte, error) {
	buf := make([]byte, fs.bpb.ClusterSizeBytes())
	sector := fs.relSector + fs.bpb.ClusterToSector(cluster)
	perSector := int(fs.bpb.BytesPerSector)
	for i := uint32(0); i < fs.bpb.SectorsPerCluster(); i++ {
		if _, err := fs.dev.ReadSector(uint64(sector+i), buf[int(i)*perSector:int(i+1)*perSector]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// ReadDir returns the entries of the directory named by dir.
func (fs *FS) ReadDir(dir Entry) ([]Entry, error) {
	if !dir.IsDir {
		return nil, ErrNotDirectory
	}
	chain, err := fs.table.Chain(dir.Cluster)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, cluster := range chain {
		block, err := fs.clusterBytes(cluster)
		if err != nil {
			return nil, err
		}
		parsed, err := parseDirBlock(block)
		if err != nil {
			return nil, err
		}
		entries = append(entries, parsed...)
	}
	return entries, nil
}

// Root returns the volume's root directory entry.
func (fs *FS) Root() Entry { return fs.root }

// Stat walks p, a slash-separated path rooted at the volume root, and
// returns the entry it names.
func (fs *FS) Stat(p string) (Entry, error) {
	current := fs.root
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return current, nil
	}
	for _, name := range strings.Split(p, "/") {
		entries, err := fs.ReadDir(current)
		if err != nil {
			return Entry{}, err
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name, name) {
				current = e
				found = true
				break
			}
		}
		if !found {
			return Entry{}, ErrNotFound
		}
	}
	return current, nil
}

// Open returns a File positioned at the start of the regular file
// named by p.
func (fs *FS) Open(p string) (*File, error) {
	entry, err := fs.Stat(p)
	if err != nil {
		return nil, err
	}
	if entry.IsDir {
		return nil, ErrNotFile
	}
	var chain []uint32
	if entry.Size > 0 {
		chain, err = fs.table.Chain(entry.Cluster)
		if err != nil {
			return nil, err
		}
	}
	return &File{fs: fs, entry: entry, chain: chain}, nil
}
