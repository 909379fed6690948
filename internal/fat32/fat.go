package fat32

import (
	"encoding/binary"

	"github.com/soypat/pi3kernel/internal/blockdev"
)

// order is the byte order every on-disk FAT32 structure is packed in.
var order = binary.LittleEndian

const (
	clusterFreeMarker     = 0x00000000
	clusterReservedFirst  = 0x00000001
	clusterBadMarker      = 0x0FFFFFF7
	clusterEndOfChainLo   = 0x0FFFFFF8
	clusterMask28         = 0x0FFFFFFF
)

// Status classifies a FAT entry.
type Status uint8

const (
	StatusFree Status = iota
	StatusData        // entry names the next cluster in the chain
	StatusReserved
	StatusBad
	StatusEndOfChain
)

// FatEntry is a decoded FAT table entry.
type FatEntry struct {
	Status Status
	Next   uint32 // valid only when Status == StatusData
}

func decodeEntry(raw uint32) FatEntry {
	v := raw & clusterMask28
	switch {
	case v == clusterFreeMarker:
		return FatEntry{Status: StatusFree}
	case v == clusterReservedFirst:
		return FatEntry{Status: StatusReserved}
	case v == clusterBadMarker:
		return FatEntry{Status: StatusBad}
	case v >= clusterEndOfChainLo:
		return FatEntry{Status: StatusEndOfChain}
	default:
		return FatEntry{Status: StatusData, Next: v}
	}
}

// Table reads FAT entries directly off the cached block device backing
// a volume. relSector is the partition's starting sector, added to
// every volume-relative sector BPB computes before it is dereferenced
// against the device.
type Table struct {
	dev       *blockdev.CachedDevice
	bpb       *BPB
	relSector uint32
}

func newTable(dev *blockdev.CachedDevice, bpb *BPB, relSector uint32) *Table {
	return &Table{dev: dev, bpb: bpb, relSector: relSector}
}

// Entry returns the decoded FAT entry for cluster.
func (t *Table) Entry(cluster uint32) (FatEntry, error) {
	sector, offset := t.bpb.FATEntrySector(cluster)
	buf := make([]byte, t.bpb.BytesPerSector)
	if _, err := t.dev.ReadSector(uint64(t.relSector+sector), buf); err != nil {
		return FatEntry{}, err
	}
	raw := order.Uint32(buf[offset : offset+4])
	return decodeEntry(raw), nil
}

// Chain returns every cluster in the chain starting at start, in order.
func (t *Table) Chain(start uint32) ([]uint32, error) {
	var clusters []uint32
	cluster := start
	for {
		clusters = append(clusters, cluster)
		entry, err := t.Entry(cluster)
		if err != nil {
			return nil, err
		}
		switch entry.Status {
		case StatusData:
			cluster = entry.Next
		case StatusEndOfChain:
			return clusters, nil
		default:
			return nil, ErrBrokenChain
		}
	}
}
