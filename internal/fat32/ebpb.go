package fat32

import (
	"errors"

	log "github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// BPB is the FAT32 extended BIOS Parameter Block, the first sector of
// a FAT32 volume. Field layout follows Microsoft's FAT32 File System
// Specification; struct field order is the wire order restruct packs
// and unpacks against, little-endian throughout.
type BPB struct {
	JumpBoot       [3]byte
	OEMName        [8]byte
	BytesPerSector uint16
	SectorsPerClusterRaw byte
	ReservedSectors      uint16
	NumFATs              byte
	RootEntryCount       uint16
	TotalSectors16       uint16
	MediaDescriptor      byte
	FATSize16            uint16
	SectorsPerTrack      uint16
	NumHeads             uint16
	HiddenSectors        uint32
	TotalSectors32       uint32

	// FAT32-only extension.
	FATSize32          uint32
	ExtFlags           uint16
	FSVersion          uint16
	RootCluster        uint32
	FSInfoSector       uint16
	BackupBootSector   uint16
	Reserved0          [12]byte
	DriveNumber        byte
	Reserved1          byte
	BootSignature      byte
	VolumeID           uint32
	VolumeLabel        [11]byte
	FilesystemType     [8]byte
	BootCode           [420]byte
	Signature55AA      uint16
}

var (
	ErrShortSector    = errors.New("fat32: sector shorter than 512 bytes")
	ErrNotFAT32       = errors.New("fat32: filesystem type is not FAT32")
	ErrBadBootSignature = errors.New("fat32: missing 0x55AA boot sector signature")
)

// ParseBPB decodes sector, which must be exactly 512 bytes, as a
// FAT32 extended BPB.
func ParseBPB(sector []byte) (BPB, error) {
	if len(sector) != 512 {
		return BPB{}, ErrShortSector
	}
	var bpb BPB
	if err := restruct.Unpack(sector, order, &bpb); err != nil {
		return BPB{}, log.Wrap(err)
	}
	if bpb.Signature55AA != BootSignature {
		return BPB{}, ErrBadBootSignature
	}
	if bpb.FATSize16 != 0 || bpb.RootEntryCount != 0 {
		// FAT12/16 volumes use these fields; FAT32 always zeroes them.
		return BPB{}, ErrNotFAT32
	}
	return bpb, nil
}

// SectorsPerCluster returns the cluster size in sectors.
func (b *BPB) SectorsPerCluster() uint32 { return uint32(b.SectorsPerClusterRaw) }

// ClusterSizeBytes returns the cluster size in bytes.
func (b *BPB) ClusterSizeBytes() uint32 {
	return uint32(b.BytesPerSector) * b.SectorsPerCluster()
}

// FirstFATSector is the sector offset, relative to the start of the
// volume (i.e. the partition's own sector 0, not the physical disk),
// of the first FAT. Callers addressing a BlockDevice add the
// partition's starting sector themselves — see FS.relSector — so this
// stays pure volume-relative arithmetic independent of where the
// partition actually sits on disk.
func (b *BPB) FirstFATSector() uint32 { return uint32(b.ReservedSectors) }

// FirstDataSector is the sector offset, relative to the start of the
// volume, of cluster 2 — the first valid data cluster.
func (b *BPB) FirstDataSector() uint32 {
	return b.FirstFATSector() + uint32(b.NumFATs)*b.FATSize32
}

// ClusterToSector converts an absolute cluster number (>= 2) to a
// volume-relative sector offset.
func (b *BPB) ClusterToSector(cluster uint32) uint32 {
	return b.FirstDataSector() + (cluster-2)*b.SectorsPerCluster()
}

// FATEntrySector returns the volume-relative sector containing
// cluster's FAT entry and the entry's byte offset within that sector.
func (b *BPB) FATEntrySector(cluster uint32) (sector uint32, offset uint32) {
	fatOffset := cluster * 4
	sector = b.FirstFATSector() + fatOffset/uint32(b.BytesPerSector)
	offset = fatOffset % uint32(b.BytesPerSector)
	return sector, offset
}
