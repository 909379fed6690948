// Package fat32 implements read-only access to FAT32 volumes: MBR
// partition discovery, BIOS Parameter Block parsing, FAT entry chain
// traversal and directory/file access with long file name support.
package fat32

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/soypat/pi3kernel/internal/blockdev"
)

const (
	bootstrapLen    = 440
	uniqueDiskIDOff = bootstrapLen
	uniqueDiskIDLen = 4
	reservedLen     = 2
	pteOffset       = bootstrapLen + uniqueDiskIDLen + reservedLen
	pteLen          = 16
	bootSignatureOff = 510

	// BootSignature is the magic value a valid MBR's final word holds.
	BootSignature = 0xAA55
)

// BadSignature is returned when a boot sector's final word is not the
// 0x55AA signature every valid MBR carries.
var BadSignature = errors.New("fat32: missing 0x55AA boot signature")

// UnknownBootIndicator reports that partition table entry idx's boot
// indicator byte is neither 0x00 (not bootable) nor 0x80 (bootable).
func UnknownBootIndicator(idx int) error {
	return fmt.Errorf("fat32: partition %d has unknown boot indicator", idx)
}

// MBR is a Master Boot Record: bootstrap code, four partition table
// entries and a boot signature.
type MBR struct {
	data []byte
}

// ReadMBR reads physical sector 0 of dev and parses it as a Master
// Boot Record.
func ReadMBR(dev blockdev.BlockDevice) (MBR, error) {
	sector := make([]byte, 512)
	n, err := dev.ReadSector(0, sector)
	if err != nil {
		return MBR{}, err
	}
	if n < 512 {
		return MBR{}, io.ErrUnexpectedEOF
	}
	return ParseMBR(sector)
}

// ParseMBR interprets the first 512 bytes of start as a Master Boot
// Record. It checks the trailing 0x55AA signature first, then every
// partition table entry's boot indicator.
func ParseMBR(start []byte) (MBR, error) {
	if len(start) < 512 {
		return MBR{}, io.ErrUnexpectedEOF
	}
	m := MBR{data: start[:512:512]}
	if !m.Valid() {
		return MBR{}, BadSignature
	}
	for i := 0; i < 4; i++ {
		pe := m.Partition(i)
		attrs := pe.Attributes()
		if attrs != 0 && attrs != driveAttrsBootable {
			return MBR{}, UnknownBootIndicator(i)
		}
	}
	return m, nil
}

func (m *MBR) BootSignature() uint16 {
	return binary.LittleEndian.Uint16(m.data[bootSignatureOff : bootSignatureOff+2])
}

func (m *MBR) Valid() bool { return m.BootSignature() == BootSignature }

func (m *MBR) UniqueDiskID() uint32 {
	return binary.LittleEndian.Uint32(m.data[uniqueDiskIDOff : uniqueDiskIDOff+uniqueDiskIDLen])
}

// Partition is the idx'th partition table entry of the MBR, idx in [0,3].
func (m *MBR) Partition(idx int) PartitionEntry {
	if idx > 3 || idx < 0 {
		panic("fat32: invalid partition table index")
	}
	var pe PartitionEntry
	copy(pe.data[:], m.data[pteOffset+idx*pteLen:pteOffset+(idx+1)*pteLen])
	return pe
}

// FindFAT32 returns the first partition table entry whose type marks
// it as a FAT32 volume, and its index, or ok=false if none exists.
func (m *MBR) FindFAT32() (pe PartitionEntry, idx int, ok bool) {
	for i := 0; i < 4; i++ {
		p := m.Partition(i)
		switch p.Type() {
		case PartitionTypeFAT32CHS, PartitionTypeFAT32LBA:
			return p, i, true
		}
	}
	return PartitionEntry{}, 0, false
}

// PartitionEntry describes one of the four MBR partition table entries.
type PartitionEntry struct {
	data [pteLen]byte
}

func (pe *PartitionEntry) Attributes() DriveAttributes { return DriveAttributes(pe.data[0]) }

func (pe *PartitionEntry) Type() PartitionType { return PartitionType(pe.data[4]) }

// StartLBA is the partition's starting sector, as a logical block address.
func (pe *PartitionEntry) StartLBA() uint32 {
	return binary.LittleEndian.Uint32(pe.data[8:12])
}

// NumberOfSectors is the partition's length in sectors.
func (pe *PartitionEntry) NumberOfSectors() uint32 {
	return binary.LittleEndian.Uint32(pe.data[12:16])
}

// DriveAttributes is the first byte of a partition table entry; it
// signals whether the partition is marked bootable.
type DriveAttributes byte

const driveAttrsBootable DriveAttributes = 0x80

func (attrs DriveAttributes) IsBootable() bool { return attrs&driveAttrsBootable != 0 }

// PartitionType identifies the filesystem a partition table entry holds.
type PartitionType byte

const (
	PartitionTypeUnused   PartitionType = 0x00
	PartitionTypeFAT12    PartitionType = 0x01
	PartitionTypeFAT16    PartitionType = 0x04
	PartitionTypeExtended PartitionType = 0x05
	PartitionTypeNTFS     PartitionType = 0x07
	PartitionTypeFAT32CHS PartitionType = 0x0B
	PartitionTypeFAT32LBA PartitionType = 0x0C
	PartitionTypeLinux    PartitionType = 0x83
)
