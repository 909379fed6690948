// Package blockdev provides a sector-addressed, write-back-in-RAM cache
// in front of a raw block device, plus the partition-aware virtual to
// physical sector mapping the FAT32 reader runs on top of.
//
// The BlockDevice interface mirrors the one the teacher package
// (github.com/soypat/fat) declares for its own block devices
// (ReadBlocks/WriteBlocks/EraseBlocks over an lba), adapted to the
// read/write-sector shape this spec's cache needs.
package blockdev

import (
	"io"
)

// BlockDevice is the raw, uncached storage contract. A read returning
// 0 indicates end of device.
type BlockDevice interface {
	SectorSize() uint32
	ReadSector(n uint64, buf []byte) (int, error)
	WriteSector(n uint64, buf []byte) (int, error)
}

// Partition describes where, in physical sectors, a logical partition
// begins and how large its logical sector is.
type Partition struct {
	// Start is the physical sector at which the partition begins.
	Start uint64
	// SectorSize is the size, in bytes, of one logical sector in the
	// partition. Must be an integer multiple of the device's sector
	// size.
	SectorSize uint64
}

type cacheEntry struct {
	data  []byte
	dirty bool
}

// CachedDevice transparently caches sectors from an underlying
// BlockDevice, growing monotonically — there is no eviction, matching
// a read-mostly, boot-then-mount filesystem. Write-back to the
// underlying device is intentionally unimplemented: this filesystem is
// read-only, and the dirty flag exists only for a future flush pass.
type CachedDevice struct {
	device    BlockDevice
	cache     map[uint64]*cacheEntry
	partition Partition
}

// New constructs a CachedDevice over device, logically sectored per
// partition. It panics if partition.SectorSize is smaller than the
// device's native sector size — that precondition violation is a fatal
// initialization error, not a recoverable one.
func New(device BlockDevice, partition Partition) *CachedDevice {
	if partition.SectorSize < uint64(device.SectorSize()) {
		panic("blockdev: partition sector size smaller than device sector size")
	}
	return &CachedDevice{
		device:    device,
		cache:     make(map[uint64]*cacheEntry),
		partition: partition,
	}
}

// SectorSize returns the partition's logical sector size. Reads of
// sectors before the partition start are the device's native sector
// size instead; see virtualToPhysical.
func (c *CachedDevice) SectorSize() uint32 { return uint32(c.partition.SectorSize) }

// virtualToPhysical maps a request for logical sector virt to the
// physical sector and count of consecutive physical sectors backing
// it. Sectors before the partition start map 1:1 to the device's
// native sectors.
func (c *CachedDevice) virtualToPhysical(virt uint64) (phys uint64, count uint64) {
	if virt < c.partition.Start {
		return virt, 1
	}
	factor := c.partition.SectorSize / uint64(c.device.SectorSize())
	logicalOffset := virt - c.partition.Start
	physicalOffset := logicalOffset * factor
	return c.partition.Start + physicalOffset, factor
}

func (c *CachedDevice) ensure(sector uint64) error {
	if _, ok := c.cache[sector]; ok {
		return nil
	}

	phys, count := c.virtualToPhysical(sector)
	nativeSize := int(c.device.SectorSize())
	data := make([]byte, 0, int(count)*nativeSize)
	chunk := make([]byte, nativeSize)
	for i := uint64(0); i < count; i++ {
		n, err := c.device.ReadSector(phys+i, chunk)
		if err != nil {
			return err
		}
		if n != nativeSize {
			return io.ErrUnexpectedEOF
		}
		data = append(data, chunk...)
	}

	c.cache[sector] = &cacheEntry{data: data}
	return nil
}

// Get returns the cached bytes of sector, reading through to the
// device on first access.
func (c *CachedDevice) Get(sector uint64) ([]byte, error) {
	if err := c.ensure(sector); err != nil {
		return nil, err
	}
	return c.cache[sector].data, nil
}

// GetMut returns a mutable view of sector's cached bytes and marks the
// entry dirty, on the assumption the caller is about to write into it.
func (c *CachedDevice) GetMut(sector uint64) ([]byte, error) {
	if err := c.ensure(sector); err != nil {
		return nil, err
	}
	entry := c.cache[sector]
	entry.dirty = true
	return entry.data, nil
}

// ReadSector copies the cached contents of sector n into buf, reading
// through to the device on first access.
func (c *CachedDevice) ReadSector(n uint64, buf []byte) (int, error) {
	data, err := c.Get(n)
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

// WriteSector overwrites sector n's cached contents with buf and marks
// it dirty. buf must be at least SectorSize() bytes, or
// io.ErrUnexpectedEOF is returned — the same convention ensure uses
// for a short read off the underlying device.
func (c *CachedDevice) WriteSector(n uint64, buf []byte) (int, error) {
	if len(buf) < int(c.SectorSize()) {
		return 0, io.ErrUnexpectedEOF
	}
	data, err := c.GetMut(n)
	if err != nil {
		return 0, err
	}
	return copy(data, buf), nil
}
