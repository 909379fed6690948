package fat32

import (
	"strings"
	"time"

	"github.com/go-restruct/restruct"
	"github.com/soypat/pi3kernel/internal/utf16x"
	"golang.org/x/text/encoding/charmap"
)

const (
	dirEntrySize = 32

	attrReadOnly  = 0x01
	attrHidden    = 0x02
	attrSystem    = 0x04
	attrVolumeID  = 0x08
	attrDirectory = 0x10
	attrArchive   = 0x20
	attrLongName  = attrReadOnly | attrHidden | attrSystem | attrVolumeID

	deletedMarker = 0xE5
	freeRestMarker = 0x00
	lastLongFlag   = 0x40
)

// Attributes mirrors the DOS attribute byte of a short directory entry.
type Attributes uint8

func (a Attributes) ReadOnly() bool  { return a&attrReadOnly != 0 }
func (a Attributes) Hidden() bool    { return a&attrHidden != 0 }
func (a Attributes) System() bool    { return a&attrSystem != 0 }
func (a Attributes) Directory() bool { return a&attrDirectory != 0 }
func (a Attributes) Archive() bool   { return a&attrArchive != 0 }

// shortEntry is the on-disk 32-byte 8.3 directory entry.
type shortEntry struct {
	Name           [11]byte
	Attr           byte
	NTRes          byte
	CreateTimeTenth byte
	CreateTime     uint16
	CreateDate     uint16
	LastAccessDate uint16
	ClusterHi      uint16
	WriteTime      uint16
	WriteDate      uint16
	ClusterLo      uint16
	FileSize       uint32
}

// longEntry is one 32-byte segment of a Long File Name chain.
type longEntry struct {
	Order     byte
	Name1     [10]byte // 5 UTF-16 code units
	Attr      byte
	Type      byte
	Checksum  byte
	Name2     [12]byte // 6 UTF-16 code units
	ClusterLo uint16
	Name3     [4]byte // 2 UTF-16 code units
}

// Entry is a decoded directory entry: a short (8.3) name with its
// assembled long name, if one preceded it in the directory stream.
type Entry struct {
	Name       string
	ShortName  string
	Attr       Attributes
	Size       uint32
	Cluster    uint32
	Created    time.Time
	Modified   time.Time
	IsDir      bool
}

func fatDateTime(date, t uint16) time.Time {
	if date == 0 {
		return time.Time{}
	}
	year := 1980 + int(date>>9)
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	hour := int(t >> 11)
	min := int((t >> 5) & 0x3F)
	sec := int(t&0x1F) * 2
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}

func decodeShortName(raw [11]byte) string {
	base := strings.TrimRight(string(raw[:8]), " \x00")
	ext := strings.TrimRight(string(raw[8:11]), " \x00")
	decoded, err := charmap.CodePage437.NewDecoder().String(base)
	if err == nil {
		base = decoded
	}
	if ext == "" {
		return base
	}
	decodedExt, err := charmap.CodePage437.NewDecoder().String(ext)
	if err == nil {
		ext = decodedExt
	}
	return base + "." + ext
}

// parseDirBlock decodes a contiguous run of 32-byte directory entries
// (typically one cluster's worth), reassembling any preceding LFN
// segments into their owning short entry.
func parseDirBlock(block []byte) ([]Entry, error) {
	var entries []Entry
	var lfnParts []longEntry // accumulated in on-disk order (highest ordinal first)

	for off := 0; off+dirEntrySize <= len(block); off += dirEntrySize {
		raw := block[off : off+dirEntrySize]
		if raw[0] == freeRestMarker {
			break // no further entries in this directory
		}
		if raw[0] == deletedMarker {
			lfnParts = nil
			continue
		}
		attr := raw[11]
		if attr&attrLongName == attrLongName {
			var le longEntry
			if err := restruct.Unpack(raw, order, &le); err != nil {
				return nil, err
			}
			lfnParts = append(lfnParts, le)
			continue
		}

		var se shortEntry
		if err := restruct.Unpack(raw, order, &se); err != nil {
			return nil, err
		}
		if se.Attr&attrVolumeID != 0 {
			lfnParts = nil
			continue
		}

		shortName := decodeShortName(se.Name)
		name := shortName
		if len(lfnParts) > 0 {
			if long, ok := reassembleLongName(lfnParts); ok {
				name = long
			}
		}
		lfnParts = nil

		entries = append(entries, Entry{
			Name:      name,
			ShortName: shortName,
			Attr:      Attributes(se.Attr),
			Size:      se.FileSize,
			Cluster:   (uint32(se.ClusterHi)<<16 | uint32(se.ClusterLo)) & clusterMask28,
			Created:   fatDateTime(se.CreateDate, se.CreateTime),
			Modified:  fatDateTime(se.WriteDate, se.WriteTime),
			IsDir:     se.Attr&attrDirectory != 0,
		})
	}
	return entries, nil
}

// reassembleLongName decodes the UTF-16 segments of an LFN chain,
// ordered by descending ordinal as FAT32 stores them on disk, into a
// single UTF-8 string.
func reassembleLongName(parts []longEntry) (string, bool) {
	ordered := make([]longEntry, len(parts))
	copy(ordered, parts)
	// FAT32 stores segments with the highest ordinal (last | 0x40) first.
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	var utf16le []byte
	for _, p := range ordered {
		utf16le = append(utf16le, p.Name1[:]...)
		utf16le = append(utf16le, p.Name2[:]...)
		utf16le = append(utf16le, p.Name3[:]...)
	}

	dst := make([]byte, len(utf16le)*2)
	n, err := utf16x.ToUTF8(dst, utf16le, order)
	if err != nil {
		return "", false
	}
	name := string(dst[:n])
	// Strip the UTF-16 NUL terminator and any 0xFFFF padding it trails.
	if idx := strings.IndexByte(name, 0); idx >= 0 {
		name = name[:idx]
	}
	return name, true
}
