package cfbfs

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

// EntryType classifies a directory entry.
type EntryType uint8

const (
	Unallocated EntryType = 0
	Directory   EntryType = 1
	Regular     EntryType = 2
	Root        EntryType = 5
)

func entryTypeFromByte(b byte) EntryType {
	switch b {
	case rawObjStorage:
		return Directory
	case rawObjStream:
		return Regular
	case rawObjRoot:
		return Root
	default:
		return Unallocated
	}
}

// DirEntry is a cooked directory entry: a node in the forest of
// red-black trees that makes up a container's directory structure.
type DirEntry struct {
	Type           EntryType
	Name           OleString
	LeftID         uint32
	RightID        uint32
	ChildID        uint32
	StartingSector uint32
	StreamSize     uint64
	CLSID          uuid.UUID
	CreationTime   time.Time
	ModifiedTime   time.Time
}

// decodeRawDirEntry reads the 128-byte on-disk directory entry field by
// field rather than blitting it into a matching Go struct — the wire
// layout is not guaranteed to match Go's struct layout rules, and
// unsafe reinterpretation would hide that assumption.
func decodeRawDirEntry(buf []byte) (name [64]byte, nameSizeBytes uint16, objType byte, leftID, rightID, childID uint32, clsid [16]byte, creationTime, modifiedTime uint64, startingSector uint32, streamSize uint64) {
	copy(name[:], buf[0:64])
	nameSizeBytes = binary.LittleEndian.Uint16(buf[64:66])
	objType = buf[66]
	// buf[67] is the color flag; ignored.
	leftID = binary.LittleEndian.Uint32(buf[68:72])
	rightID = binary.LittleEndian.Uint32(buf[72:76])
	childID = binary.LittleEndian.Uint32(buf[76:80])
	copy(clsid[:], buf[80:96])
	// buf[96:100] is state_bits; ignored.
	creationTime = binary.LittleEndian.Uint64(buf[100:108])
	modifiedTime = binary.LittleEndian.Uint64(buf[108:116])
	startingSector = binary.LittleEndian.Uint32(buf[116:120])
	streamSize = binary.LittleEndian.Uint64(buf[120:128])
	return
}

// isZeroEntry reports whether every byte of a raw 128-byte directory
// entry record is zero, the on-disk marker for an unallocated slot.
func isZeroEntry(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// cookDirEntry decodes one raw 128-byte record into a DirEntry. Any
// OleString constraint violation is returned unchanged and aborts the
// mount.
func cookDirEntry(buf []byte) (DirEntry, error) {
	name, nameSizeBytes, objType, leftID, rightID, childID, clsid, creationTime, modifiedTime, startingSector, streamSize := decodeRawDirEntry(buf)

	ole, err := NewOleStringFromRaw(name[:], int(nameSizeBytes))
	if err != nil {
		return DirEntry{}, err
	}

	return DirEntry{
		Type:           entryTypeFromByte(objType),
		Name:           ole,
		LeftID:         leftID,
		RightID:        rightID,
		ChildID:        childID,
		StartingSector: startingSector,
		StreamSize:     streamSize,
		CLSID:          decodeCLSID(clsid),
		CreationTime:   decodeFiletime(creationTime),
		ModifiedTime:   decodeFiletime(modifiedTime),
	}, nil
}

// decodeCLSID converts the on-disk 16-byte CLSID, stored in Windows
// GUID wire order, into a uuid.UUID. An all-zero CLSID decodes to
// uuid.Nil.
func decodeCLSID(raw [16]byte) uuid.UUID {
	if raw == ([16]byte{}) {
		return uuid.Nil
	}
	var b [16]byte
	b[0], b[1], b[2], b[3] = raw[3], raw[2], raw[1], raw[0]
	b[4], b[5] = raw[5], raw[4]
	b[6], b[7] = raw[7], raw[6]
	copy(b[8:], raw[8:16])
	u, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.Nil
	}
	return u
}

const filetimeTicksPerSecond = 10_000_000
const filetimeToUnixSeconds = 11644473600 // seconds between 1601-01-01 and 1970-01-01

// decodeFiletime converts a Windows FILETIME (100ns ticks since
// 1601-01-01) into a time.Time. A raw value of 0 means "unset" and
// decodes to the zero time.Time, not the 1601 epoch.
func decodeFiletime(ticks uint64) time.Time {
	if ticks == 0 {
		return time.Time{}
	}
	secs := int64(ticks/filetimeTicksPerSecond) - filetimeToUnixSeconds
	nsecs := int64(ticks%filetimeTicksPerSecond) * 100
	return time.Unix(secs, nsecs).UTC()
}
