package cfbfs

// Wire-format constants for the CFB container format. Offsets and
// sentinels are named after their role, not their bit pattern.
const (
	headerLen               = 512 // length of the CFB header, in bytes
	dirEntryLen             = 128 // length of one directory entry, in bytes
	numDifatEntriesInHeader = 109
	miniSectorLen           = 64 // fixed mini-sector size
)

// magicNumber is the fixed 8-byte CFB signature at offset 0.
var magicNumber = [8]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

const (
	minorVersionWant     uint16 = 0x003e
	byteOrderMarkWant    uint16 = 0xfffe
	miniSectorShiftWant  uint16 = 6
	miniStreamCutoffWant uint32 = 0x1000
)

// Reserved sector-ID sentinels shared by the FAT, MiniFAT and DIFAT.
const (
	freeSect         uint32 = 0xffffffff
	endOfChain       uint32 = 0xfffffffe
	fatSectSentinel  uint32 = 0xfffffffd
	difSectSentinel  uint32 = 0xfffffffc
	maxRegularSector uint32 = 0xfffffffa
)

// noStream marks a missing directory-tree link.
const noStream uint32 = 0xffffffff

// On-disk object type tags for a directory entry.
const (
	rawObjUnallocated byte = 0
	rawObjStorage     byte = 1
	rawObjStream      byte = 2
	rawObjRoot        byte = 5
)

// Forbidden code units in an OLE name.
const (
	charSlash     = 0x002f // '/'
	charBackslash = 0x005c // '\\'
	charColon     = 0x003a // ':'
	charBang      = 0x0021 // '!'
)

const maxNameCodePoints = 31

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
