package cfbfs

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/google/uuid"
)

// imageBuilder assembles a synthetic CFB byte image sector by sector,
// so tests never need on-disk fixtures.
type imageBuilder struct {
	sectorSize int
	sectors    map[uint32][]byte
	next       uint32
}

func newImageBuilder(sectorSize int) *imageBuilder {
	return &imageBuilder{sectorSize: sectorSize, sectors: map[uint32][]byte{}}
}

// alloc reserves the next sector id and returns its zero-initialized
// backing buffer for the caller to fill in.
func (b *imageBuilder) alloc() (uint32, []byte) {
	id := b.next
	b.next++
	buf := make([]byte, b.sectorSize)
	b.sectors[id] = buf
	return id, buf
}

func (b *imageBuilder) build(header []byte) []byte {
	total := len(header) + int(b.next)*b.sectorSize
	out := make([]byte, total)
	copy(out, header)
	for i := uint32(0); i < b.next; i++ {
		copy(out[len(header)+int(i)*b.sectorSize:], b.sectors[i])
	}
	return out
}

func fillFree(buf []byte) {
	for i := 0; i+4 <= len(buf); i += 4 {
		binary.LittleEndian.PutUint32(buf[i:], freeSect)
	}
}

func writeFATEntries(buf []byte, entries map[uint32]uint32) {
	fillFree(buf)
	for idx, val := range entries {
		binary.LittleEndian.PutUint32(buf[idx*4:], val)
	}
}

type headerOpts struct {
	minorVersion         uint16
	majorVersion         uint16
	byteOrder            uint16
	sectorShift          uint16
	miniSectorShift      uint16
	numDirSectors        uint32
	numFatSectors        uint32
	firstDirSector       uint32
	miniStreamCutoff     uint32
	firstMiniFatSector   uint32
	numMiniFatSectors    uint32
	firstDifatSector     uint32
	numDifatSectors      uint32
	difat                []uint32
	corruptMagic         bool
	corruptClsid         bool
	reservedNonZero      bool
}

func defaultHeaderOpts() headerOpts {
	return headerOpts{
		minorVersion:       minorVersionWant,
		majorVersion:       3,
		byteOrder:          byteOrderMarkWant,
		sectorShift:        9,
		miniSectorShift:    6,
		miniStreamCutoff:   miniStreamCutoffWant,
		firstMiniFatSector: endOfChain,
		numMiniFatSectors:  0,
		firstDifatSector:   endOfChain,
		numDifatSectors:    0,
	}
}

func buildHeader(o headerOpts) []byte {
	h := make([]byte, headerLen)
	if o.corruptMagic {
		copy(h[0:8], []byte{0, 1, 2, 3, 4, 5, 6, 7})
	} else {
		copy(h[0:8], magicNumber[:])
	}
	if o.corruptClsid {
		h[8] = 0xff
	}
	binary.LittleEndian.PutUint16(h[24:], o.minorVersion)
	binary.LittleEndian.PutUint16(h[26:], o.majorVersion)
	binary.LittleEndian.PutUint16(h[28:], o.byteOrder)
	binary.LittleEndian.PutUint16(h[30:], o.sectorShift)
	binary.LittleEndian.PutUint16(h[32:], o.miniSectorShift)
	if o.reservedNonZero {
		h[34] = 1
	}
	binary.LittleEndian.PutUint32(h[40:], o.numDirSectors)
	binary.LittleEndian.PutUint32(h[44:], o.numFatSectors)
	binary.LittleEndian.PutUint32(h[48:], o.firstDirSector)
	binary.LittleEndian.PutUint32(h[56:], o.miniStreamCutoff)
	binary.LittleEndian.PutUint32(h[60:], o.firstMiniFatSector)
	binary.LittleEndian.PutUint32(h[64:], o.numMiniFatSectors)
	binary.LittleEndian.PutUint32(h[68:], o.firstDifatSector)
	binary.LittleEndian.PutUint32(h[72:], o.numDifatSectors)

	for i := 0; i < numDifatEntriesInHeader; i++ {
		v := freeSect
		if i < len(o.difat) {
			v = o.difat[i]
		}
		binary.LittleEndian.PutUint32(h[76+i*4:], v)
	}
	return h
}

func encodeDirEntry(name string, objType byte, left, right, child, startingSector uint32, streamSize uint64) []byte {
	buf := make([]byte, dirEntryLen)
	binary.LittleEndian.PutUint32(buf[68:], left)
	binary.LittleEndian.PutUint32(buf[72:], right)
	binary.LittleEndian.PutUint32(buf[76:], child)
	binary.LittleEndian.PutUint32(buf[116:], startingSector)
	binary.LittleEndian.PutUint64(buf[120:], streamSize)
	buf[66] = objType
	buf[67] = 1

	if name == "" {
		binary.LittleEndian.PutUint16(buf[64:], 0)
		return buf
	}
	units := utf16.Encode([]rune(name))
	units = append(units, 0)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	binary.LittleEndian.PutUint16(buf[64:], uint16(len(units)*2))
	return buf
}

// setDirEntryCLSID stamps a raw directory entry's CLSID field with u,
// applying the on-disk GUID byte order (the same field-reversal
// decodeCLSID undoes), so tests can build a fixture with a known CLSID
// rather than only exercising the all-zero case.
func setDirEntryCLSID(buf []byte, u uuid.UUID) {
	b := [16]byte(u)
	var raw [16]byte
	raw[0], raw[1], raw[2], raw[3] = b[3], b[2], b[1], b[0]
	raw[4], raw[5] = b[5], b[4]
	raw[6], raw[7] = b[7], b[6]
	copy(raw[8:], b[8:16])
	copy(buf[80:96], raw[:])
}

// minimalV3Image builds the smallest possible valid v3
// container: one directory sector holding only the root entry (empty,
// no children, no mini-stream), and one FAT sector.
func minimalV3Image() []byte {
	b := newImageBuilder(512)

	dirID, dirBuf := b.alloc()
	copy(dirBuf[0:dirEntryLen], encodeDirEntry("Root Entry", rawObjRoot, noStream, noStream, noStream, endOfChain, 0))

	fatID, fatBuf := b.alloc()
	writeFATEntries(fatBuf, map[uint32]uint32{
		dirID: endOfChain,
		fatID: fatSectSentinel,
	})

	o := defaultHeaderOpts()
	o.firstDirSector = dirID
	o.numFatSectors = 1
	o.difat = []uint32{fatID}
	header := buildHeader(o)

	return b.build(header)
}

// mountableTreeImage builds a Root/Dir/Leaf container where Leaf is a
// small regular stream backed entirely by the mini-stream, exercising
// the full mount path: DIFAT, FAT, directory tree, MiniFAT and the
// root entry's own regular chain that backs it. The single MiniFAT
// sector holds one real (non-FREESECT) entry and 127 FREESECT-padded
// tail slots, the normal case for a MiniFAT allocated in whole
// sectors: loadMiniFAT must drop the padding before comparing lengths.
func mountableTreeImage() []byte {
	b := newImageBuilder(512)

	dirID, dirBuf := b.alloc()
	fatID, fatBuf := b.alloc()

	const miniPerSector = 512 / miniSectorLen // 8
	const numMiniSectorsUsed = 1
	numRootChainSectors := (numMiniSectorsUsed + miniPerSector - 1) / miniPerSector

	rootChainIDs := make([]uint32, numRootChainSectors)
	for i := range rootChainIDs {
		id, buf := b.alloc()
		rootChainIDs[i] = id
		if i == 0 {
			copy(buf[0:5], []byte("hello"))
		}
	}

	minifatID, minifatBuf := b.alloc()
	fillFree(minifatBuf)
	binary.LittleEndian.PutUint32(minifatBuf[0:4], endOfChain)

	copy(dirBuf[0*dirEntryLen:], encodeDirEntry("Root Entry", rawObjRoot, noStream, noStream, 1, rootChainIDs[0], uint64(numMiniSectorsUsed*miniSectorLen)))
	copy(dirBuf[1*dirEntryLen:], encodeDirEntry("Dir", rawObjStorage, noStream, noStream, 2, noStream, 0))
	copy(dirBuf[2*dirEntryLen:], encodeDirEntry("Leaf", rawObjStream, noStream, noStream, noStream, 0, 5))

	fatEntries := map[uint32]uint32{
		dirID:     endOfChain,
		fatID:     fatSectSentinel,
		minifatID: endOfChain,
	}
	for i, id := range rootChainIDs {
		if i == len(rootChainIDs)-1 {
			fatEntries[id] = endOfChain
		} else {
			fatEntries[id] = rootChainIDs[i+1]
		}
	}
	writeFATEntries(fatBuf, fatEntries)

	o := defaultHeaderOpts()
	o.firstDirSector = dirID
	o.numFatSectors = 1
	o.difat = []uint32{fatID}
	o.firstMiniFatSector = minifatID
	o.numMiniFatSectors = 1
	header := buildHeader(o)

	return b.build(header)
}

// regularStreamImage builds a Root/Big container where Big is a
// regular stream at or above the mini-stream cutoff, stored directly
// in the FAT chain rather than the mini-stream.
func regularStreamImage(payload []byte) []byte {
	b := newImageBuilder(512)

	dirID, dirBuf := b.alloc()
	fatID, fatBuf := b.alloc()

	numDataSectors := (len(payload) + 511) / 512
	if numDataSectors == 0 {
		numDataSectors = 1
	}
	dataIDs := make([]uint32, numDataSectors)
	for i := range dataIDs {
		id, buf := b.alloc()
		dataIDs[i] = id
		start := i * 512
		end := start + 512
		if end > len(payload) {
			end = len(payload)
		}
		if start < len(payload) {
			copy(buf, payload[start:end])
		}
	}

	copy(dirBuf[0*dirEntryLen:], encodeDirEntry("Root Entry", rawObjRoot, noStream, noStream, 1, endOfChain, 0))
	copy(dirBuf[1*dirEntryLen:], encodeDirEntry("Big", rawObjStream, noStream, noStream, noStream, dataIDs[0], uint64(len(payload))))

	fatEntries := map[uint32]uint32{
		dirID: endOfChain,
		fatID: fatSectSentinel,
	}
	for i, id := range dataIDs {
		if i == len(dataIDs)-1 {
			fatEntries[id] = endOfChain
		} else {
			fatEntries[id] = dataIDs[i+1]
		}
	}
	writeFATEntries(fatBuf, fatEntries)

	o := defaultHeaderOpts()
	o.firstDirSector = dirID
	o.numFatSectors = 1
	o.difat = []uint32{fatID}
	header := buildHeader(o)

	return b.build(header)
}

func newDevice(buf []byte) Device {
	return NewDevice(bytes.NewReader(buf))
}
