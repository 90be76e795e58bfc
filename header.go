package cfbfs

import (
	"bytes"
	"encoding/binary"
)

// Header is the decoded and validated 512-byte CFB prologue.
type Header struct {
	Version              Version
	NumDirSectors        uint32
	NumFatSectors        uint32
	FirstDirSector       uint32
	MiniStreamCutoffSize uint32
	FirstMiniFatSector   uint32
	NumMiniFatSectors    uint32
	FirstDifatSector     uint32
	NumDifatSectors      uint32
	InitialDifatEntries  [numDifatEntriesInHeader]uint32
}

// SectorSize returns 1 << sector_shift.
func (h *Header) SectorSize() int {
	return h.Version.SectorSize()
}

// MiniSectorSize returns 1 << mini_sector_shift, always 64.
func (h *Header) MiniSectorSize() int {
	return miniSectorLen
}

// parseHeader decodes and validates the fixed 512-byte prologue,
// enforcing every field constraint in wire order, except that the major
// version is checked before the minor version: the first failing check
// aborts with its own error kind.
func parseHeader(dev Device) (*Header, error) {
	buf, err := readHeaderBlock(dev)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(buf)

	var magic [8]byte
	mustRead(r, &magic)
	if magic != magicNumber {
		return nil, newErr(InvalidSignature, "bad magic number")
	}

	var clsid [16]byte
	mustRead(r, &clsid)
	if clsid != ([16]byte{}) {
		return nil, newErr(InvalidCLSID, "header clsid must be zero")
	}

	var minorVersion, majorVersion uint16
	mustRead(r, &minorVersion)
	mustRead(r, &majorVersion)

	version, err := versionFromMajor(majorVersion)
	if err != nil {
		return nil, newErr(UnsupportedMajorVersion, "%v", err)
	}
	if minorVersion != minorVersionWant {
		return nil, newErr(UnsupportedMinorVersion, "minor version 0x%04x, want 0x%04x", minorVersion, minorVersionWant)
	}

	var byteOrder uint16
	mustRead(r, &byteOrder)
	if byteOrder != byteOrderMarkWant {
		return nil, newErr(WrongByteOrder, "byte order mark 0x%04x, want 0x%04x", byteOrder, byteOrderMarkWant)
	}

	var sectorShift, miniSectorShift uint16
	mustRead(r, &sectorShift)
	if sectorShift != version.SectorShift() {
		return nil, newErr(InvalidSectorShift, "sector shift %d does not match %v", sectorShift, version)
	}

	mustRead(r, &miniSectorShift)
	if miniSectorShift != miniSectorShiftWant {
		return nil, newErr(InvalidMiniSectorShift, "mini sector shift %d, want %d", miniSectorShift, miniSectorShiftWant)
	}

	var reserved [6]byte
	mustRead(r, &reserved)
	if reserved != ([6]byte{}) {
		return nil, newErr(InvalidReservedField, "reserved field must be zero")
	}

	var numDirSectors, numFatSectors, firstDirSector, transactionSignature uint32
	mustRead(r, &numDirSectors)
	mustRead(r, &numFatSectors)
	mustRead(r, &firstDirSector)
	mustRead(r, &transactionSignature)

	if version == Version3 && numDirSectors != 0 {
		return nil, newErr(InvalidNumberOfDirectorySectors, "v3 requires num_dir_sectors == 0, got %d", numDirSectors)
	}

	var miniStreamCutoff uint32
	mustRead(r, &miniStreamCutoff)
	if miniStreamCutoff != miniStreamCutoffWant {
		return nil, newErr(InvalidMiniCutoff, "mini stream cutoff 0x%x, want 0x%x", miniStreamCutoff, miniStreamCutoffWant)
	}

	var firstMiniFatSector, numMiniFatSectors, firstDifatSector, numDifatSectors uint32
	mustRead(r, &firstMiniFatSector)
	mustRead(r, &numMiniFatSectors)
	mustRead(r, &firstDifatSector)
	mustRead(r, &numDifatSectors)

	if (firstMiniFatSector == endOfChain) != (numMiniFatSectors == 0) {
		return nil, newErr(MiniFatHeaderInconsistent, "first_mini_fat_sector=%#x but num_mini_fat_sectors=%d", firstMiniFatSector, numMiniFatSectors)
	}

	var difat [numDifatEntriesInHeader]uint32
	if err := binary.Read(r, binary.LittleEndian, &difat); err != nil {
		return nil, wrapIO(err)
	}

	return &Header{
		Version:              version,
		NumDirSectors:        numDirSectors,
		NumFatSectors:        numFatSectors,
		FirstDirSector:       firstDirSector,
		MiniStreamCutoffSize: miniStreamCutoff,
		FirstMiniFatSector:   firstMiniFatSector,
		NumMiniFatSectors:    numMiniFatSectors,
		FirstDifatSector:     firstDifatSector,
		NumDifatSectors:      numDifatSectors,
		InitialDifatEntries:  difat,
	}, nil
}

func readHeaderBlock(dev Device) ([]byte, error) {
	buf := make([]byte, headerLen)
	if err := dev.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// mustRead panics on failure; it is only ever used against a
// bytes.Reader already sized to hold the full header, so a short read
// here means our own offset bookkeeping is wrong, not a caller error.
func mustRead(r *bytes.Reader, v interface{}) {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}
