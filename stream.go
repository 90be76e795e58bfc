package cfbfs

import "io"

// Stream is an io.ReadSeeker over a regular entry's payload. It
// dispatches to the FAT chain or the mini-FAT chain depending on
// whether the entry's size is below the header's mini-stream cutoff.
type Stream struct {
	fs       *Filesystem
	size     uint64
	pos      uint64
	useMini  bool
	chainIDs []uint32 // regular sector ids, or mini-sector ids when useMini
}

func (fs *Filesystem) openStream(entry DirEntry) (*Stream, error) {
	useMini := entry.StreamSize < uint64(fs.header.MiniStreamCutoffSize)

	var chainIDs []uint32
	var err error
	if useMini {
		chainIDs, err = followChain(fs.minifat, entry.StartingSector)
	} else {
		chainIDs, err = followChain(fs.fat, entry.StartingSector)
	}
	if err != nil {
		return nil, err
	}

	return &Stream{
		fs:       fs,
		size:     entry.StreamSize,
		useMini:  useMini,
		chainIDs: chainIDs,
	}, nil
}

// Size returns the total stream length in bytes.
func (s *Stream) Size() uint64 {
	return s.size
}

func (s *Stream) unitLen() uint64 {
	if s.useMini {
		return uint64(miniSectorLen)
	}
	return uint64(s.fs.header.SectorSize())
}

// offsetOf translates a byte offset into a device file offset, routing
// through the root entry's regular sector chain when reading from the
// mini-stream.
func (s *Stream) offsetOf(byteOffset uint64) (int64, error) {
	unitLen := s.unitLen()
	unitIndex := byteOffset / unitLen
	within := int64(byteOffset % unitLen)

	if unitIndex >= uint64(len(s.chainIDs)) {
		return 0, newErr(CorruptedFile, "stream offset %d beyond its chain", byteOffset)
	}
	unitID := s.chainIDs[unitIndex]

	if !s.useMini {
		return sectorOffset(unitID, s.fs.header.SectorSize()) + within, nil
	}

	sectorSize := s.fs.header.SectorSize()
	miniPerSector := uint32(sectorSize / miniSectorLen)
	rootChainIdx := unitID / miniPerSector
	subIdx := unitID % miniPerSector
	if int(rootChainIdx) >= len(s.fs.rootChain) {
		return 0, newErr(CorruptedFile, "mini-sector %d beyond root stream chain", unitID)
	}
	rootSectorID := s.fs.rootChain[rootChainIdx]
	return sectorOffset(rootSectorID, sectorSize) + int64(subIdx)*miniSectorLen + within, nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	if s.pos >= s.size {
		return 0, io.EOF
	}

	remaining := s.size - s.pos
	toRead := uint64(len(p))
	if toRead > remaining {
		toRead = remaining
	}

	unitLen := s.unitLen()
	total := 0
	for uint64(total) < toRead {
		off, err := s.offsetOf(s.pos)
		if err != nil {
			return total, err
		}
		withinUnit := s.pos % unitLen
		chunk := unitLen - withinUnit
		remainingWant := toRead - uint64(total)
		if chunk > remainingWant {
			chunk = remainingWant
		}

		dst := p[total : uint64(total)+chunk]
		if err := s.fs.device.ReadAt(dst, off); err != nil {
			return total, err
		}

		total += int(chunk)
		s.pos += chunk
	}

	return total, nil
}

// Seek implements io.Seeker within [0, size]: a target outside that
// range returns an error and leaves the position unchanged.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(s.pos) + offset
	case io.SeekEnd:
		newPos = int64(s.size) + offset
	default:
		return 0, newErr(CorruptedFile, "invalid whence %d", whence)
	}

	if newPos < 0 || newPos > int64(s.size) {
		return 0, newErr(CorruptedFile, "seek offset %d out of range [0, %d]", newPos, s.size)
	}

	s.pos = uint64(newPos)
	return newPos, nil
}
