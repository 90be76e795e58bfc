package cfbfs

import "encoding/binary"

// loadFAT walks the DIFAT (the header's 109 inline entries plus its
// overflow chain) to discover every FAT sector id, then reads those
// sectors into one flat FAT vector.
func loadFAT(dev Device, h *Header) (fat []uint32, fatSectorIDs []uint32, difatSectorIDs []uint32, err error) {
	sectorSize := h.SectorSize()

	candidates := make([]uint32, 0, len(h.InitialDifatEntries))
	for _, id := range h.InitialDifatEntries {
		if id != freeSect {
			candidates = append(candidates, id)
		}
	}

	seen := make(map[uint32]bool)
	current := h.FirstDifatSector
	for current != endOfChain {
		if seen[current] {
			return nil, nil, nil, newErr(CorruptedFile, "DIFAT chain contains duplicate sector %d", current)
		}
		seen[current] = true
		difatSectorIDs = append(difatSectorIDs, current)

		sector, ioErr := readSector(dev, current, sectorSize)
		if ioErr != nil {
			return nil, nil, nil, ioErr
		}

		// Every slot in the sector, including the last, is a candidate
		// FAT sector id if it isn't FREESECT. The next DIFAT sector is
		// then whatever ends up last in that merged list, popped off —
		// normally the sector's own last slot, but if that slot happens
		// to be FREESECT the pop instead reaches back and reclaims an
		// earlier legitimate FAT-sector id as the chain pointer. This
		// mirrors the on-disk format's own ambiguity rather than fixing
		// it, since callers depend on decoding malformed containers the
		// same way other readers of this format do.
		entriesPerSector := sectorSize / 4
		for i := 0; i < entriesPerSector; i++ {
			id := binary.LittleEndian.Uint32(sector[i*4 : i*4+4])
			if id != freeSect {
				candidates = append(candidates, id)
			}
		}

		if len(candidates) == 0 {
			return nil, nil, nil, newErr(CorruptedFile, "DIFAT sector %d has no next-sector pointer", current)
		}
		current = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}

	if uint32(len(candidates)) != h.NumFatSectors {
		return nil, nil, nil, newErr(CorruptedFile, "DIFAT lists %d FAT sectors, header declares %d", len(candidates), h.NumFatSectors)
	}

	fat = make([]uint32, 0, len(candidates)*sectorSize/4)
	for _, sectorID := range candidates {
		sector, ioErr := readSector(dev, sectorID, sectorSize)
		if ioErr != nil {
			return nil, nil, nil, ioErr
		}
		for i := 0; i < sectorSize/4; i++ {
			fat = append(fat, binary.LittleEndian.Uint32(sector[i*4:i*4+4]))
		}
	}

	return fat, candidates, difatSectorIDs, nil
}

// followChain walks a FAT-shaped allocation table from startID,
// returning the ordered list of sector ids in the chain. A repeated
// sector id means a cyclic chain, which is corruption.
func followChain(table []uint32, startID uint32) ([]uint32, error) {
	ids := make([]uint32, 0)
	seen := make(map[uint32]bool)
	current := startID
	for current != endOfChain {
		if current >= uint32(len(table)) {
			return nil, newErr(CorruptedFile, "chain references out-of-range sector %d", current)
		}
		if seen[current] {
			return nil, newErr(CorruptedFile, "chain contains duplicate sector %d", current)
		}
		seen[current] = true
		ids = append(ids, current)
		current = table[current]
	}
	return ids, nil
}
