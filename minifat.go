package cfbfs

import "encoding/binary"

// loadMiniFAT follows the FAT chain from h.FirstMiniFatSector, reading
// its sectors as a flat table of 32-bit entries and, unlike loadFAT,
// dropping every FREESECT entry. Its length must equal the root entry's
// stream size divided by the mini-sector size.
func loadMiniFAT(dev Device, h *Header, fat []uint32, root DirEntry) ([]uint32, error) {
	sectorIDs, err := followChain(fat, h.FirstMiniFatSector)
	if err != nil {
		return nil, err
	}

	sectorSize := h.SectorSize()
	minifat := make([]uint32, 0, len(sectorIDs)*sectorSize/4)
	for _, sectorID := range sectorIDs {
		sector, err := readSector(dev, sectorID, sectorSize)
		if err != nil {
			return nil, err
		}
		for i := 0; i < sectorSize/4; i++ {
			id := binary.LittleEndian.Uint32(sector[i*4 : i*4+4])
			if id != freeSect {
				minifat = append(minifat, id)
			}
		}
	}

	want := root.StreamSize / uint64(h.MiniSectorSize())
	if uint64(len(minifat)) != want {
		return nil, newErr(CorruptedFile, "MiniFAT has %d entries, root stream implies %d", len(minifat), want)
	}

	return minifat, nil
}
