package cfbfs

// loadDirectory follows the FAT chain from h.FirstDirSector and decodes
// every 128-byte record it finds, dropping wholly-zero (unallocated)
// records. Any OleString failure while cooking a name aborts the mount.
func loadDirectory(dev Device, h *Header, fat []uint32) ([]DirEntry, error) {
	sectorIDs, err := followChain(fat, h.FirstDirSector)
	if err != nil {
		return nil, err
	}

	sectorSize := h.SectorSize()
	entriesPerSector := h.Version.DirEntriesPerSector()

	entries := make([]DirEntry, 0, len(sectorIDs)*entriesPerSector)
	for _, sectorID := range sectorIDs {
		sector, err := readSector(dev, sectorID, sectorSize)
		if err != nil {
			return nil, err
		}
		for i := 0; i < entriesPerSector; i++ {
			raw := sector[i*dirEntryLen : (i+1)*dirEntryLen]
			if isZeroEntry(raw) {
				continue
			}
			entry, err := cookDirEntry(raw)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// DirIter is a lazy, forward-only sequence of directory-entry indices,
// the shared shape behind in-order traversal, lookup-descent and path
// resolution.
type DirIter struct {
	next func() (uint32, bool)
}

// Next returns the next index in the sequence, or (0, false) when
// exhausted.
func (it *DirIter) Next() (uint32, bool) {
	return it.next()
}

// Collect drains the iterator into a slice of indices.
func (it *DirIter) Collect() []uint32 {
	out := make([]uint32, 0)
	for {
		idx, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, idx)
	}
}

// InOrder yields the entries of the tree rooted at r in OLE comparator
// order, following left_id / right_id links.
func InOrder(entries []DirEntry, r uint32) *DirIter {
	stack := make([]uint32, 0)

	pushLeftSpine := func(idx uint32) {
		for idx != noStream {
			stack = append(stack, idx)
			idx = entries[idx].LeftID
		}
	}
	pushLeftSpine(r)

	return &DirIter{next: func() (uint32, bool) {
		if len(stack) == 0 {
			return 0, false
		}
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pushLeftSpine(entries[idx].RightID)
		return idx, true
	}}
}

// LookupDescent yields at most one entry: the result of descending the
// tree rooted at r for key, taking the left branch when key sorts
// before the current node and the right branch otherwise.
func LookupDescent(entries []DirEntry, r uint32, key OleString) *DirIter {
	current := r
	done := false

	return &DirIter{next: func() (uint32, bool) {
		if done {
			return 0, false
		}
		for current != noStream {
			node := entries[current]
			switch key.Compare(node.Name) {
			case 0:
				hit := current
				done = true
				return hit, true
			case -1:
				current = node.LeftID
			default:
				current = node.RightID
			}
		}
		done = true
		return 0, false
	}}
}

// PathResolve walks an ordered sequence of segment keys starting under
// tree root r0, descending into each hit's ChildID for the next
// segment. It yields one entry per matched segment and stops early on
// the first miss.
func PathResolve(entries []DirEntry, r0 uint32, segments []OleString) *DirIter {
	i := 0
	current := r0

	return &DirIter{next: func() (uint32, bool) {
		if i >= len(segments) {
			return 0, false
		}
		sub := LookupDescent(entries, current, segments[i])
		idx, ok := sub.Next()
		if !ok {
			i = len(segments)
			return 0, false
		}
		i++
		current = entries[idx].ChildID
		return idx, true
	}}
}
