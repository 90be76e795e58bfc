package cfbfs

// Filesystem is a mounted CFB container: an immutable set of tables
// built once from a Device. Path queries need no further I/O; only a
// Stream returned by Open reads the Device again.
// It owns its Device exclusively for its lifetime.
type Filesystem struct {
	device  Device
	header  *Header
	fat     []uint32
	minifat []uint32
	entries []DirEntry

	// rootChain is the root entry's own regular FAT chain, which backs
	// the mini-stream; cached at mount time since every mini-stream
	// read needs it.
	rootChain []uint32
}

// Mount runs header parsing, FAT loading, directory loading and
// MiniFAT loading in that order; any step's failure aborts the mount
// and returns unchanged.
func Mount(dev Device, validation Validation) (*Filesystem, error) {
	header, err := parseHeader(dev)
	if err != nil {
		return nil, err
	}

	fat, fatSectorIDs, difatSectorIDs, err := loadFAT(dev, header)
	if err != nil {
		return nil, err
	}

	if err := validateFATTagging(fat, fatSectorIDs, difatSectorIDs, validation); err != nil {
		return nil, err
	}

	entries, err := loadDirectory(dev, header, fat)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, newErr(CorruptedFile, "directory has no entries")
	}
	root := entries[0]
	if root.Type != Root {
		return nil, newErr(CorruptedFile, "directory entry 0 has type %v, want Root", root.Type)
	}
	for i, e := range entries {
		for _, id := range [...]uint32{e.LeftID, e.RightID, e.ChildID} {
			if id != noStream && id >= uint32(len(entries)) {
				return nil, newErr(CorruptedFile, "directory entry %d links to out-of-range entry %d", i, id)
			}
		}
	}

	minifat, err := loadMiniFAT(dev, header, fat, root)
	if err != nil {
		return nil, err
	}

	if validation.isStrict() && header.NumMiniFatSectors != 0 {
		gotChain, err := followChain(fat, header.FirstMiniFatSector)
		if err != nil {
			return nil, err
		}
		if uint32(len(gotChain)) != header.NumMiniFatSectors {
			return nil, newErr(MiniFatHeaderInconsistent, "header declares %d MiniFAT sectors, chain has %d", header.NumMiniFatSectors, len(gotChain))
		}
	}

	var rootChain []uint32
	if root.StreamSize > 0 {
		rootChain, err = followChain(fat, root.StartingSector)
		if err != nil {
			return nil, err
		}
	}

	return &Filesystem{
		device:    dev,
		header:    header,
		fat:       fat,
		minifat:   minifat,
		entries:   entries,
		rootChain: rootChain,
	}, nil
}

// validateFATTagging cross-checks every sector that loadFAT walked as a
// FAT or DIFAT sector against its own tag in the FAT. In strict mode a
// mismatch fails the mount; in permissive mode it is repaired in place,
// since callers that never re-derive fatSectorIDs/difatSectorIDs from
// the FAT still expect the FAT's own tags to be self-consistent.
func validateFATTagging(fat []uint32, fatSectorIDs []uint32, difatSectorIDs []uint32, validation Validation) error {
	for _, id := range difatSectorIDs {
		if id >= uint32(len(fat)) {
			return newErr(CorruptedFile, "sector %d is a DIFAT sector but out of range for a %d-entry FAT", id, len(fat))
		}
		if fat[id] != difSectSentinel {
			if validation.isStrict() {
				return newErr(CorruptedFile, "sector %d is a DIFAT sector but not tagged as one in the FAT", id)
			}
			fat[id] = difSectSentinel
		}
	}
	for _, id := range fatSectorIDs {
		if id >= uint32(len(fat)) {
			return newErr(CorruptedFile, "sector %d is a FAT sector but out of range for a %d-entry FAT", id, len(fat))
		}
		if fat[id] != fatSectSentinel {
			if validation.isStrict() {
				return newErr(CorruptedFile, "sector %d is a FAT sector but not tagged as one in the FAT", id)
			}
			fat[id] = fatSectSentinel
		}
	}
	return nil
}

func (fs *Filesystem) rootEntry() DirEntry {
	return fs.entries[0]
}

// HeaderVersion returns the container's CFB major version.
func (fs *Filesystem) HeaderVersion() Version {
	return fs.header.Version
}

// SectorSize returns the container's sector size in bytes.
func (fs *Filesystem) SectorSize() int {
	return fs.header.SectorSize()
}

// RootChildID returns the index of the head of the root's children
// tree, or noStream if the root has no children — usable together with
// EntryAt and EntriesUnder for index-based traversal without building
// a Path.
func (fs *Filesystem) RootChildID() uint32 {
	return fs.rootEntry().ChildID
}

// EntryAt returns the cooked entry at a directory-table index, as
// returned by RootChildID or held in a DirEntry's LeftID, RightID or
// ChildID.
func (fs *Filesystem) EntryAt(idx uint32) DirEntry {
	return fs.entries[idx]
}

// EntriesUnder returns the direct children of the tree rooted at idx
// (typically another entry's ChildID) in OLE comparator order.
func (fs *Filesystem) EntriesUnder(idx uint32) []DirEntry {
	it := InOrder(fs.entries, idx)
	out := make([]DirEntry, 0)
	for {
		i, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, fs.entries[i])
	}
	return out
}

// resolve walks PathResolve from the root and reports the last matched
// index, how many segments matched, and whether every segment matched.
func (fs *Filesystem) resolve(p Path) (idx uint32, matched int, found bool) {
	if p.Len() == 0 {
		return 0, 0, false
	}
	it := PathResolve(fs.entries, fs.rootEntry().ChildID, p.Segments())
	var last uint32
	n := 0
	for {
		i, ok := it.Next()
		if !ok {
			break
		}
		last = i
		n++
	}
	return last, n, n == p.Len()
}

// Exists reports whether path resolves to a directory entry. An empty
// path is never found.
func (fs *Filesystem) Exists(p Path) bool {
	_, _, found := fs.resolve(p)
	return found
}

// FileSize returns a regular entry's stream size, or FileNotFound /
// NotRegularFile if the path doesn't resolve to one.
func (fs *Filesystem) FileSize(p Path) (uint64, error) {
	if p.Len() == 0 {
		return 0, newErr(FileNotFound, "empty path")
	}
	idx, _, found := fs.resolve(p)
	if !found {
		return 0, newErr(FileNotFound, "%s", p.String())
	}
	entry := fs.entries[idx]
	if entry.Type != Regular {
		return 0, newErr(NotRegularFile, "%s", p.String())
	}
	return entry.StreamSize, nil
}

// IsDirectory reports whether path resolves to a storage entry.
func (fs *Filesystem) IsDirectory(p Path) bool {
	idx, _, found := fs.resolve(p)
	return found && fs.entries[idx].Type == Directory
}

// IsRegularFile reports whether path resolves to a stream entry.
func (fs *Filesystem) IsRegularFile(p Path) bool {
	idx, _, found := fs.resolve(p)
	return found && fs.entries[idx].Type == Regular
}

// Entry returns the cooked DirEntry a path resolves to, if any.
func (fs *Filesystem) Entry(p Path) (DirEntry, bool) {
	idx, _, found := fs.resolve(p)
	if !found {
		return DirEntry{}, false
	}
	return fs.entries[idx], true
}

// Open returns a Stream over a regular entry's payload.
func (fs *Filesystem) Open(p Path) (*Stream, error) {
	if p.Len() == 0 {
		return nil, newErr(FileNotFound, "empty path")
	}
	idx, _, found := fs.resolve(p)
	if !found {
		return nil, newErr(FileNotFound, "%s", p.String())
	}
	entry := fs.entries[idx]
	if entry.Type != Regular {
		return nil, newErr(NotRegularFile, "%s", p.String())
	}
	return fs.openStream(entry)
}

// Children returns the direct children of a storage path (or the
// root, for an empty path) in OLE comparator order.
func (fs *Filesystem) Children(p Path) ([]DirEntry, error) {
	var start uint32
	if p.Len() == 0 {
		start = fs.rootEntry().ChildID
	} else {
		idx, _, found := fs.resolve(p)
		if !found {
			return nil, newErr(FileNotFound, "%s", p.String())
		}
		entry := fs.entries[idx]
		if entry.Type != Directory && entry.Type != Root {
			return nil, newErr(NotRegularFile, "%s is not a directory", p.String())
		}
		start = entry.ChildID
	}

	it := InOrder(fs.entries, start)
	out := make([]DirEntry, 0)
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, fs.entries[idx])
	}
	return out, nil
}
