package cfbfs

import (
	"path"
	"strings"
)

// Path is an ordered sequence of OleString segments resolved against a
// mounted Filesystem, built from an external, slash-separated path.
type Path struct {
	segments []OleString
}

// MakePath builds a Path from an external filesystem-style path.
// ".."-escaping paths and paths that clean down to the root both yield
// the empty Path.
func MakePath(external string) (Path, error) {
	cleaned := path.Clean(external)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return Path{}, nil
	}

	parts := strings.Split(cleaned, "/")
	segments := make([]OleString, 0, len(parts))
	for _, part := range parts {
		seg, err := NewOleStringFromPathSegment(part)
		if err != nil {
			return Path{}, err
		}
		segments = append(segments, seg)
	}
	return Path{segments: segments}, nil
}

// Segments returns the path's ordered OleString components.
func (p Path) Segments() []OleString {
	return p.segments
}

// Len returns the number of segments in the path.
func (p Path) Len() int {
	return len(p.segments)
}

// String renders the path in slash-separated form, rooted.
func (p Path) String() string {
	if len(p.segments) == 0 {
		return "/"
	}
	parts := make([]string, len(p.segments))
	for i, seg := range p.segments {
		parts[i] = seg.String()
	}
	return "/" + strings.Join(parts, "/")
}
