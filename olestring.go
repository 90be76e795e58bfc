package cfbfs

import (
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// OleString is an immutable directory-entry name: up to 31 UTF-16 code
// units, stored without its on-disk null terminator. Two OleStrings
// compare equal exactly when the OLE comparator (Compare) says so,
// which is not the same relation as Unicode codepoint equality.
type OleString struct {
	units []uint16
}

var utf16Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func containsIllegalUnit(units []uint16) bool {
	for _, u := range units {
		switch u {
		case charSlash, charBackslash, charColon, charBang:
			return true
		}
	}
	return false
}

func newOleString(units []uint16) (OleString, error) {
	if containsIllegalUnit(units) {
		return OleString{}, newErr(ContainsIllegalCharacters, "name contains one of / \\ : !")
	}
	if len(units) > maxNameCodePoints {
		return OleString{}, newErr(Exceeds32UTF16CodePoints, "name has %d code units, max is %d", len(units), maxNameCodePoints)
	}
	cp := make([]uint16, len(units))
	copy(cp, units)
	return OleString{units: cp}, nil
}

// NewOleStringFromUTF16 builds an OleString from a UTF-16 code-unit
// view (no terminator expected).
func NewOleStringFromUTF16(units []uint16) (OleString, error) {
	return newOleString(units)
}

// NewOleStringFromPathSegment builds an OleString from one component of
// an external filesystem path.
func NewOleStringFromPathSegment(segment string) (OleString, error) {
	return newOleString(utf16.Encode([]rune(segment)))
}

// NewOleStringFromRaw decodes a directory entry's raw 64-byte name field
// given the declared name_size_bytes (which includes the terminator),
// checking each constraint in wire-validation order.
func NewOleStringFromRaw(raw []byte, declaredLen int) (OleString, error) {
	if declaredLen == 0 {
		return OleString{}, nil
	}
	if declaredLen-2 > 62 {
		return OleString{}, newErr(Exceeds62Bytes, "declared name length %d exceeds 62 bytes excluding terminator", declaredLen-2)
	}
	if len(raw) > 64 {
		return OleString{}, newErr(Exceeds64Bytes, "raw name field is %d bytes, max is 64", len(raw))
	}
	if declaredLen%2 != 0 {
		return OleString{}, newErr(NotMultipleOf2, "declared name length %d is not even", declaredLen)
	}
	if declaredLen < 2 || declaredLen > len(raw) {
		return OleString{}, newErr(Exceeds64Bytes, "declared name length %d is out of range for a %d-byte raw field", declaredLen, len(raw))
	}
	term := raw[declaredLen-2 : declaredLen]
	if term[0] != 0 || term[1] != 0 {
		return OleString{}, newErr(NotNullTerminated, "name is not null terminated")
	}

	nameBytes := raw[:declaredLen-2]
	units := make([]uint16, len(nameBytes)/2)
	for i := range units {
		units[i] = uint16(nameBytes[2*i]) | uint16(nameBytes[2*i+1])<<8
	}
	return newOleString(units)
}

// Len returns the number of UTF-16 code units in the name.
func (s OleString) Len() int {
	return len(s.units)
}

func foldASCII(u uint16) uint16 {
	if u >= 'a' && u <= 'z' {
		return u - ('a' - 'A')
	}
	return u
}

// Compare implements the OLE comparator: shorter names sort first;
// names of equal length compare code-unit-wise after ASCII-only
// uppercase folding. It returns -1, 0 or 1.
func (a OleString) Compare(b OleString) int {
	if len(a.units) != len(b.units) {
		if len(a.units) < len(b.units) {
			return -1
		}
		return 1
	}
	for i := range a.units {
		ca, cb := foldASCII(a.units[i]), foldASCII(b.units[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Equal reports whether a and b are the same name under the OLE
// comparator.
func (a OleString) Equal(b OleString) bool {
	return a.Compare(b) == 0
}

// String renders the name as UTF-8 for display (error messages, the
// CLI inspector). It decodes through golang.org/x/text rather than a
// hand-rolled UTF-16 walk; the comparator above never uses this path,
// since it must compare raw code units, surrogates included, without
// any Unicode-aware normalization.
func (s OleString) String() string {
	if len(s.units) == 0 {
		return ""
	}
	raw := make([]byte, len(s.units)*2)
	for i, u := range s.units {
		raw[2*i] = byte(u)
		raw[2*i+1] = byte(u >> 8)
	}
	out, err := utf16Encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return string(utf16.Decode(s.units))
	}
	return string(out)
}
