// Package dicom implements the attribute-record data model used on the wire
// and in the work-item registry: typed tag/value elements, the PS3.18 JSON
// encoding, and the small data dictionary the service needs.
package dicom

import (
	"fmt"
	"strconv"
)

// Tag is a DICOM data element tag, group in the high 16 bits and element in
// the low 16 bits. The canonical text form is 8 uppercase hex digits.
type Tag uint32

// Group returns the group number of the tag.
func (t Tag) Group() uint16 { return uint16(t >> 16) }

// Elem returns the element number of the tag.
func (t Tag) Elem() uint16 { return uint16(t & 0xFFFF) }

// String returns the 8-hex-digit form, e.g. "00741000".
func (t Tag) String() string {
	return fmt.Sprintf("%08X", uint32(t))
}

// MarshalText implements encoding.TextMarshaler so Tag can key JSON maps.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTag parses an 8-hex-digit tag code.
func ParseTag(s string) (Tag, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("dicom: invalid tag %q: must be 8 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("dicom: invalid tag %q: %w", s, err)
	}
	return Tag(v), nil
}
