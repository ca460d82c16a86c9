package obj

import "errors"

var (
	ErrBadMagic       = errors.New("not a G10 object file")
	ErrBadVersion     = errors.New("unsupported object file version")
	ErrTruncated      = errors.New("truncated object file")
	ErrBounds         = errors.New("table bounds exceed file size")
	ErrBadSection     = errors.New("invalid section")
	ErrRegion         = errors.New("section outside its permitted region")
	ErrSectionOverlap = errors.New("overlapping sections")
	ErrBadSymbol      = errors.New("invalid symbol")
	ErrBadRelocation  = errors.New("invalid relocation")
)
