package ainb

import "github.com/pkg/errors"

var (
	ErrInvalidMagic       = errors.New("ainb: invalid magic")
	ErrUnsupportedVersion = errors.New("ainb: unsupported version")
	ErrTruncated          = errors.New("ainb: truncated data")
	ErrBadOffset          = errors.New("ainb: offset out of range")
	ErrUnsupported        = errors.New("ainb: unsupported feature")
	ErrInvalidDocument    = errors.New("ainb: invalid document")
)
