package avifmux

import "errors"

var (
	ErrSizeOverflow     = errors.New("avifmux: size overflow")
	ErrInvalidProperty  = errors.New("avifmux: invalid property association")
	ErrInvalidReference = errors.New("avifmux: invalid item reference")
	ErrValidation       = errors.New("avifmux: validation failed")
)
