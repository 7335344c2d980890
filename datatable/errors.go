package datatable

import (
	"errors"
	"fmt"
)

var (
	ErrReadOnly        = errors.New("column is read-only")
	ErrUnknownGroupKey = errors.New("not in reduction group list")
	ErrExists          = errors.New("file exists")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNoLocation      = errors.New("no export location")
	ErrMisaligned      = errors.New("RO and RW row counts differ")
)

func unknownGroup(key GroupKey, keyword string) error {
	return fmt.Errorf("%w: ant %d spw %d pol %d not in %s", ErrUnknownGroupKey, key.Antenna, key.Spw, key.Pol, keyword)
}
