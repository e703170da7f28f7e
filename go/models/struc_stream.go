package models

import (
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// StrucStream packs fixed-layout records to W and unpacks them from R.
// Either side may be nil for one-way streams.
type StrucStream struct {
	R     io.Reader
	W     io.Writer
	Order binary.ByteOrder
}

func (s *StrucStream) Pack(i interface{}) error {
	if s.W == nil {
		return errors.New("struc stream is read-only")
	}
	return struc.PackWithOrder(s.W, i, s.Order)
}

func (s *StrucStream) Unpack(i interface{}) error {
	if s.R == nil {
		return errors.New("struc stream is write-only")
	}
	return struc.UnpackWithOrder(s.R, i, s.Order)
}
