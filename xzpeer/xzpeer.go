// Package xzpeer demonstrates the peer-codec registry (§2.1.H): it
// registers an xz-backed decoder under a caller-chosen method tag, so an
// archive whose basic reader reports that tag dispatches to xz instead
// of failing with ErrUnknownMethod.
package xzpeer

import (
	"io"

	"github.com/therootcompany/xz"

	"github.com/lhcore/lha"
)

// Register installs an xz decoder for tag into the package-level codec
// registry. It is meant to be called once at program start, mirroring
// RegisterCodec's own contract.
func Register(tag string) {
	lha.RegisterCodec(tag, func(src io.ByteReader) (io.Reader, error) {
		return xz.NewReader(asReader(src), xz.DefaultDictMax)
	})
}

// asReader adapts an io.ByteReader (the codec input contract, §6) to the
// io.Reader the xz package expects, pulling one byte at a time.
func asReader(src io.ByteReader) io.Reader {
	if r, ok := src.(io.Reader); ok {
		return r
	}
	return &byteReaderAdapter{src: src}
}

type byteReaderAdapter struct {
	src io.ByteReader
}

func (a *byteReaderAdapter) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := a.src.ReadByte()
	if err != nil {
		return 0, err
	}
	p[0] = b
	return 1, nil
}
