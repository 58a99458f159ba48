package lha

import "io"

// BasicReader is the external collaborator this package builds on (§1):
// an archive-container parser that walks member headers and exposes
// each member's compressed byte stream in turn. This package does not
// implement it — only the LH-new codec and the iterator/extractor logic
// built on top of it.
type BasicReader interface {
	// NextHeader advances to the next member and returns its header, or
	// (nil, io.EOF) once the archive is exhausted.
	NextHeader() (*FileHeader, error)

	// Payload returns a byte source positioned at the start of the
	// current member's compressed data. It is valid until the next call
	// to NextHeader.
	Payload() io.ByteReader
}
