package lha

import "io"

// macBinaryHeaderSize is the fixed MacBinary prefix MacLHA writes ahead
// of a MacOS-origin file's data fork.
const macBinaryHeaderSize = 128

// macBinaryReader strips the leading MacBinary header from a decoded
// stream, exposing only the bytes that follow it. CRC/length
// verification always happens on the stream *before* this wrapper (see
// reader.go), since the header bytes are still part of the raw decoded
// output the archive's CRC covers.
type macBinaryReader struct {
	inner   io.Reader
	skipped int
}

func newMacBinaryReader(inner io.Reader) *macBinaryReader {
	return &macBinaryReader{inner: inner}
}

func (m *macBinaryReader) Read(p []byte) (int, error) {
	for m.skipped < macBinaryHeaderSize {
		discard := make([]byte, macBinaryHeaderSize-m.skipped)
		n, err := m.inner.Read(discard)
		m.skipped += n
		if err != nil {
			return 0, err
		}
	}
	return m.inner.Read(p)
}
