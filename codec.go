package lha

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/lhcore/lha/internal/lhnew"
)

// ProgressFunc is invoked by a decoder as output crosses each of its
// codec-defined block boundaries (ring_size/2 for lh5/6/7, ring_size/4
// for lh4). It is the idiomatic Go replacement for a callback-plus-void*
// pair: whatever the caller wants for "userdata" is simply captured by
// the closure.
type ProgressFunc func(done, total int)

// CodecFactory opens a decoder over one member's raw (post-header) byte
// stream. Implementations that also want progress reporting may
// additionally implement SetProgress(int64, func(int, int)); the
// extractor checks for it with a type assertion, never required.
type CodecFactory func(src io.ByteReader) (io.Reader, error)

var (
	registryMu sync.Mutex
	registry   = map[string]CodecFactory{}
)

// RegisterCodec installs the decoder factory for a method tag not
// natively known to this package, e.g. "-lzx-". Matching the reference
// sit package's single mutable global, this is meant to be called once
// at program start, before any archive is opened; it is still safe to
// call concurrently.
func RegisterCodec(tag string, factory CodecFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[tag] = factory
}

// lookupCodec resolves a method tag to a factory: first the four LH-new
// variants this package owns, then the peer registry (§2.1.H).
func lookupCodec(tag string) (CodecFactory, bool) {
	if params, ok := lhnew.Codecs[tag]; ok {
		p := params
		return func(src io.ByteReader) (io.Reader, error) {
			return lhnew.NewDecoder(p, src), nil
		}, true
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	f, ok := registry[tag]
	return f, ok
}

// openCodec dispatches a member's raw byte stream to the right decoder,
// mirroring the reference sit.readerFor switch-on-algorithm-id shape but
// as a registry lookup instead of a fixed switch.
func openCodec(tag string, src io.ByteReader) (io.Reader, error) {
	factory, ok := lookupCodec(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, tag)
	}
	r, err := factory(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedMethod, tag, err)
	}
	return r, nil
}

// progressor is implemented by decoders (lhnew.Decoder among them) that
// can report block-granular progress.
type progressor interface {
	SetProgress(total int64, cb func(done, total int))
}

// ringSizer is implemented by decoders that know their own minimum
// output buffer size; codecs without one get a generic default.
type ringSizer interface {
	RingSize() int
}

// loggable is implemented by decoders (lhnew.Decoder among them) that
// accept a diagnostic logger for their own per-block events (§1.1, §9.a).
type loggable interface {
	SetLogger(*slog.Logger)
}

const defaultReadBufSize = 32 * 1024
