package lha

import (
	"errors"
	"io"
	"log/slog"
)

// FileState reports which branch of the iterator state machine produced
// the header currently held by a Reader.
type FileState int

const (
	StateStart FileState = iota
	StateNormal
	StateFakeDir
	StateEOF
)

// Reader drives the archive iterator state machine of §4.E: it advances
// through members of an underlying BasicReader, decodes the current
// member's bytes on demand, and interleaves FAKE_DIR entries produced by
// the directory-policy stack (§4.F).
type Reader struct {
	basic BasicReader
	log   *slog.Logger

	policy DirPolicy
	stack  dirStack

	state   FileState
	curFile *FileHeader

	pending    *FileHeader
	basicDone  bool

	rawDecoder io.Reader // innermost codec output, pre-CRC, pre-MacBinary
	crc        *crc16Reader
	exposed    io.Reader // what Read pulls from
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*Reader)

// WithReaderLogger overrides the default slog.Default() logger.
func WithReaderLogger(l *slog.Logger) ReaderOption {
	return func(r *Reader) { r.log = l }
}

// WithDirPolicy sets the initial directory-metadata policy (default
// PolicyEndOfDir).
func WithDirPolicy(p DirPolicy) ReaderOption {
	return func(r *Reader) { r.policy = p }
}

// NewReader constructs an iterator over basic, an already-open archive
// container parser.
func NewReader(basic BasicReader, opts ...ReaderOption) *Reader {
	r := &Reader{
		basic:  basic,
		log:    slog.Default(),
		policy: PolicyEndOfDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetDirPolicy changes the directory-metadata policy mid-stream.
func (r *Reader) SetDirPolicy(p DirPolicy) { r.policy = p }

// CurrentFile returns the header most recently yielded by NextFile, or
// nil at START/EOF.
func (r *Reader) CurrentFile() *FileHeader { return r.curFile }

// CurrentState reports which state produced CurrentFile.
func (r *Reader) CurrentState() FileState { return r.state }

func (r *Reader) closeDecoder() {
	r.rawDecoder = nil
	r.crc = nil
	r.exposed = nil
}

func (r *Reader) fetchPending() error {
	if r.pending != nil || r.basicDone {
		return nil
	}
	h, err := r.basic.NextHeader()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.basicDone = true
			return nil
		}
		return err
	}
	r.pending = h
	return nil
}

// NextFile advances the iterator by one step. It returns (nil, nil) once
// the archive and any deferred directory entries are fully drained.
func (r *Reader) NextFile() (*FileHeader, error) {
	r.closeDecoder()

	if err := r.fetchPending(); err != nil {
		return nil, err
	}

	nextPath := ""
	if r.pending != nil {
		nextPath = r.pending.FullPath()
	}

	if r.stack.shouldPop(r.policy, nextPath) {
		entry := r.stack.pop()
		h := fakeDirHeader(entry)
		r.curFile = h
		r.state = StateFakeDir
		r.log.Debug("deferred directory metadata due", "path", h.FullPath())
		return h, nil
	}

	if r.pending != nil {
		h := r.pending
		r.pending = nil
		r.curFile = h
		r.state = StateNormal
		return h, nil
	}

	r.curFile = nil
	r.state = StateEOF
	return nil, nil
}

// PushDeferredDir records h as a directory awaiting deferred metadata
// application, honoring the current policy (a no-op under
// PolicyPlain). Called by Extractor right after a directory is created.
func (r *Reader) PushDeferredDir(h *FileHeader) {
	if r.policy == PolicyPlain {
		return
	}
	r.stack.push(cloneDirEntry(h))
}

// openDecoder lazily builds the decode pipeline for the current NORMAL
// entry: raw codec -> CRC/length tracking -> optional MacBinary strip.
func (r *Reader) openDecoder() error {
	if r.exposed != nil {
		return nil
	}
	if r.curFile == nil || r.state != StateNormal {
		return errors.New("lha: no current file to decode")
	}

	raw, err := openCodec(r.curFile.CompressMethod, r.basic.Payload())
	if err != nil {
		return err
	}
	if l, ok := raw.(loggable); ok {
		l.SetLogger(r.log)
	}
	r.log.Debug("opened decoder", "method", r.curFile.CompressMethod, "path", r.curFile.FullPath())
	r.rawDecoder = raw
	r.crc = newCRC16Reader(raw)

	if r.curFile.OSType == OSMacOS {
		r.exposed = newMacBinaryReader(r.crc)
	} else {
		r.exposed = r.crc
	}
	return nil
}

// SetProgress wires a ProgressFunc into the active raw decoder, if it
// supports block-granular progress reporting (lhnew.Decoder does).
func (r *Reader) SetProgress(totalBytes int64, cb ProgressFunc) error {
	if err := r.openDecoder(); err != nil {
		return err
	}
	if p, ok := r.rawDecoder.(progressor); ok {
		p.SetProgress(totalBytes, cb)
	}
	return nil
}

// Read decodes bytes of the current NORMAL entry. It lazily opens the
// decoder on first call, and reports io.EOF once the header's Length
// bytes have been decoded.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.openDecoder(); err != nil {
		return 0, err
	}
	if r.crc.length >= r.curFile.Length {
		return 0, io.EOF
	}
	return r.exposed.Read(p)
}

// ReadBufSize reports the smallest buffer Read can be safely called
// with for the current entry's codec, opening the decoder if needed
// (codecs without a known minimum, or an entry whose decoder cannot be
// opened, get a generic default).
func (r *Reader) ReadBufSize() int {
	if r.openDecoder() == nil {
		if rs, ok := r.rawDecoder.(ringSizer); ok {
			return rs.RingSize()
		}
	}
	return defaultReadBufSize
}

// VerifiedLengthAndCRC reports the length and CRC-16 accumulated over
// the raw (pre-MacBinary-strip) decoded bytes seen so far.
func (r *Reader) VerifiedLengthAndCRC() (int64, uint16) {
	if r.crc == nil {
		return 0, 0
	}
	return r.crc.length, r.crc.crc
}

// Close releases the iterator's resources. It does not close the
// underlying BasicReader, which the caller owns.
func (r *Reader) Close() error {
	r.closeDecoder()
	r.stack = dirStack{}
	return nil
}
