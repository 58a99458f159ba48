package lha

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/lhcore/lha/internal/journal"
	"github.com/lhcore/lha/internal/platform"
)

// Extractor drives a Reader to completion, dispatching each yielded
// header to mkdir/symlink/file-write logic and verifying CRC/length
// against the header (§4.G).
type Extractor struct {
	r   *Reader
	log *slog.Logger

	journal *journal.Journal
}

// Option configures an Extractor at construction time.
type Option func(*extractorConfig)

type extractorConfig struct {
	logger      *slog.Logger
	journalPath string
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *extractorConfig) { c.logger = l }
}

// WithJournal enables the resumable extraction journal (§4.G.3) backed
// by a Pebble instance at path.
func WithJournal(path string) Option {
	return func(c *extractorConfig) { c.journalPath = path }
}

// NewExtractor constructs an Extractor driving r.
func NewExtractor(r *Reader, opts ...Option) (*Extractor, error) {
	cfg := extractorConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Extractor{r: r, log: cfg.logger}
	if cfg.journalPath != "" {
		j, err := journal.Open(cfg.journalPath)
		if err != nil {
			return nil, fmt.Errorf("lha: opening journal: %w", err)
		}
		e.journal = j
	}
	return e, nil
}

// Close releases the extractor's own resources (the journal, if any).
// It does not close the underlying Reader.
func (e *Extractor) Close() error {
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}

func fingerprint(h *FileHeader) uint64 {
	buf := make([]byte, 0, len(h.FullPath())+10)
	buf = append(buf, h.FullPath()...)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(h.Length))
	buf = append(buf, n[:]...)
	var c [2]byte
	binary.BigEndian.PutUint16(c[:], h.CRC)
	buf = append(buf, c[:]...)
	return xxhash.Sum64(buf)
}

// ExtractAll drains the reader, writing every entry under destRoot.
func (e *Extractor) ExtractAll(destRoot string, progress ProgressFunc) (bool, error) {
	return e.run(destRoot, false, progress, nil)
}

// CheckAll drains the reader, decoding every entry but discarding
// output; it succeeds iff every member's length and CRC match.
func (e *Extractor) CheckAll(progress ProgressFunc) (bool, error) {
	return e.run("", true, progress, nil)
}

// ExtractMatching restricts extraction to entries whose archive-relative
// path matches a doublestar pattern (§4.G.2), still applying deferred
// metadata to any ancestor directory that contained a match.
//
// Because the underlying BasicReader is a single forward pass (§1
// Non-goals: no random access, no seeking), knowing whether a directory
// contains a match requires seeing its descendants first, but archives
// list a directory before its children. ExtractMatching resolves this by
// buffering every entry once — decoding and holding file content in
// memory rather than writing it — so the whole header list, and with it
// every ancestor a later match belongs to, is known before anything is
// written to disk.
func (e *Extractor) ExtractMatching(pattern, destRoot string, progress ProgressFunc) (bool, error) {
	return e.runMatching(pattern, destRoot, false, progress)
}

// CheckMatching is CheckAll restricted the same way as ExtractMatching.
func (e *Extractor) CheckMatching(pattern string, progress ProgressFunc) (bool, error) {
	return e.runMatching(pattern, "", true, progress)
}

// bufferedEntry is one header drained from the reader during the
// buffering pass of runMatching, along with the fully decoded content of
// a NORMAL file entry (nil for directories and symlinks, which have no
// payload to decode ahead of time).
type bufferedEntry struct {
	header *FileHeader
	state  FileState
	data   []byte
	decErr error
}

func (e *Extractor) runMatching(pattern, destRoot string, dryRun bool, progress ProgressFunc) (bool, error) {
	entries, err := e.bufferEntries(progress)
	if err != nil {
		return false, err
	}

	matched := map[string]bool{}
	for _, be := range entries {
		if be.state != StateNormal || be.header.IsDir() {
			continue
		}
		if doublestar.MatchUnvalidated(pattern, be.header.FullPath()) {
			markAncestors(matched, be.header.Path)
		}
	}

	ok := true
	note := func(entryOK bool, path string, err error) {
		if err != nil {
			e.log.Warn("extract entry failed", "path", path, "err", err)
		}
		if !entryOK {
			ok = false
		}
	}

	for _, be := range entries {
		h := be.header
		switch be.state {
		case StateNormal:
			switch {
			case h.IsDir():
				if !matched[h.FullPath()] {
					continue
				}
				entryOK, err := e.mkdirMatched(h, destRoot, dryRun)
				note(entryOK, h.FullPath(), err)
			case h.SymlinkTarget != "":
				if !doublestar.MatchUnvalidated(pattern, h.FullPath()) {
					continue
				}
				entryOK, err := e.extractSymlink(h, destRoot, dryRun)
				note(entryOK, h.FullPath(), err)
			default:
				if !doublestar.MatchUnvalidated(pattern, h.FullPath()) {
					continue
				}
				entryOK, err := e.extractBufferedFile(h, be.data, be.decErr, destRoot, dryRun)
				note(entryOK, h.FullPath(), err)
			}
		case StateFakeDir:
			if !matched[h.FullPath()] || dryRun {
				continue
			}
			entryOK, err := e.applyFakeDir(h, destRoot)
			note(entryOK, h.FullPath(), err)
		}
	}
	return ok, nil
}

// bufferEntries drains the reader exactly once, decoding every NORMAL
// file entry's content into memory so runMatching can decide, after the
// fact, which directories deserve to exist.
func (e *Extractor) bufferEntries(progress ProgressFunc) ([]bufferedEntry, error) {
	var entries []bufferedEntry
	for {
		h, err := e.r.NextFile()
		if err != nil {
			return entries, err
		}
		if h == nil {
			break
		}
		be := bufferedEntry{header: h, state: e.r.CurrentState()}
		switch {
		case be.state == StateNormal && h.IsDir():
			// Mirrors the push half of extractDir: scheduling the FAKE_DIR
			// pop at the right point in the walk doesn't require having
			// created the directory on disk yet, only recording it.
			e.r.PushDeferredDir(h)
		case be.state == StateNormal && h.SymlinkTarget == "":
			be.data, be.decErr = e.decodeAll(h, progress)
		}
		entries = append(entries, be)
	}
	return entries, nil
}

// decodeAll reads a NORMAL file entry to completion, verifying length
// and CRC against the header the same way extractFile's streaming loop
// does, and returns the decoded plaintext.
func (e *Extractor) decodeAll(h *FileHeader, progress ProgressFunc) ([]byte, error) {
	if progress != nil {
		if err := e.r.SetProgress(h.Length, progress); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, e.r.ReadBufSize())
	var out bytes.Buffer
	for {
		n, rerr := e.r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return out.Bytes(), fmt.Errorf("%w: %v", ErrTruncated, rerr)
		}
	}

	length, crc := e.r.VerifiedLengthAndCRC()
	if length != h.Length {
		return out.Bytes(), ErrLengthMismatch
	}
	if crc != h.CRC {
		return out.Bytes(), ErrCRCMismatch
	}
	return out.Bytes(), nil
}

// extractBufferedFile writes out content already decoded by
// bufferEntries, applying the same journal and metadata handling as
// extractFile's streaming path.
func (e *Extractor) extractBufferedFile(h *FileHeader, data []byte, decErr error, destRoot string, dryRun bool) (bool, error) {
	if decErr != nil {
		return false, decErr
	}

	var fp uint64
	if !dryRun && e.journal != nil {
		fp = fingerprint(h)
		if hit, err := e.journal.Lookup(fp, uint64(h.Length), h.CRC); err == nil && hit {
			return true, nil
		}
	}

	if dryRun {
		return true, nil
	}

	full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))
	if err := os.MkdirAll(filepath.Dir(full), 0777); err != nil {
		return false, err
	}
	mode := os.FileMode(0666)
	if h.ExtraFlags&FlagUnixPerms != 0 {
		mode = os.FileMode(h.UnixPerms) & 0777
	}
	if err := os.WriteFile(full, data, mode); err != nil {
		return false, err
	}

	if h.ExtraFlags&FlagUnixOwner != 0 {
		_ = platform.Chown(full, int(h.UnixUID), int(h.UnixGID))
	}
	if err := platform.SetTimes(full, h.Timestamp); err != nil {
		return false, err
	}

	if e.journal != nil {
		_ = e.journal.Record(fp, uint64(h.Length), h.CRC)
	}
	return true, nil
}

func markAncestors(matched map[string]bool, path string) {
	for path != "" {
		matched[path] = true
		trimmed := strings.TrimSuffix(path, "/")
		idx := strings.LastIndex(trimmed, "/")
		if idx < 0 {
			break
		}
		path = trimmed[:idx+1]
	}
}

func (e *Extractor) run(destRoot string, dryRun bool, progress ProgressFunc, match func(*FileHeader) bool) (bool, error) {
	ok := true
	for {
		h, err := e.r.NextFile()
		if err != nil {
			return false, err
		}
		if h == nil {
			break
		}
		if match != nil && !match(h) {
			continue
		}

		var entryOK bool
		switch e.r.CurrentState() {
		case StateNormal:
			entryOK, err = e.extractNormal(h, destRoot, dryRun, progress)
		case StateFakeDir:
			if dryRun {
				entryOK = true
			} else {
				entryOK, err = e.applyFakeDir(h, destRoot)
			}
		default:
			entryOK, err = false, nil
		}
		if err != nil {
			e.log.Warn("extract entry failed", "path", h.FullPath(), "err", err)
		}
		if !entryOK {
			ok = false
		}
	}
	return ok, nil
}

func (e *Extractor) extractNormal(h *FileHeader, destRoot string, dryRun bool, progress ProgressFunc) (bool, error) {
	if h.IsDir() {
		return e.extractDir(h, destRoot, dryRun)
	}
	if h.SymlinkTarget != "" {
		return e.extractSymlink(h, destRoot, dryRun)
	}
	return e.extractFile(h, destRoot, dryRun, progress)
}

// mkdirMatched creates a directory matched by runMatching's ancestor
// scan. Unlike extractDir it never pushes onto the deferred-directory
// stack: bufferEntries already pushed it, and during a buffered walk its
// FAKE_DIR counterpart has already been recorded in the entry list.
func (e *Extractor) mkdirMatched(h *FileHeader, destRoot string, dryRun bool) (bool, error) {
	if dryRun {
		return true, nil
	}
	full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))

	mode := os.FileMode(0777)
	if h.ExtraFlags&FlagUnixPerms != 0 {
		mode = 0700
	}
	if err := os.MkdirAll(filepath.Dir(full), 0777); err != nil {
		return false, err
	}
	if err := platform.Mkdir(full, mode); err != nil {
		return false, err
	}

	if e.r.policy == PolicyPlain {
		if err := e.applyMetadata(h, full); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (e *Extractor) extractDir(h *FileHeader, destRoot string, dryRun bool) (bool, error) {
	if dryRun {
		return true, nil
	}
	full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))

	mode := os.FileMode(0777)
	if h.ExtraFlags&FlagUnixPerms != 0 {
		mode = 0700
	}
	if err := os.MkdirAll(filepath.Dir(full), 0777); err != nil {
		return false, err
	}
	if err := platform.Mkdir(full, mode); err != nil {
		return false, err
	}

	if e.r.policy == PolicyPlain {
		if err := e.applyMetadata(h, full); err != nil {
			return false, err
		}
	} else {
		e.r.PushDeferredDir(h)
	}
	return true, nil
}

func (e *Extractor) extractSymlink(h *FileHeader, destRoot string, dryRun bool) (bool, error) {
	if dryRun {
		return true, nil
	}
	full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))
	if err := os.MkdirAll(filepath.Dir(full), 0777); err != nil {
		return false, err
	}
	_ = os.Remove(full)
	if err := platform.Symlink(h.SymlinkTarget, full); err != nil {
		return false, err
	}
	if err := platform.SetSymlinkTimes(full, h.Timestamp); err != nil && !errors.Is(err, platform.ErrUnsupported) {
		e.log.Warn("set symlink time failed", "path", full, "err", err)
	}
	return true, nil
}

func (e *Extractor) extractFile(h *FileHeader, destRoot string, dryRun bool, progress ProgressFunc) (bool, error) {
	var fp uint64
	if !dryRun && e.journal != nil {
		fp = fingerprint(h)
		if hit, err := e.journal.Lookup(fp, uint64(h.Length), h.CRC); err == nil && hit {
			return true, nil
		}
	}

	var out *os.File
	if !dryRun {
		full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))
		if err := os.MkdirAll(filepath.Dir(full), 0777); err != nil {
			return false, err
		}
		mode := os.FileMode(0666)
		if h.ExtraFlags&FlagUnixPerms != 0 {
			mode = os.FileMode(h.UnixPerms) & 0777
		}
		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
		if err != nil {
			return false, err
		}
		defer f.Close()
		out = f
	}

	if progress != nil {
		if err := e.r.SetProgress(h.Length, progress); err != nil {
			return false, err
		}
	}

	buf := make([]byte, e.r.ReadBufSize())
	for {
		n, rerr := e.r.Read(buf)
		if n > 0 && out != nil {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return false, werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return false, fmt.Errorf("%w: %v", ErrTruncated, rerr)
		}
	}

	length, crc := e.r.VerifiedLengthAndCRC()
	if length != h.Length {
		return false, ErrLengthMismatch
	}
	if crc != h.CRC {
		return false, ErrCRCMismatch
	}

	if dryRun {
		return true, nil
	}

	full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))
	if h.ExtraFlags&FlagUnixOwner != 0 {
		_ = platform.Chown(full, int(h.UnixUID), int(h.UnixGID))
	}
	if err := platform.SetTimes(full, h.Timestamp); err != nil {
		return false, err
	}

	if e.journal != nil {
		_ = e.journal.Record(fp, uint64(h.Length), h.CRC)
	}
	return true, nil
}

// applyFakeDir applies a popped directory's deferred metadata: per
// §4.G, timestamps first, then best-effort chown, then fatal chmod.
func (e *Extractor) applyFakeDir(h *FileHeader, destRoot string) (bool, error) {
	full := filepath.Join(destRoot, filepath.FromSlash(h.FullPath()))
	if err := e.applyMetadata(h, full); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Extractor) applyMetadata(h *FileHeader, full string) error {
	if err := platform.SetTimes(full, h.Timestamp); err != nil {
		return err
	}
	if h.ExtraFlags&FlagUnixOwner != 0 {
		_ = platform.Chown(full, int(h.UnixUID), int(h.UnixGID))
	}
	if h.ExtraFlags&FlagUnixPerms != 0 {
		if err := platform.Chmod(full, os.FileMode(h.UnixPerms)&0777); err != nil {
			return err
		}
	}
	return nil
}
