package lha

import (
	"io"
	"testing"
)

// fakeBasicReader replays a fixed slice of headers, the minimum needed
// to drive the iterator independent of any real container format.
type fakeBasicReader struct {
	headers []*FileHeader
	pos     int
}

func (f *fakeBasicReader) NextHeader() (*FileHeader, error) {
	if f.pos >= len(f.headers) {
		return nil, io.EOF
	}
	h := f.headers[f.pos]
	f.pos++
	return h, nil
}

func (f *fakeBasicReader) Payload() io.ByteReader {
	return nil
}

func dirHeader(path string) *FileHeader {
	return &FileHeader{Path: path, CompressMethod: methodDir}
}

func fileHeader(path, name string) *FileHeader {
	return &FileHeader{Path: path, Filename: name, CompressMethod: "-lh5-"}
}

// driveAndCollect pushes every NORMAL directory it sees onto the stack,
// the way Extractor.extractDir would after a successful mkdir, so the
// iterator-only tests below can exercise deferred-metadata sequencing
// without going through the filesystem.
func driveAndCollect(t *testing.T, r *Reader) []string {
	t.Helper()
	var seq []string
	for {
		h, err := r.NextFile()
		if err != nil {
			t.Fatalf("NextFile: %v", err)
		}
		if h == nil {
			break
		}
		label := h.FullPath()
		if r.CurrentState() == StateFakeDir {
			label = "FAKE_DIR(" + label + ")"
		}
		seq = append(seq, label)
		if r.CurrentState() == StateNormal && h.IsDir() {
			r.PushDeferredDir(h)
		}
	}
	return seq
}

func TestIteratorEndOfDirPolicy(t *testing.T) {
	basic := &fakeBasicReader{headers: []*FileHeader{
		dirHeader("dir/"),
		fileHeader("dir/", "a"),
		fileHeader("dir/", "b"),
		fileHeader("", "other"),
	}}
	r := NewReader(basic, WithDirPolicy(PolicyEndOfDir))

	got := driveAndCollect(t, r)
	want := []string{"dir/", "dir/a", "dir/b", "FAKE_DIR(dir/)", "other"}
	assertSeq(t, got, want)
}

func TestIteratorEndOfFilePolicy(t *testing.T) {
	basic := &fakeBasicReader{headers: []*FileHeader{
		dirHeader("dir/"),
		fileHeader("dir/", "a"),
		fileHeader("dir/", "b"),
		fileHeader("", "other"),
	}}
	r := NewReader(basic, WithDirPolicy(PolicyEndOfFile))

	got := driveAndCollect(t, r)
	want := []string{"dir/", "dir/a", "dir/b", "other", "FAKE_DIR(dir/)"}
	assertSeq(t, got, want)
}

func TestIteratorPlainPolicyYieldsNoFakeDirs(t *testing.T) {
	basic := &fakeBasicReader{headers: []*FileHeader{
		dirHeader("dir/"),
		fileHeader("dir/", "a"),
	}}
	r := NewReader(basic, WithDirPolicy(PolicyPlain))

	got := driveAndCollect(t, r)
	want := []string{"dir/", "dir/a"}
	assertSeq(t, got, want)
}

func assertSeq(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
