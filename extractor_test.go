package lha

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// echoBasicReader is a fakeBasicReader that also serves a raw payload
// per entry, routed through a trivial identity codec registered under
// "-test-" so these tests don't need a real LH-new bitstream.
type echoBasicReader struct {
	headers  []*FileHeader
	payloads [][]byte
	pos      int
}

func (e *echoBasicReader) NextHeader() (*FileHeader, error) {
	if e.pos >= len(e.headers) {
		return nil, io.EOF
	}
	h := e.headers[e.pos]
	e.pos++
	return h, nil
}

func (e *echoBasicReader) Payload() io.ByteReader {
	return bytes.NewReader(e.payloads[e.pos-1])
}

func init() {
	RegisterCodec("-test-", func(src io.ByteReader) (io.Reader, error) {
		return identityReader{src}, nil
	})
}

// identityReader adapts an io.ByteReader back into an io.Reader one
// byte at a time: a minimal "no compression" codec for tests.
type identityReader struct {
	src io.ByteReader
}

func (r identityReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, io.EOF
	}
	p[0] = b
	return 1, nil
}

func crcAndLen(data []byte) (uint16, int64) {
	var crc uint16
	for _, b := range data {
		crc = updateCRC16(crc, b)
	}
	return crc, int64(len(data))
}

func TestExtractAllFileAndDir(t *testing.T) {
	dest := t.TempDir()
	content := []byte("hello, archive")
	crc, length := crcAndLen(content)

	basic := &echoBasicReader{
		headers: []*FileHeader{
			dirHeader("sub/"),
			{Path: "sub/", Filename: "f", CompressMethod: "-test-", Length: length, CRC: crc},
		},
		payloads: [][]byte{nil, content},
	}

	r := NewReader(basic, WithDirPolicy(PolicyEndOfDir))
	ext, err := NewExtractor(r)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	defer ext.Close()

	ok, err := ext.ExtractAll(dest, nil)
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if !ok {
		t.Fatal("ExtractAll reported failure")
	}

	got, err := os.ReadFile(filepath.Join(dest, "sub", "f"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("got %q, want %q", got, content)
	}

	if fi, err := os.Stat(filepath.Join(dest, "sub")); err != nil || !fi.IsDir() {
		t.Fatalf("sub/ was not created as a directory: %v", err)
	}
}

func TestExtractDetectsCRCMismatch(t *testing.T) {
	dest := t.TempDir()
	content := []byte("payload")
	_, length := crcAndLen(content)

	basic := &echoBasicReader{
		headers: []*FileHeader{
			{Filename: "f", CompressMethod: "-test-", Length: length, CRC: 0xDEAD},
		},
		payloads: [][]byte{content},
	}

	r := NewReader(basic)
	ext, err := NewExtractor(r)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	defer ext.Close()

	ok, _ := ext.ExtractAll(dest, nil)
	if ok {
		t.Fatal("expected ExtractAll to report failure on CRC mismatch")
	}
}

func TestExtractMatchingCreatesMatchedAncestorDir(t *testing.T) {
	dest := t.TempDir()
	aContent := []byte("a")
	aCRC, aLen := crcAndLen(aContent)
	cContent := []byte("c")
	cCRC, cLen := crcAndLen(cContent)

	basic := &echoBasicReader{
		headers: []*FileHeader{
			{Filename: "a.txt", CompressMethod: "-test-", Length: aLen, CRC: aCRC},
			dirHeader("b/"),
			{Path: "b/", Filename: "c.txt", CompressMethod: "-test-", Length: cLen, CRC: cCRC},
		},
		payloads: [][]byte{aContent, nil, cContent},
	}

	r := NewReader(basic, WithDirPolicy(PolicyEndOfDir))
	ext, err := NewExtractor(r)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	defer ext.Close()

	ok, err := ext.ExtractMatching("b/c.txt", dest, nil)
	if err != nil {
		t.Fatalf("ExtractMatching: %v", err)
	}
	if !ok {
		t.Fatal("ExtractMatching reported failure")
	}

	if fi, err := os.Stat(filepath.Join(dest, "b")); err != nil || !fi.IsDir() {
		t.Fatalf("b/ was not created as a directory: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "b", "c.txt"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if !bytes.Equal(got, cContent) {
		t.Fatalf("got %q, want %q", got, cContent)
	}
	if _, err := os.Stat(filepath.Join(dest, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("a.txt should not have been extracted, got err=%v", err)
	}
}

func TestCheckMatchingSkipsNonMatchingAncestor(t *testing.T) {
	content := []byte("c")
	crc, length := crcAndLen(content)

	basic := &echoBasicReader{
		headers: []*FileHeader{
			dirHeader("b/"),
			{Path: "b/", Filename: "c.txt", CompressMethod: "-test-", Length: length, CRC: crc},
		},
		payloads: [][]byte{nil, content},
	}

	r := NewReader(basic, WithDirPolicy(PolicyEndOfDir))
	ext, err := NewExtractor(r)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	defer ext.Close()

	ok, err := ext.CheckMatching("b/nomatch.txt", nil)
	if err != nil {
		t.Fatalf("CheckMatching: %v", err)
	}
	if !ok {
		t.Fatal("CheckMatching with no matches should report ok=true")
	}
}

func TestCheckAllDoesNotWriteFiles(t *testing.T) {
	dest := t.TempDir()
	content := []byte("check only")
	crc, length := crcAndLen(content)

	basic := &echoBasicReader{
		headers: []*FileHeader{
			{Filename: "f", CompressMethod: "-test-", Length: length, CRC: crc},
		},
		payloads: [][]byte{content},
	}

	r := NewReader(basic)
	ext, err := NewExtractor(r)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	defer ext.Close()

	ok, err := ext.CheckAll(nil)
	if err != nil || !ok {
		t.Fatalf("CheckAll: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "f")); !os.IsNotExist(err) {
		t.Fatalf("CheckAll must not write to disk, got err=%v", err)
	}
}
