package lhnew

import (
	"bytes"
	"testing"
)

func TestBitReaderAllOnes(t *testing.T) {
	data := bytes.Repeat([]byte{0xFF}, 8)
	for n := uint(1); n <= 16; n++ {
		r := newBitReader(bytes.NewReader(data))
		want := (1 << n) - 1
		for i := 0; i < 3; i++ {
			v, eof := r.readBits(n)
			if eof {
				t.Fatalf("n=%d: unexpected eof on read %d", n, i)
			}
			if v != want {
				t.Fatalf("n=%d: got %d, want %d", n, v, want)
			}
		}
	}
}

func TestBitReaderMSBFirst(t *testing.T) {
	// 0xA5 = 10100101
	r := newBitReader(bytes.NewReader([]byte{0xA5}))
	want := []int{1, 0, 1, 0, 0, 1, 0, 1}
	for i, w := range want {
		bit, eof := r.readBit()
		if eof {
			t.Fatalf("bit %d: unexpected eof", i)
		}
		if bit != w {
			t.Fatalf("bit %d: got %d, want %d", i, bit, w)
		}
	}
}

func TestBitReaderLatchesEOF(t *testing.T) {
	r := newBitReader(bytes.NewReader([]byte{0xFF}))
	if _, eof := r.readBits(8); eof {
		t.Fatal("unexpected eof consuming the only byte")
	}
	for i := 0; i < 3; i++ {
		if _, eof := r.readBit(); !eof {
			t.Fatalf("read %d: expected sticky eof", i)
		}
	}
}

func TestBitReaderCrossesByteBoundary(t *testing.T) {
	// 0x12, 0x34 = 00010010 00110100
	r := newBitReader(bytes.NewReader([]byte{0x12, 0x34}))
	v, eof := r.readBits(4)
	if eof || v != 0x1 {
		t.Fatalf("first nibble: got %d eof=%v, want 1", v, eof)
	}
	v, eof = r.readBits(12)
	if eof {
		t.Fatal("unexpected eof")
	}
	if v != 0x234 {
		t.Fatalf("remaining 12 bits: got %#x, want 0x234", v)
	}
}
