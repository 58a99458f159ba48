// Copyright (c) Elliot Nunn

// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2.1 of the License, or (at your option) any later version.

// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

// Package lhnew implements the "new-style" LZSS+Huffman decoder shared by
// the -lh4-, -lh5-, -lh6- and -lh7- LHA compression methods: a bit-accurate
// reader, a canonical-Huffman code tree and offset tree rebuilt every
// block, and a sliding ring-buffer history.
package lhnew

import (
	"errors"
	"io"
	"log/slog"
)

// ErrCorrupt is returned when the bitstream runs out mid-symbol or
// mid-header: a truncated or malformed member.
var ErrCorrupt = errors.New("lhnew: corrupt or truncated bitstream")

const maxTempCodes = 20 // MAX_TEMP_CODES
const maxCodeSymbols = 510

// Params fixes the two knobs that distinguish -lh4- through -lh7-: the
// width of the ring buffer and the width of the "no" field that precedes
// the offset table. ProgressUnit is the number of output bytes that
// constitute one "block" for progress reporting purposes (§6).
type Params struct {
	HistoryBits  uint
	OffsetBits   uint
	ProgressUnit int
}

// RingSize is 1<<HistoryBits, the size of the LZSS history window.
func (p Params) RingSize() int { return 1 << p.HistoryBits }

// Codecs holds the fixed parameter sets for the four LH-new variants,
// keyed by their 5-byte method tag.
var Codecs = map[string]Params{
	"-lh4-": {HistoryBits: 12, OffsetBits: 4, ProgressUnit: 0}, // divisor 4, filled in below
	"-lh5-": {HistoryBits: 13, OffsetBits: 4},
	"-lh6-": {HistoryBits: 15, OffsetBits: 5},
	"-lh7-": {HistoryBits: 16, OffsetBits: 5},
}

func init() {
	for tag, p := range Codecs {
		if tag == "-lh4-" {
			p.ProgressUnit = p.RingSize() / 4
		} else {
			p.ProgressUnit = p.RingSize() / 2
		}
		Codecs[tag] = p
	}
}

// Decoder is a single LH-new bitstream, parameterized by Params. It
// implements io.Reader: each Read call decodes exactly one code symbol
// (one literal byte, or one LZSS copy of up to 258 bytes) and is
// guaranteed never to need a buffer larger than RingSize to do so.
type Decoder struct {
	params Params
	bits   *bitReader

	ring    []byte
	ringPos int

	blockRemaining int

	codeTree   *huffTree
	tempTree   *huffTree
	offsetTree *huffTree

	failed bool

	progress     func(done, total int)
	progressUnit int
	totalBytes   int64
	doneBytes    int64
	doneUnits    int

	log        *slog.Logger
	blocksRead int
}

// NewDecoder creates a fresh decoder reading from src. The ring buffer is
// pre-filled with ASCII spaces, matching the reference encoder's initial
// dictionary contents. Logging defaults to slog.Default(); override with
// SetLogger.
func NewDecoder(params Params, src io.ByteReader) *Decoder {
	d := &Decoder{
		params:     params,
		bits:       newBitReader(src),
		ring:       make([]byte, params.RingSize()),
		codeTree:   newHuffTree(maxCodeSymbols),
		tempTree:   newHuffTree(maxTempCodes),
		offsetTree: newHuffTree(maxTempCodes),
		log:        slog.Default(),
	}
	for i := range d.ring {
		d.ring[i] = ' '
	}
	return d
}

// SetLogger overrides the default slog.Default() logger, letting a caller
// (typically Reader.openDecoder) route per-block diagnostics through its
// own handler.
func (d *Decoder) SetLogger(l *slog.Logger) {
	if l != nil {
		d.log = l
	}
}

// SetProgress installs a callback invoked as output crosses each
// params.ProgressUnit boundary, with total computed from totalBytes.
func (d *Decoder) SetProgress(totalBytes int64, cb func(done, total int)) {
	d.totalBytes = totalBytes
	d.progress = cb
	d.progressUnit = d.params.ProgressUnit
	if d.progressUnit <= 0 {
		d.progressUnit = d.params.RingSize()
	}
}

// RingSize reports the minimum buffer size Read needs.
func (d *Decoder) RingSize() int { return len(d.ring) }

// Read decodes exactly one code symbol into p, returning the number of
// plaintext bytes produced (always in [1, RingSize()]). It returns
// ErrCorrupt once the bitstream runs out before a full symbol (or a new
// block header) can be read, or a decoded copy would be longer than
// RingSize(); that failure is sticky.
func (d *Decoder) Read(p []byte) (int, error) {
	if d.failed {
		return 0, ErrCorrupt
	}
	if len(p) < len(d.ring) {
		return 0, errors.New("lhnew: output buffer smaller than ring size")
	}

	for d.blockRemaining == 0 {
		if !d.readBlockHeader() {
			d.failed = true
			return 0, ErrCorrupt
		}
	}

	sym := d.codeTree.readFromTree(d.bits)
	if sym < 0 {
		d.failed = true
		return 0, ErrCorrupt
	}
	d.blockRemaining--

	if sym < 256 {
		d.ring[d.ringPos] = byte(sym)
		p[0] = byte(sym)
		d.ringPos = (d.ringPos + 1) % len(d.ring)
		d.advance(1)
		return 1, nil
	}

	length := sym - 256 + 3
	if length > len(d.ring) {
		d.failed = true
		return 0, ErrCorrupt
	}

	bitsLen := d.offsetTree.readFromTree(d.bits)
	if bitsLen < 0 {
		d.failed = true
		return 0, ErrCorrupt
	}

	var offset int
	switch {
	case bitsLen == 0:
		offset = 0
	case bitsLen == 1:
		offset = 1
	default:
		v, eof := d.bits.readBits(uint(bitsLen - 1))
		if eof {
			d.failed = true
			return 0, ErrCorrupt
		}
		offset = (1 << uint(bitsLen-1)) + v
	}

	src := d.ringPos - offset - 1
	src %= len(d.ring)
	if src < 0 {
		src += len(d.ring)
	}

	for i := 0; i < length; i++ {
		b := d.ring[src]
		d.ring[d.ringPos] = b
		p[i] = b
		src = (src + 1) % len(d.ring)
		d.ringPos = (d.ringPos + 1) % len(d.ring)
	}
	d.advance(length)
	return length, nil
}

func (d *Decoder) advance(n int) {
	if d.progress == nil {
		return
	}
	d.doneBytes += int64(n)
	for int64(d.doneUnits+1)*int64(d.progressUnit) <= d.doneBytes {
		d.doneUnits++
	}
	total := int(d.totalBytes / int64(d.progressUnit))
	if d.totalBytes%int64(d.progressUnit) != 0 {
		total++
	}
	d.progress(d.doneUnits, total)
}

// readLength implements the shared 3-bit-plus-unary-tail length encoding
// used by both the temp table and the offset table.
func (d *Decoder) readLength() (int, bool) {
	l, eof := d.bits.readBits(3)
	if eof {
		return 0, true
	}
	if l == 7 {
		for {
			b, eof := d.bits.readBit()
			if eof {
				return 0, true
			}
			if b == 0 {
				break
			}
			l++
		}
	}
	return l, false
}

// readBlockHeader reads one block's worth of block_len, temp table, code
// table and offset table, per §4.C. It returns false on EOF.
func (d *Decoder) readBlockHeader() bool {
	blockLen, eof := d.bits.readBits(16)
	if eof {
		return false
	}
	d.blockRemaining = blockLen

	if !d.readTempTable() {
		return false
	}
	if !d.readCodeTable() {
		return false
	}
	if !d.readOffsetTable() {
		return false
	}
	d.blocksRead++
	d.log.Debug("lhnew block decoded",
		"block", d.blocksRead, "block_len", blockLen, "history_bits", d.params.HistoryBits)
	return true
}

func (d *Decoder) readTempTable() bool {
	nt, eof := d.bits.readBits(5)
	if eof {
		return false
	}
	if nt == 0 {
		code, eof := d.bits.readBits(5)
		if eof {
			return false
		}
		d.tempTree.setTreeSingle(code)
		return true
	}

	n := nt
	if n > maxTempCodes {
		d.log.Warn("lhnew: nt exceeds MAX_TEMP_CODES, clamping", "nt", nt, "max", maxTempCodes)
		n = maxTempCodes
	}
	lengths := make([]int, maxTempCodes)
	i := 0
	for i < n {
		l, eof := d.readLength()
		if eof {
			return false
		}
		lengths[i] = l
		i++
		if i == 3 {
			pad, eof := d.bits.readBits(2)
			if eof {
				return false
			}
			for pad > 0 && i < len(lengths) {
				lengths[i] = 0
				i++
				pad--
			}
		}
	}
	d.tempTree.buildTree(lengths)
	return true
}

func (d *Decoder) readCodeTable() bool {
	nc, eof := d.bits.readBits(9)
	if eof {
		return false
	}
	if nc == 0 {
		code, eof := d.bits.readBits(9)
		if eof {
			return false
		}
		d.codeTree.setTreeSingle(code)
		return true
	}

	n := nc
	if n > maxCodeSymbols {
		d.log.Warn("lhnew: nc exceeds max code symbols, clamping", "nc", nc, "max", maxCodeSymbols)
		n = maxCodeSymbols
	}
	lengths := make([]int, maxCodeSymbols)
	i := 0
	for i < n {
		sym := d.tempTree.readFromTree(d.bits)
		if sym < 0 {
			return false
		}
		if sym <= 2 {
			var skip int
			switch sym {
			case 0:
				skip = 1
			case 1:
				v, eof := d.bits.readBits(4)
				if eof {
					return false
				}
				skip = v + 3
			case 2:
				v, eof := d.bits.readBits(9)
				if eof {
					return false
				}
				skip = v + 20
			}
			for k := 0; k < skip && i < len(lengths); k++ {
				lengths[i] = 0
				i++
			}
		} else {
			lengths[i] = sym - 2
			i++
		}
	}
	d.codeTree.buildTree(lengths)
	return true
}

func (d *Decoder) readOffsetTable() bool {
	no, eof := d.bits.readBits(d.params.OffsetBits)
	if eof {
		return false
	}
	if no == 0 {
		code, eof := d.bits.readBits(d.params.OffsetBits)
		if eof {
			return false
		}
		d.offsetTree.setTreeSingle(code)
		return true
	}

	n := no
	if int(d.params.HistoryBits) < n {
		d.log.Warn("lhnew: no exceeds HISTORY_BITS, clamping", "no", no, "max", d.params.HistoryBits)
		n = int(d.params.HistoryBits)
	}
	lengths := make([]int, d.params.HistoryBits)
	for i := 0; i < n; i++ {
		l, eof := d.readLength()
		if eof {
			return false
		}
		lengths[i] = l
	}
	d.offsetTree.buildTree(lengths)
	return true
}
