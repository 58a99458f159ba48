// Package journal implements the resumable-extraction record of §4.G.3:
// a durable, fingerprint-keyed note of which archive members have
// already been verified and written to disk, so a large batch
// extraction interrupted mid-run can skip completed members on retry.
package journal

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// Journal is a small key-value store over an open Pebble instance.
type Journal struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a journal at path.
func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying Pebble instance.
func (j *Journal) Close() error {
	return j.db.Close()
}

func key(fingerprint uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, fingerprint)
	return b
}

const recordSize = 8 + 2 + 8 // length + crc16 + extractedAt

// Lookup reports whether fingerprint is recorded with a matching length
// and CRC-16, meaning the member can safely be skipped.
func (j *Journal) Lookup(fingerprint, length uint64, crc16 uint16) (bool, error) {
	v, closer, err := j.db.Get(key(fingerprint))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()

	if len(v) < recordSize {
		return false, nil
	}
	gotLen := binary.LittleEndian.Uint64(v[0:8])
	gotCRC := binary.LittleEndian.Uint16(v[8:10])
	return gotLen == length && gotCRC == crc16, nil
}

// Record persists a verified extraction outcome under fingerprint.
func (j *Journal) Record(fingerprint, length uint64, crc16 uint16) error {
	v := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(v[0:8], length)
	binary.LittleEndian.PutUint16(v[8:10], crc16)
	binary.LittleEndian.PutUint64(v[10:18], uint64(time.Now().Unix()))
	return j.db.Set(key(fingerprint), v, pebble.Sync)
}
