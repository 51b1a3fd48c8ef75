// Package kvcodec implements the item.Codec flashmapctl uses for its
// get/put commands: a string key, string value pair. Layout mirrors
// internal/testitem's key|len|value shape, widened to a
// two-byte length and a variable-length key so interactive keys aren't
// limited to a single byte.
package kvcodec

import (
	"encoding/binary"

	"github.com/flashmap/flashmap/item"
)

// Record is one key/value pair as the CLI sees it.
type Record struct {
	Key   string
	Value string
}

// Kind classifies an Error.
type Kind int

const (
	KindBufferTooSmall Kind = iota
	KindKeyTooLong
	KindValueTooLong
	KindInvalidKey
)

// Error is kvcodec's item.Error implementation.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBufferTooSmall:
		return "kvcodec: buffer too small"
	case KindKeyTooLong:
		return "kvcodec: key longer than 254 bytes"
	case KindValueTooLong:
		return "kvcodec: value too long to fit a uint16 length prefix"
	case KindInvalidKey:
		return "kvcodec: reserved key length prefix 0xFF"
	default:
		return "kvcodec: unknown error"
	}
}

func (e *Error) IsBufferTooSmall() bool { return e.Kind == KindBufferTooSmall }

// Codec implements item.Codec[string, Record]. Wire format:
// keyLen(1) | key | valueLen(2, big-endian) | value.
type Codec struct{}

func (Codec) SerializeInto(rec Record, buf []byte) (int, item.Error) {
	// A key length byte of 0xFF is reserved: it would make the item
	// indistinguishable from the reader's erased-tail sentinel.
	if len(rec.Key) > 254 {
		return 0, &Error{Kind: KindKeyTooLong}
	}
	if len(rec.Value) > 0xFFFF {
		return 0, &Error{Kind: KindValueTooLong}
	}
	need := 1 + len(rec.Key) + 2 + len(rec.Value)
	if len(buf) < need {
		return 0, &Error{Kind: KindBufferTooSmall}
	}
	buf[0] = byte(len(rec.Key))
	off := 1
	off += copy(buf[off:], rec.Key)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(rec.Value)))
	off += 2
	off += copy(buf[off:], rec.Value)
	return off, nil
}

func (Codec) DeserializeFrom(buf []byte) (Record, int, item.Error) {
	if len(buf) < 1 {
		return Record{}, 0, &Error{Kind: KindBufferTooSmall}
	}
	if buf[0] == 0xFF {
		return Record{}, 0, &Error{Kind: KindInvalidKey}
	}
	keyLen := int(buf[0])
	if len(buf) < 1+keyLen+2 {
		return Record{}, 0, &Error{Kind: KindBufferTooSmall}
	}
	off := 1
	key := string(buf[off : off+keyLen])
	off += keyLen
	valLen := int(binary.BigEndian.Uint16(buf[off:]))
	off += 2
	if len(buf) < off+valLen {
		return Record{}, 0, &Error{Kind: KindBufferTooSmall}
	}
	value := string(buf[off : off+valLen])
	off += valLen
	return Record{Key: key, Value: value}, off, nil
}

func (Codec) Key(rec Record) string { return rec.Key }
