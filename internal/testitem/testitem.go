// Package testitem is the fixture codec shared by the core's tests: a
// key:1|len:1|value item, ported from the Rust reference's
// MockStorageItem so test scenarios can be checked against the same
// on-wire shape the spec's scenario table describes.
package testitem

import (
	"fmt"

	"github.com/flashmap/flashmap/item"
)

// Item is a test fixture value: a one-byte key and an arbitrary-length
// (up to 255 bytes) value.
type Item struct {
	Key   byte
	Value []byte
}

// Kind classifies an Error the way MockStorageItemError does.
type Kind int

const (
	KindBufferTooSmall Kind = iota
	KindInvalidKey
	KindBufferTooBig
)

// Error is testitem's item.Error implementation.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindBufferTooSmall:
		return "testitem: buffer too small"
	case KindInvalidKey:
		return "testitem: key byte 0xFF is reserved for the erased sentinel"
	case KindBufferTooBig:
		return "testitem: value longer than 255 bytes"
	default:
		return "testitem: unknown error"
	}
}

func (e *Error) IsBufferTooSmall() bool { return e.Kind == KindBufferTooSmall }

// Codec implements item.Codec[byte, Item].
type Codec struct{}

func (Codec) SerializeInto(value Item, buf []byte) (int, item.Error) {
	if len(buf) < 2+len(value.Value) {
		return 0, &Error{Kind: KindBufferTooSmall}
	}
	if len(value.Value) > 255 {
		return 0, &Error{Kind: KindBufferTooBig}
	}
	// 0xFF is the reader's end-of-data sentinel: a key byte of 0xFF
	// would make a one-byte item indistinguishable from erased flash.
	if value.Key == 0xFF {
		return 0, &Error{Kind: KindInvalidKey}
	}
	buf[0] = value.Key
	buf[1] = byte(len(value.Value))
	copy(buf[2:], value.Value)
	return 2 + len(value.Value), nil
}

func (Codec) DeserializeFrom(buf []byte) (Item, int, item.Error) {
	if len(buf) < 2 {
		return Item{}, 0, &Error{Kind: KindBufferTooSmall}
	}
	if buf[0] == 0xFF {
		return Item{}, 0, &Error{Kind: KindInvalidKey}
	}
	n := int(buf[1])
	if len(buf) < 2+n {
		return Item{}, 0, &Error{Kind: KindBufferTooSmall}
	}
	value := make([]byte, n)
	copy(value, buf[2:2+n])
	return Item{Key: buf[0], Value: value}, 2 + n, nil
}

func (Codec) Key(value Item) byte { return value.Key }

// String helps test failure messages read like "key=3 value=[1 2 3]".
func (it Item) String() string {
	return fmt.Sprintf("key=%d value=%v", it.Key, it.Value)
}
