// Package item implements the lazy, fixed-window item stream reader
// (§4.3) and the codec contract (§6.2) the caller implements to tell the
// core how to (de)serialize its values.
package item

// MaxSize is the maximum serialized size of an item, and the dimension
// of the fixed scratch window the reader and the store fast-path use.
// Named quartiq/sequential-storage's MAX_STORAGE_ITEM_SIZE.
const MaxSize = 512

// Error is the contract a codec's error type must satisfy so the reader
// can tell a "the buffer you gave me was too small" outcome apart from
// every other decode failure.
type Error interface {
	error
	// IsBufferTooSmall reports whether this error means the provided
	// buffer could not hold the encoded/decoded item.
	IsBufferTooSmall() bool
}

// Codec serializes and deserializes values of type V keyed by K. K must
// be comparable so the core can test keys for equality without hashing
// or ordering it.
//
// SerializeInto must emit at least one byte and must never emit a byte
// sequence that is entirely 0xFF (append a trailing zero byte if the
// natural encoding would be all-0xFF) — that pattern is the reader's
// only end-of-data sentinel. It must report a buffer-too-small Error
// when buf cannot hold the encoded value.
//
// DeserializeFrom must report a buffer-too-small Error on truncated
// input and must reject an all-0xFF prefix.
type Codec[K comparable, V any] interface {
	SerializeInto(value V, buf []byte) (usedBytes int, err Error)
	DeserializeFrom(buf []byte) (value V, usedBytes int, err Error)
	Key(value V) K
}
