package flashmap

import (
	"fmt"

	"github.com/flashmap/flashmap/item"
)

// Kind classifies a MapError the way spec.md §7 enumerates the core's
// error taxonomy.
type Kind int

const (
	// KindItem means the codec reported an error other than
	// buffer-too-small during a legitimate decode/encode attempt.
	KindItem Kind = iota
	// KindStorage means the flash driver reported a fault.
	KindStorage
	// KindFullStorage means Store's recursion depth equalled the page
	// count without finding room. The item was not written.
	KindFullStorage
	// KindCorrupted means an impossible page-state combination was
	// observed. Recommended recovery: erase the region.
	KindCorrupted
	// KindBufferTooBig surfaces only if upstream layers propagate it.
	KindBufferTooBig
	// KindBufferTooSmall surfaces only if upstream layers propagate it.
	KindBufferTooSmall
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindStorage:
		return "storage"
	case KindFullStorage:
		return "full storage"
	case KindCorrupted:
		return "corrupted"
	case KindBufferTooBig:
		return "buffer too big"
	case KindBufferTooSmall:
		return "buffer too small"
	default:
		return "unknown"
	}
}

// MapError is the error type every public flashmap operation returns.
type MapError struct {
	Kind Kind
	Err  error
}

func (e *MapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flashmap: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("flashmap: %s", e.Kind)
}

func (e *MapError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, flashmap.ErrFullStorage) (and the other
// sentinels below) work by comparing kinds, ignoring the wrapped detail.
func (e *MapError) Is(target error) bool {
	t, ok := target.(*MapError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons against kinds that carry no extra
// detail.
var (
	ErrFullStorage    = &MapError{Kind: KindFullStorage}
	ErrCorrupted      = &MapError{Kind: KindCorrupted}
	ErrBufferTooBig   = &MapError{Kind: KindBufferTooBig}
	ErrBufferTooSmall = &MapError{Kind: KindBufferTooSmall}
)

func errItem(err error) error {
	return &MapError{Kind: KindItem, Err: err}
}

func errStorage(err error) error {
	return &MapError{Kind: KindStorage, Err: err}
}

func errCorrupted(reason string) error {
	return &MapError{Kind: KindCorrupted, Err: fmt.Errorf("%s", reason)}
}

// wrapReaderErr classifies an error surfaced by an item.Reader: a codec
// decode failure becomes KindItem, anything else (a flash read fault)
// becomes KindStorage.
func wrapReaderErr(err error) error {
	if ie, ok := err.(item.Error); ok {
		return errItem(ie)
	}
	return errStorage(err)
}
