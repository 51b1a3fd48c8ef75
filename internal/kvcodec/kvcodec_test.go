package kvcodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundtrip(t *testing.T) {
	codec := Codec{}
	rec := Record{Key: "hello", Value: "world"}

	buf := make([]byte, 64)
	n, err := codec.SerializeInto(rec, buf)
	require.Nil(t, err)

	got, usedBytes, err := codec.DeserializeFrom(buf[:n])
	require.Nil(t, err)
	require.Equal(t, n, usedBytes)
	require.Equal(t, rec, got)
}

func TestSerializeBufferTooSmall(t *testing.T) {
	codec := Codec{}
	rec := Record{Key: "hello", Value: "world"}

	buf := make([]byte, 3)
	_, err := codec.SerializeInto(rec, buf)
	require.NotNil(t, err)
	require.True(t, err.IsBufferTooSmall())
}

func TestKeyTooLongRejected(t *testing.T) {
	codec := Codec{}
	rec := Record{Key: string(make([]byte, 255)), Value: "x"}

	buf := make([]byte, 512)
	_, err := codec.SerializeInto(rec, buf)
	require.NotNil(t, err)
	require.False(t, err.IsBufferTooSmall())
}

func TestDeserializeRejectsReservedKeyLengthPrefix(t *testing.T) {
	codec := Codec{}

	_, _, err := codec.DeserializeFrom([]byte{0xFF, 0, 0})
	require.NotNil(t, err)
	require.False(t, err.IsBufferTooSmall())
}

func TestKey(t *testing.T) {
	codec := Codec{}
	require.Equal(t, "abc", codec.Key(Record{Key: "abc", Value: "x"}))
}
