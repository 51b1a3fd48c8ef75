package flashmap_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/flashmap/flashmap/flash/mockflash"
	"github.com/flashmap/flashmap/flashmap"
	"github.com/flashmap/flashmap/internal/testitem"
)

func bigFlash() (flashmap.Region, *mockflash.Flash) {
	const (
		writeSize = 4
		eraseSize = 256
		size      = 0x1000 // 16 pages
	)
	return flashmap.Region{Start: 0, End: size}, mockflash.New(size, writeSize, eraseSize)
}

func TestStoreAndFetchRoundtrip(t *testing.T) {
	ctx := context.Background()
	r, d := bigFlash()
	codec := testitem.Codec{}

	_, found, err := flashmap.Fetch(ctx, d, r, codec, byte(0))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("want not found on empty store")
	}

	store := func(key byte, value []byte) {
		t.Helper()
		if err := flashmap.Store(ctx, d, r, codec, testitem.Item{Key: key, Value: value}); err != nil {
			t.Fatalf("store key %d: %v", key, err)
		}
	}
	fetch := func(key byte) testitem.Item {
		t.Helper()
		v, found, err := flashmap.Fetch(ctx, d, r, codec, key)
		if err != nil {
			t.Fatalf("fetch key %d: %v", key, err)
		}
		if !found {
			t.Fatalf("fetch key %d: want found", key)
		}
		return v
	}

	store(0, []byte{5})
	store(0, []byte{5, 6})

	if got := fetch(0); !bytes.Equal(got.Value, []byte{5, 6}) {
		t.Errorf("want [5 6] got %v", got.Value)
	}

	store(1, []byte{2, 2, 2, 2, 2, 2})

	if got := fetch(0); !bytes.Equal(got.Value, []byte{5, 6}) {
		t.Errorf("want [5 6] got %v (independence of key 1's store)", got.Value)
	}
	if got := fetch(1); !bytes.Equal(got.Value, []byte{2, 2, 2, 2, 2, 2}) {
		t.Errorf("want [2 2 2 2 2 2] got %v", got.Value)
	}

	// Enough churn to force several page rotations.
	for i := 0; i < 400; i++ {
		key := byte(i % 10)
		store(key, bytes.Repeat([]byte{key * 2}, i%10))
	}
	for i := byte(0); i < 10; i++ {
		got := fetch(i)
		want := bytes.Repeat([]byte{i * 2}, int(i))
		if !bytes.Equal(got.Value, want) {
			t.Errorf("key %d: want %v got %v", i, want, got.Value)
		}
	}
}

func TestStoreRespectsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	r, d := bigFlash()
	codec := testitem.Codec{}

	for i := 0; i < 500; i++ {
		if err := flashmap.Store(ctx, d, r, codec, testitem.Item{Key: 11, Value: bytes.Repeat([]byte{byte(i)}, 10)}); err != nil {
			t.Fatalf("store iteration %d: %v", i, err)
		}
	}

	v, found, err := flashmap.Fetch(ctx, d, r, codec, byte(11))
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("want found")
	}
	if want := bytes.Repeat([]byte{byte(499 % 256)}, 10); !bytes.Equal(v.Value, want) {
		t.Errorf("want the last stored value %v got %v", want, v.Value)
	}
}

func TestStoreReturnsFullStorageWhenCapacityExhausted(t *testing.T) {
	ctx := context.Background()
	const (
		writeSize = 1
		eraseSize = 32
		size      = 0x40 // 2 pages
	)
	r := flashmap.Region{Start: 0, End: size}
	d := mockflash.New(size, writeSize, eraseSize)
	codec := testitem.Codec{}

	var stored int
	var storeErr error
	for i := byte(0); i < 40; i++ {
		storeErr = flashmap.Store(ctx, d, r, codec, testitem.Item{Key: i, Value: bytes.Repeat([]byte{i}, int(i))})
		if storeErr != nil {
			break
		}
		stored++
	}

	if storeErr == nil {
		t.Fatal("want an eventual ErrFullStorage as items keep growing")
	}
	if !errors.Is(storeErr, flashmap.ErrFullStorage) {
		t.Errorf("want ErrFullStorage got %v", storeErr)
	}

	for i := byte(0); i < byte(stored); i++ {
		v, found, err := flashmap.Fetch(ctx, d, r, codec, i)
		if err != nil {
			t.Fatalf("fetch key %d: %v", i, err)
		}
		if !found {
			t.Errorf("key %d: want still found after the later store failed", i)
		}
		if !bytes.Equal(v.Value, bytes.Repeat([]byte{i}, int(i))) {
			t.Errorf("key %d: want %v got %v", i, bytes.Repeat([]byte{i}, int(i)), v.Value)
		}
	}
}

func TestFetchSurvivesReboot(t *testing.T) {
	ctx := context.Background()
	r, d := bigFlash()
	codec := testitem.Codec{}

	if err := flashmap.Store(ctx, d, r, codec, testitem.Item{Key: 7, Value: []byte("durable")}); err != nil {
		t.Fatal(err)
	}

	snapshot := d.Snapshot()
	rebooted := mockflash.Restore(snapshot, 4, 256)

	v, found, err := flashmap.Fetch(ctx, rebooted, r, codec, byte(7))
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("want found after reboot")
	}
	if string(v.Value) != "durable" {
		t.Errorf("want \"durable\" got %q", v.Value)
	}
}
