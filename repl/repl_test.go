package repl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flashmap/flashmap/flash/mockflash"
	"github.com/flashmap/flashmap/flashmap"
)

func TestReplPutThenGet(t *testing.T) {
	d := mockflash.New(4096, 4, 256)
	r := New(d, flashmap.Region{Start: 0, End: 4096}, zap.NewNop().Sugar())

	in := bytes.NewBufferString("put greeting hello\nget greeting\n.exit\n")
	out := &bytes.Buffer{}
	r.Run(in, out)

	require.Contains(t, out.String(), "OK")
	require.Contains(t, out.String(), "hello")
}

func TestReplGetMissingKey(t *testing.T) {
	d := mockflash.New(4096, 4, 256)
	r := New(d, flashmap.Region{Start: 0, End: 4096}, zap.NewNop().Sugar())

	in := bytes.NewBufferString("get nope\n.exit\n")
	out := &bytes.Buffer{}
	r.Run(in, out)

	require.Contains(t, out.String(), "(not found)")
}

func TestReplStats(t *testing.T) {
	d := mockflash.New(4096, 4, 256)
	r := New(d, flashmap.Region{Start: 0, End: 4096}, zap.NewNop().Sugar())

	in := bytes.NewBufferString("put a b\n.stats\n.exit\n")
	out := &bytes.Buffer{}
	r.Run(in, out)

	require.Contains(t, out.String(), "reads=")
	require.Contains(t, out.String(), "writes=")
}
