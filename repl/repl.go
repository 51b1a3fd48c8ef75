// Package repl adapts flashmap's Fetch and Store to an interactive
// command line, the way the teacher's repl package adapted its SQL
// engine to one: a scan loop over stdin, dot-commands handled inline,
// everything else dispatched to the store.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/flashmap/flashmap/flash"
	"github.com/flashmap/flashmap/flashmap"
	"github.com/flashmap/flashmap/internal/kvcodec"
)

// Counters is satisfied by flash.Driver implementations that expose
// operation counts for .stats, such as flash/mockflash.
type Counters interface {
	ReadCount() int
	WriteCount() int
	EraseCount() int
}

type repl struct {
	driver flash.Driver
	region flashmap.Region
	log    *zap.SugaredLogger
	out    io.Writer
}

// New builds a repl operating against driver over region.
func New(driver flash.Driver, region flashmap.Region, log *zap.SugaredLogger) *repl {
	return &repl{driver: driver, region: region, log: log, out: nil}
}

// Run reads commands from in until EOF or .exit, writing output to out.
func (r *repl) Run(in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "Welcome to flashmapctl. Type .exit to exit, .stats for counters")
	r.out = out
	scanner := bufio.NewScanner(in)
	for r.prompt(out) && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '.' {
			if r.dotCommand(line) {
				return
			}
			continue
		}
		r.dispatch(line)
	}
}

func (*repl) prompt(out io.Writer) bool {
	fmt.Fprint(out, "flashmap > ")
	return true
}

// dotCommand handles a leading-dot directive, returning true if the repl
// should stop.
func (r *repl) dotCommand(line string) bool {
	switch line {
	case ".exit":
		return true
	case ".stats":
		r.printStats()
		return false
	default:
		fmt.Fprintf(r.out, "Err: unrecognized command %q\n", line)
		return false
	}
}

func (r *repl) printStats() {
	c, ok := r.driver.(Counters)
	if !ok {
		fmt.Fprintln(r.out, "stats unavailable for this backend")
		return
	}
	fmt.Fprintf(r.out, "reads=%s writes=%s erases=%s\n",
		humanize.Comma(int64(c.ReadCount())),
		humanize.Comma(int64(c.WriteCount())),
		humanize.Comma(int64(c.EraseCount())))
}

// dispatch parses "get <key>" or "put <key> <value...>" and runs it
// against flashmap.
func (r *repl) dispatch(line string) {
	fields := strings.SplitN(line, " ", 3)
	switch fields[0] {
	case "get":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "Err: usage: get <key>")
			return
		}
		r.get(fields[1])
	case "put":
		if len(fields) < 3 {
			fmt.Fprintln(r.out, "Err: usage: put <key> <value>")
			return
		}
		r.put(fields[1], fields[2])
	default:
		fmt.Fprintf(r.out, "Err: unrecognized command %q\n", fields[0])
	}
}

func (r *repl) get(key string) {
	ctx := context.Background()
	rec, found, err := flashmap.Fetch(ctx, r.driver, r.region, kvcodec.Codec{}, key)
	if err != nil {
		fmt.Fprintf(r.out, "Err: %v\n", err)
		r.log.Errorw("get failed", "key", key, "error", err)
		return
	}
	if !found {
		fmt.Fprintln(r.out, "(not found)")
		return
	}
	fmt.Fprintln(r.out, rec.Value)
}

func (r *repl) put(key, value string) {
	ctx := context.Background()
	rec := kvcodec.Record{Key: key, Value: value}
	if err := flashmap.Store(ctx, r.driver, r.region, kvcodec.Codec{}, rec); err != nil {
		fmt.Fprintf(r.out, "Err: %v\n", err)
		r.log.Errorw("put failed", "key", key, "error", err)
		return
	}
	fmt.Fprintln(r.out, "OK")
}
