// Package console exposes a grid over a line-oriented text protocol.
//
// Each request is one line: a case-insensitive verb followed by space
// separated arguments. Each reply ends with a line reading OK, or with a
// single line beginning "ERR ". Queries print their value lines before OK.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/botgrid/internal/botgrid"
	"github.com/banshee-data/botgrid/internal/monitoring"
	"github.com/banshee-data/botgrid/internal/render"
	"github.com/banshee-data/botgrid/internal/store"
)

// ErrNoStore is reported by SNAPSHOT when the console has no store.
var ErrNoStore = errors.New("no snapshot store configured")

// Console serves commands against a shared grid.
type Console struct {
	grid      *botgrid.Locked
	snapshots store.SnapshotWriter
	metrics   *monitoring.Metrics
}

// Option configures a Console.
type Option func(*Console)

// WithSnapshots enables the SNAPSHOT verb.
func WithSnapshots(w store.SnapshotWriter) Option {
	return func(c *Console) { c.snapshots = w }
}

// WithMetrics counts handled verbs.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Console) { c.metrics = m }
}

// New returns a console for g.
func New(g *botgrid.Locked, opts ...Option) *Console {
	c := &Console{grid: g}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Serve reads commands from rw and writes replies back until EOF, a read
// error, or ctx is cancelled. EOF returns nil.
func (c *Console) Serve(ctx context.Context, rw io.ReadWriter) error {
	// Cancelled on return so the scanner goroutine never blocks on lineChan.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scan := bufio.NewScanner(rw)
	out := bufio.NewWriter(rw)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Scan in a goroutine so a blocked read does not hold up cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			c.Exec(ctx, out, line)
			if err := out.Flush(); err != nil {
				return fmt.Errorf("console write: %w", err)
			}
		}
	}
}

// Exec runs a single command line and writes its reply to w.
func (c *Console) Exec(ctx context.Context, w io.Writer, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	verb := strings.ToUpper(fields[0])
	args := fields[1:]

	cmd, ok := lookupCommand(verb)
	if !ok {
		c.metrics.Command("unknown")
		fmt.Fprintf(w, "ERR unknown command %q\n", fields[0])
		return
	}
	c.metrics.Command(strings.ToLower(verb))

	if cmd.args >= 0 && len(args) != cmd.args {
		fmt.Fprintf(w, "ERR usage: %s\n", cmd.usage)
		return
	}

	if err := c.run(ctx, w, verb, args); err != nil {
		monitoring.Debugf("console: %s: %v", verb, err)
		fmt.Fprintf(w, "ERR %v\n", err)
		return
	}
	fmt.Fprintln(w, "OK")
}

func (c *Console) run(ctx context.Context, w io.Writer, verb string, args []string) error {
	switch verb {
	case "SET":
		x, y, err := c.parseCell(args)
		if err != nil {
			return err
		}
		c.grid.Set(x, y)

	case "GET":
		x, y, err := c.parseCell(args)
		if err != nil {
			return err
		}
		if c.grid.Get(x, y) {
			fmt.Fprintln(w, "1")
		} else {
			fmt.Fprintln(w, "0")
		}

	case "FLUSH":
		return c.grid.Flush()

	case "EMPTY":
		fmt.Fprintln(w, strconv.FormatBool(c.grid.IsEmpty()))

	case "SHIFT":
		dx, err := parseInt8("dx", args[0])
		if err != nil {
			return err
		}
		dy, err := parseInt8("dy", args[1])
		if err != nil {
			return err
		}
		theta, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid theta %q", args[2])
		}
		stats, err := c.grid.Shift(dx, dy, theta)
		if err != nil {
			return err
		}
		if stats.Clipped > 0 {
			monitoring.Logf("console: shift(%d,%d,%d) moved %d cells, clipped %d", dx, dy, theta, stats.Moved, stats.Clipped)
		}

	case "COUNT":
		fmt.Fprintln(w, c.grid.Count())

	case "CELLS":
		for _, p := range c.grid.Cells() {
			fmt.Fprintf(w, "%d %d\n", p.X, p.Y)
		}

	case "PRINT":
		return c.grid.View(func(g *botgrid.Grid) error {
			return render.Text(w, g)
		})

	case "SNAPSHOT":
		return c.snapshot(ctx, w, strings.Join(args, " "))

	case "HELP":
		for _, cmd := range commands {
			fmt.Fprintln(w, cmd.usage)
		}
	}
	return nil
}

func (c *Console) snapshot(ctx context.Context, w io.Writer, reason string) error {
	if c.snapshots == nil {
		return ErrNoStore
	}
	if reason == "" {
		reason = store.ReasonManual
	}
	var snap *store.Snapshot
	if err := c.grid.View(func(g *botgrid.Grid) error {
		var err error
		snap, err = store.NewSnapshot(g, reason)
		return err
	}); err != nil {
		return err
	}
	if err := c.snapshots.Insert(ctx, snap); err != nil {
		return err
	}
	fmt.Fprintln(w, snap.SnapshotID)
	return nil
}

// parseCell parses and range-checks an "x y" pair against the grid axis.
func (c *Console) parseCell(args []string) (uint8, uint8, error) {
	axis := int(c.grid.Axis())
	var xy [2]uint8
	for i, name := range []string{"x", "y"} {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid %s %q", name, args[i])
		}
		if v < 0 || v >= axis {
			return 0, 0, fmt.Errorf("%s %d outside [0, %d)", name, v, axis)
		}
		xy[i] = uint8(v)
	}
	return xy[0], xy[1], nil
}

func parseInt8(name, s string) (int8, error) {
	v, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q (want -128..127)", name, s)
	}
	return int8(v), nil
}
