package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/botgrid/internal/botgrid"
	"github.com/banshee-data/botgrid/internal/monitoring"
	"github.com/banshee-data/botgrid/internal/store"
)

func init() {
	monitoring.SetLogger(nil)
}

type fakeSnapshots struct {
	saved []*store.Snapshot
	err   error
}

func (f *fakeSnapshots) Insert(_ context.Context, s *store.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	s.SnapshotID = "snap-1"
	f.saved = append(f.saved, s)
	return nil
}

type session struct {
	io.Reader
	io.Writer
}

func newConsole(t *testing.T, axis uint8, opts ...Option) (*Console, *botgrid.Locked) {
	t.Helper()
	g, err := botgrid.New(axis)
	require.NoError(t, err)
	l := botgrid.NewLocked(g)
	return New(l, opts...), l
}

func serve(t *testing.T, c *Console, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := c.Serve(context.Background(), session{strings.NewReader(input), &out})
	require.NoError(t, err)
	return out.String()
}

func TestServeBasicCommands(t *testing.T) {
	c, _ := newConsole(t, 9)
	got := serve(t, c, strings.Join([]string{
		"empty",
		"SET 5 4",
		"get 5 4",
		"GET 4 5",
		"",
		"COUNT",
		"EMPTY",
		"SHIFT 0 0 90",
		"CELLS",
		"FLUSH",
		"COUNT",
	}, "\n")+"\n")

	want := strings.Join([]string{
		"true", "OK",
		"OK",
		"1", "OK",
		"0", "OK",
		"1", "OK",
		"false", "OK",
		"OK",
		"4 5", "OK",
		"OK",
		"0", "OK",
	}, "\n") + "\n"
	assert.Equal(t, want, got)
}

func TestServeRejectsBadInput(t *testing.T) {
	c, l := newConsole(t, 9)
	tests := []struct {
		line string
		want string
	}{
		{"BOGUS", `ERR unknown command "BOGUS"`},
		{"SET 1", "ERR usage: SET x y"},
		{"SET 9 0", "ERR x 9 outside [0, 9)"},
		{"SET 0 -1", "ERR y -1 outside [0, 9)"},
		{"GET a 0", `ERR invalid x "a"`},
		{"SHIFT 200 0 0", `ERR invalid dx "200" (want -128..127)`},
		{"SHIFT 0 0 x", `ERR invalid theta "x"`},
		{"SNAPSHOT", "ERR " + ErrNoStore.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			var out bytes.Buffer
			c.Exec(context.Background(), &out, tt.line)
			assert.True(t, strings.HasPrefix(out.String(), tt.want), "got %q", out.String())
		})
	}
	assert.True(t, l.IsEmpty(), "rejected commands must not touch the grid")
}

func TestDemoScenarioOverConsole(t *testing.T) {
	c, l := newConsole(t, 27)
	serve(t, c, "SET 5 2\nSET 13 7\nSET 11 22\nSHIFT -2 0 0\nSHIFT 0 -1 0\nSHIFT 0 0 90\nSHIFT 0 0 -90\n")
	assert.Equal(t, []botgrid.Point{{X: 3, Y: 1}, {X: 11, Y: 6}, {X: 9, Y: 21}}, l.Cells())
}

func TestPrint(t *testing.T) {
	c, _ := newConsole(t, 3)
	got := serve(t, c, "SET 0 0\nPRINT\n")
	assert.Equal(t, "OK\n\nX . . \n. O . \n. . . \nOK\n", got)
}

func TestHelpListsEveryCommand(t *testing.T) {
	c, _ := newConsole(t, 3)
	got := serve(t, c, "help\n")
	for _, cmd := range commands {
		assert.Contains(t, got, cmd.usage)
	}
	assert.True(t, strings.HasSuffix(got, "OK\n"))
}

func TestSnapshot(t *testing.T) {
	snaps := &fakeSnapshots{}
	c, _ := newConsole(t, 9, WithSnapshots(snaps))

	got := serve(t, c, "SET 1 2\nSNAPSHOT before shift\nSNAPSHOT\n")
	assert.Equal(t, "OK\nsnap-1\nOK\nsnap-1\nOK\n", got)
	require.Len(t, snaps.saved, 2)
	assert.Equal(t, "before shift", snaps.saved[0].Reason)
	assert.Equal(t, store.ReasonManual, snaps.saved[1].Reason)
	assert.Equal(t, 1, snaps.saved[0].CellCount)

	g, err := snaps.saved[0].Grid()
	require.NoError(t, err)
	assert.True(t, g.Get(1, 2))

	snaps.err = errors.New("disk full")
	var out bytes.Buffer
	c.Exec(context.Background(), &out, "SNAPSHOT")
	assert.Equal(t, "ERR disk full\n", out.String())
}

func TestCommandMetrics(t *testing.T) {
	m := monitoring.NewMetrics(prometheus.NewRegistry())
	c, _ := newConsole(t, 9, WithMetrics(m))
	serve(t, c, "SET 1 1\nset 2 2\nCOUNT\nNOPE\n")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("count")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("unknown")))
}

// blockingReader never returns, like an idle serial line.
type blockingReader struct{ done chan struct{} }

func (r blockingReader) Read([]byte) (int, error) {
	<-r.done
	return 0, io.EOF
}

func TestServeStopsOnCancel(t *testing.T) {
	c, _ := newConsole(t, 9)
	r := blockingReader{done: make(chan struct{})}
	defer close(r.done)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Serve(ctx, session{r, io.Discard}) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("line dropped") }

func TestServeReturnsReadError(t *testing.T) {
	c, _ := newConsole(t, 9)
	err := c.Serve(context.Background(), session{failingReader{}, io.Discard})
	assert.EqualError(t, err, "line dropped")
}

// endlessLines yields "COUNT" lines forever.
type endlessLines struct{}

func (endlessLines) Read(b []byte) (int, error) {
	return copy(b, "COUNT\n"), nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port unplugged") }

func TestServeWriteErrorStopsReader(t *testing.T) {
	c, _ := newConsole(t, 9)
	before := runtime.NumGoroutine()

	err := c.Serve(context.Background(), session{endlessLines{}, failingWriter{}})
	assert.ErrorContains(t, err, "port unplugged")

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "scanner goroutine should exit when Serve returns")
}
