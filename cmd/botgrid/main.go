// Command botgrid hosts an occupancy grid. It can replay the reference
// shift sequence, serve the text console on stdin or a serial port, persist
// snapshots to SQLite and export the final grid as HTML or PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/botgrid/internal/botgrid"
	"github.com/banshee-data/botgrid/internal/config"
	"github.com/banshee-data/botgrid/internal/console"
	"github.com/banshee-data/botgrid/internal/monitoring"
	"github.com/banshee-data/botgrid/internal/render"
	"github.com/banshee-data/botgrid/internal/security"
	"github.com/banshee-data/botgrid/internal/serialport"
	"github.com/banshee-data/botgrid/internal/store"
	"github.com/banshee-data/botgrid/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to a JSON grid config (defaults apply when empty)")
	axis          = flag.Int("axis", 0, "Grid axis length 1-255 (overrides config)")
	demo          = flag.Bool("demo", false, "Replay the reference shift sequence and exit")
	serialPath    = flag.String("serial", "", "Serve the console on this serial device (overrides config)")
	useStdin      = flag.Bool("stdin", false, "Serve the console on stdin/stdout")
	dbPath        = flag.String("db", "", "SQLite file for grid snapshots (overrides config)")
	htmlOut       = flag.String("html", "", "Write the final grid as an HTML heatmap to this file")
	pngOut        = flag.String("png", "", "Write the final grid as a PNG plot to this file")
	metricsListen = flag.String("metrics-listen", "", "Serve Prometheus metrics on this address, e.g. :9108 (overrides config)")
	listPorts     = flag.Bool("list-ports", false, "List serial devices and exit")
	debug         = flag.Bool("debug", false, "Log per-cell shift diagnostics")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// openPort opens the serial console device.
var openPort serialport.Opener = serialport.Open

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *listPorts {
		ports, err := serialport.List()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg = applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	monitoring.SetDebug(cfg.GetDebug())

	for _, out := range []string{*htmlOut, *pngOut} {
		if out == "" {
			continue
		}
		if err := security.ValidateOutputPath(out); err != nil {
			log.Fatalf("invalid output path: %v", err)
		}
	}
	log.Print(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("botgrid: %v", err)
	}
}

func loadConfig(path string) (*config.GridConfig, error) {
	if path == "" {
		return config.EmptyGridConfig(), nil
	}
	return config.LoadGridConfig(path)
}

// applyFlags overlays explicitly set command line flags onto cfg.
func applyFlags(cfg *config.GridConfig) *config.GridConfig {
	if *axis != 0 {
		cfg = cfg.WithAxis(*axis)
	} else if *demo {
		cfg = cfg.WithAxis(demoAxis)
	}
	if *serialPath != "" {
		cfg = cfg.WithSerialPort(*serialPath)
	}
	if *dbPath != "" {
		cfg = cfg.WithDBPath(*dbPath)
	}
	if *metricsListen != "" {
		cfg = cfg.WithMetricsListen(*metricsListen)
	}
	if *debug {
		cfg = cfg.WithDebug(true)
	}
	return cfg
}

// newGrid builds the shared grid described by cfg.
func newGrid(cfg *config.GridConfig, m *monitoring.Metrics) (*botgrid.Locked, error) {
	opts := []botgrid.Option{botgrid.WithMetrics(m)}
	if budget := cfg.GetMemoryBudgetBytes(); budget > 0 {
		if need := botgrid.PeakBytes(cfg.GetAxis()); budget < need {
			log.Printf("memory budget %d bytes is below the %d bytes a shift needs; shifts will fail", budget, need)
		}
		opts = append(opts, botgrid.WithAllocator(botgrid.NewBudgetAllocator(budget)))
	}
	if cfg.GetClearOnFullClip() {
		opts = append(opts, botgrid.WithClearOnFullClip())
	}
	g, err := botgrid.New(cfg.GetAxis(), opts...)
	if err != nil {
		return nil, err
	}
	return botgrid.NewLocked(g), nil
}

func run(ctx context.Context, cfg *config.GridConfig, stdin io.Reader, stdout io.Writer) error {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	grid, err := newGrid(cfg, metrics)
	if err != nil {
		return fmt.Errorf("failed to create grid: %w", err)
	}
	log.Printf("grid ready: axis=%d", grid.Axis())

	var snapshots *store.Store
	if path := cfg.GetDBPath(); path != "" {
		snapshots, err = store.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer snapshots.Close()
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	if addr := cfg.GetMetricsListen(); addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveMetrics(ctx, addr, reg)
		}()
	}

	switch {
	case *demo:
		if err := runDemo(stdout, grid); err != nil {
			return err
		}
		if snapshots != nil {
			if err := saveSnapshot(ctx, snapshots, grid, store.ReasonDemo); err != nil {
				return err
			}
		}

	case cfg.GetSerialPort() != "" || *useStdin:
		opts := []console.Option{console.WithMetrics(metrics)}
		if snapshots != nil {
			opts = append(opts, console.WithSnapshots(snapshots))
		}
		con := console.New(grid, opts...)
		if err := serveConsoles(ctx, con, cfg, stdin, stdout); err != nil {
			return err
		}
		if snapshots != nil {
			// ctx may already be cancelled by a signal.
			if err := saveSnapshot(context.Background(), snapshots, grid, store.ReasonShutdown); err != nil {
				log.Printf("failed to save shutdown snapshot: %v", err)
			}
		}

	default:
		return errors.New("nothing to do: pass -demo, -stdin or -serial")
	}

	return writeExports(grid)
}

// serveConsoles runs the stdin and serial consoles until all of them finish
// or ctx is cancelled.
func serveConsoles(ctx context.Context, con *console.Console, cfg *config.GridConfig, stdin io.Reader, stdout io.Writer) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	if path := cfg.GetSerialPort(); path != "" {
		opts := serialport.PortOptions{
			BaudRate: cfg.GetBaudRate(),
			DataBits: cfg.GetDataBits(),
			StopBits: cfg.GetStopBits(),
			Parity:   cfg.GetParity(),
		}
		port, err := openPort(path, opts)
		if err != nil {
			return err
		}
		log.Printf("console listening on %s (%s)", path, opts)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer port.Close()
			errCh <- con.Serve(ctx, port)
			log.Printf("serial console on %s terminated", path)
		}()

		// Closing the port unblocks a pending read on shutdown.
		go func() {
			<-ctx.Done()
			port.Close()
		}()
	}

	if *useStdin {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- con.Serve(ctx, struct {
				io.Reader
				io.Writer
			}{stdin, stdout})
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

func saveSnapshot(ctx context.Context, s *store.Store, grid *botgrid.Locked, reason string) error {
	var snap *store.Snapshot
	if err := grid.View(func(g *botgrid.Grid) error {
		var err error
		snap, err = store.NewSnapshot(g, reason)
		return err
	}); err != nil {
		return err
	}
	return s.Insert(ctx, snap)
}

// writeExports writes the -html and -png renderings of the final grid.
func writeExports(grid *botgrid.Locked) error {
	if *htmlOut != "" {
		if err := writeFile(*htmlOut, func(w io.Writer) error {
			return grid.View(func(g *botgrid.Grid) error {
				return render.Heatmap(w, g, "botgrid")
			})
		}); err != nil {
			return fmt.Errorf("failed to write heatmap: %w", err)
		}
		log.Printf("wrote heatmap to %s", *htmlOut)
	}
	if *pngOut != "" {
		if err := writeFile(*pngOut, func(w io.Writer) error {
			return grid.View(func(g *botgrid.Grid) error {
				return render.Plot(w, g, 6*vg.Inch)
			})
		}); err != nil {
			return fmt.Errorf("failed to write plot: %w", err)
		}
		log.Printf("wrote plot to %s", *pngOut)
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler(g))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("serving metrics on %s/metrics", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}
