// Command grid-replay runs recorded cycle snapshots through the
// perspective grid pipeline.
//
// Each line of the input file is one JSON snapshot: robot poses plus the
// scan lines and claimed pixels of both cameras. The tool prints one
// summary line per cycle and can optionally record results to sqlite and
// render the grids as PNG or HTML.
//
// Usage:
//
//	go run ./cmd/grid-replay -input cycles.jsonl [flags]
//
// Flags:
//
//	-config    Vision config JSON (default: built-in defaults)
//	-input     JSON-lines snapshot file, "-" for stdin
//	-db        Record cycles to this sqlite database
//	-label     Run label stored with recorded cycles
//	-png-dir   Write one PNG per camera per cycle into this directory
//	-html      Write an interactive page of the final cycle
//	-interval  Pause between cycles
//	-watch     Reload the config file while replaying
//	-debug     Enable diag and trace logging
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/perspective.grid/internal/config"
	"github.com/banshee-data/perspective.grid/internal/monitoring"
	"github.com/banshee-data/perspective.grid/internal/pipeline"
	"github.com/banshee-data/perspective.grid/internal/recorder"
	"github.com/banshee-data/perspective.grid/internal/render"
	"github.com/banshee-data/perspective.grid/internal/timeutil"
	"github.com/banshee-data/perspective.grid/internal/version"
)

type options struct {
	configPath string
	inputPath  string
	dbPath     string
	label      string
	pngDir     string
	htmlPath   string
	interval   time.Duration
	watch      bool
	debug      bool
	version    bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("grid-replay", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Vision config JSON (default: built-in defaults)")
	fs.StringVar(&o.inputPath, "input", "", "JSON-lines snapshot file, \"-\" for stdin")
	fs.StringVar(&o.dbPath, "db", "", "Record cycles to this sqlite database")
	fs.StringVar(&o.label, "label", "replay", "Run label stored with recorded cycles")
	fs.StringVar(&o.pngDir, "png-dir", "", "Write one PNG per camera per cycle into this directory")
	fs.StringVar(&o.htmlPath, "html", "", "Write an interactive page of the final cycle")
	fs.DurationVar(&o.interval, "interval", 0, "Pause between cycles")
	fs.BoolVar(&o.watch, "watch", false, "Reload the config file while replaying")
	fs.BoolVar(&o.debug, "debug", false, "Enable diag and trace logging")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.version {
		return o, nil
	}
	if o.inputPath == "" {
		return o, errors.New("-input is required")
	}
	if o.watch && o.configPath == "" {
		return o, errors.New("-watch requires -config")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("grid-replay: %v", err)
	}
	if o.version {
		fmt.Println(version.String("grid-replay"))
		return
	}

	writers := monitoring.LogWriters{Ops: os.Stderr}
	if o.debug {
		writers.Diag = os.Stderr
		writers.Trace = os.Stderr
	}
	monitoring.SetLogWriters(writers)

	if err := run(o, os.Stdout); err != nil {
		log.Fatalf("grid-replay: %v", err)
	}
}

// summary totals a replay.
type summary struct {
	cycles     int
	skipped    int
	overruns   int
	rows       int
	candidates int
}

func run(o options, stdout io.Writer) error {
	store, err := openStore(o.configPath)
	if err != nil {
		return err
	}

	snapshots, err := loadSnapshots(o.inputPath)
	if err != nil {
		return err
	}

	clock := timeutil.RealClock{}
	cycler := pipeline.NewCycler(store, clock)

	if o.dbPath != "" {
		rec, err := recorder.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer rec.Close()
		runID, err := rec.StartRun(o.label, store.Snapshot())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "recording run %s to %s\n", runID, o.dbPath)
		cycler.SetSink(rec)
	}

	if o.watch {
		w := config.NewWatcher(store, clock, time.Second, func(*config.VisionConfig) {
			fmt.Fprintf(stdout, "reloaded %s\n", store.Path())
		})
		w.Start()
		defer w.Stop()
	}

	if o.pngDir != "" {
		if err := os.MkdirAll(o.pngDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", o.pngDir, err)
		}
	}

	var (
		sum  summary
		last []render.Frame
	)
	for i, snap := range snapshots {
		if i > 0 && o.interval > 0 {
			time.Sleep(o.interval)
		}
		out, err := cycler.Run(snap)
		if errors.Is(err, pipeline.ErrNoGroundContact) {
			sum.skipped++
			fmt.Fprintf(stdout, "cycle %d: no ground contact\n", i)
			continue
		}
		if errors.Is(err, pipeline.ErrInvalidKinematics) {
			sum.skipped++
			fmt.Fprintf(stdout, "cycle %d: %v\n", i, err)
			continue
		}
		if err != nil {
			return err
		}

		sum.cycles++
		sum.rows += len(out.Top.Rows) + len(out.Bottom.Rows)
		sum.candidates += len(out.Top.Candidates.Circles) + len(out.Bottom.Candidates.Circles)
		fmt.Fprintf(stdout, "cycle %d: top rows=%d candidates=%d bottom rows=%d candidates=%d elapsed=%v\n",
			i, len(out.Top.Rows), len(out.Top.Candidates.Circles),
			len(out.Bottom.Rows), len(out.Bottom.Candidates.Circles), out.Elapsed)

		last = render.FramesFromOutput(out)
		if o.pngDir != "" {
			for _, f := range last {
				path := filepath.Join(o.pngDir, fmt.Sprintf("cycle-%04d-%s.png", i, f.Camera))
				if err := render.SavePNG(path, f); err != nil {
					return err
				}
			}
		}
	}
	_, sum.overruns = cycler.Stats()

	if o.htmlPath != "" && last != nil {
		if err := writeHTML(o.htmlPath, last); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "replayed %d cycles (%d skipped, %d overruns): %d rows, %d candidates\n",
		sum.cycles, sum.skipped, sum.overruns, sum.rows, sum.candidates)
	return nil
}

func openStore(path string) (*config.Store, error) {
	if path == "" {
		return config.NewStore("", nil), nil
	}
	store, err := config.OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return store, nil
}

func loadSnapshots(path string) ([]pipeline.Snapshot, error) {
	if path == "-" {
		return readSnapshots(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return readSnapshots(f)
}

func writeHTML(path string, frames []render.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render.WriteHTML(f, frames...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
