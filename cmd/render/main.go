package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	grpcapi "github.com/nemanja-m/gomandel/internal/scheduler/api/grpc"
	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/scheduler/pool"
	"github.com/nemanja-m/gomandel/internal/scheduler/service"
	"github.com/nemanja-m/gomandel/internal/scheduler/storage"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
	workerservice "github.com/nemanja-m/gomandel/internal/worker/service"
	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
	"github.com/nemanja-m/gomandel/pkg/palette"
)

type options struct {
	width, height int
	centre        mandelbrot.Complex
	zoom          float64
	iterations    int
	hash          string
	palette       string
	workers       int
	out           string
	views         string
	outDir        string
	remote        string
	tile          string
	timeout       time.Duration
	verbose       bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var opts options
	flag.IntVar(&opts.width, "width", 1024, "image width in pixels")
	flag.IntVar(&opts.height, "height", 768, "image height in pixels")
	flag.Float64Var(&opts.centre.Real, "real", 0, "real part of the view centre")
	flag.Float64Var(&opts.centre.Imag, "imag", 0, "imaginary part of the view centre")
	flag.Float64Var(&opts.zoom, "zoom", core.DefaultZoom, "view zoom")
	flag.IntVar(&opts.iterations, "iterations", core.DefaultIterations, "iteration budget")
	flag.StringVar(&opts.hash, "hash", "", "view hash '#real,imag,zoom,iterations' (overrides -real, -imag, -zoom, -iterations)")
	flag.StringVar(&opts.palette, "palette", "hsl", fmt.Sprintf("palette (%s)", strings.Join(palette.List(), ", ")))
	flag.IntVar(&opts.workers, "workers", 4, "number of render workers")
	flag.StringVar(&opts.out, "out", "mandelbrot.png", "output file")
	flag.StringVar(&opts.views, "views", "", "comma-separated glob patterns of view files to render in batch")
	flag.StringVar(&opts.outDir, "outdir", ".", "output directory for -views")
	flag.StringVar(&opts.remote, "remote", "", "tile service address; fetch -tile from it instead of rendering locally")
	flag.StringVar(&opts.tile, "tile", "", "tile to fetch from -remote as z/x/y")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "render timeout")
	flag.BoolVar(&opts.verbose, "v", false, "log scheduler events")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

// run executes one invocation. Resources it opens are released before it
// returns, including on error.
func run(opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if opts.remote != "" {
		if err := fetchTile(ctx, opts.remote, opts.tile, opts.iterations, opts.out); err != nil {
			return fmt.Errorf("tile fetch failed: %w", err)
		}
		log.Printf("Wrote tile %s to %s", opts.tile, opts.out)
		return nil
	}

	colour, err := palette.Get(opts.palette)
	if err != nil {
		return fmt.Errorf("unknown palette '%s', available palettes: %v", opts.palette, palette.List())
	}
	size := core.Size{Width: opts.width, Height: opts.height}
	if !size.Valid() {
		return fmt.Errorf("image size must be positive, got %dx%d", size.Width, size.Height)
	}

	level := "error"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(os.Stderr, level, logging.FormatText)
	if err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}

	r, err := newRenderer(ctx, opts.workers, colour, size, logger)
	if err != nil {
		return fmt.Errorf("renderer setup failed: %w", err)
	}
	defer r.close()

	if opts.views != "" {
		n, err := r.renderViews(ctx, strings.Split(opts.views, ","), opts.outDir)
		if err != nil {
			return fmt.Errorf("batch render failed: %w", err)
		}
		log.Printf("Rendered %d views into %s", n, opts.outDir)
		return nil
	}

	state := core.ViewState{
		Centre:     opts.centre,
		Zoom:       opts.zoom,
		Iterations: opts.iterations,
	}
	if opts.hash != "" {
		if state, err = core.ParseViewHash(opts.hash); err != nil {
			return fmt.Errorf("invalid view hash: %w", err)
		}
	}

	start := time.Now()
	if err := r.renderView(ctx, state, opts.out); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	log.Printf("Rendered %s %dx%d in %s to %s", core.FormatViewHash(state), size.Width, size.Height, time.Since(start), opts.out)
	return nil
}

type renderer struct {
	pool      *pool.Pool
	scheduler *service.Scheduler
	size      core.Size
}

func newRenderer(ctx context.Context, workers int, colour palette.Func, size core.Size, logger logging.Logger) (*renderer, error) {
	p, err := pool.New(workers, workerservice.NewKernelExecutor(true), nil, logger)
	if err != nil {
		return nil, err
	}
	viewport, err := core.NewViewport(core.DefaultViewState())
	if err != nil {
		return nil, err
	}
	s, err := service.NewScheduler(p, viewport, nil, service.Config{
		TileSize: core.BaseTileSize,
		Palette:  colour,
		Policy:   service.CancelClearAll,
		Canvas:   size,
	}, nil, logger)
	if err != nil {
		return nil, err
	}
	p.Start(ctx)
	return &renderer{pool: p, scheduler: s, size: size}, nil
}

func (r *renderer) renderView(ctx context.Context, state core.ViewState, path string) error {
	if _, err := r.scheduler.SetView(state); err != nil {
		return err
	}
	pending, err := r.scheduler.RenderFrame(r.size)
	if err != nil {
		return err
	}
	img, err := pending.Wait(ctx)
	if err != nil {
		return err
	}
	return writePNG(path, img)
}

// renderViews renders every view file matched by patterns into dir, one PNG
// per file named after it.
func (r *renderer) renderViews(ctx context.Context, patterns []string, dir string) (int, error) {
	files, err := storage.FindViewFiles(patterns)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no view files match %v", patterns)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	for i, file := range files {
		state, err := storage.ReadViewFile(file)
		if err != nil {
			return i, err
		}
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".png"
		if err := r.renderView(ctx, state, filepath.Join(dir, name)); err != nil {
			return i, fmt.Errorf("%s: %w", file, err)
		}
		log.Printf("Rendered %s (%s)", file, core.FormatViewHash(state))
	}
	return len(files), nil
}

func (r *renderer) close() {
	r.scheduler.Close()
	r.pool.Close()
}

func fetchTile(ctx context.Context, addr, tileArg string, iterations int, path string) error {
	tile, err := parseTile(tileArg)
	if err != nil {
		return err
	}
	client, err := grpcapi.NewTileClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	data, err := client.RenderTile(ctx, tile, iterations)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// parseTile reads "z/x/y".
func parseTile(s string) (core.TileCoords, error) {
	parts := strings.Split(strings.TrimSuffix(s, ".png"), "/")
	if len(parts) != 3 {
		return core.TileCoords{}, fmt.Errorf("tile %q must be z/x/y", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return core.TileCoords{}, fmt.Errorf("tile %q: %w", s, err)
		}
		n[i] = v
	}
	return core.TileCoords{Z: n[0], X: n[1], Y: n[2]}, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
