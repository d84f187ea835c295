// Command train_rdt trains a randomized decision tree for per-pixel body
// part classification from paired depth/label image corpora.
package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sherief/glimpse/rdt"
	"github.com/sherief/glimpse/rdtio"
)

type flags struct {
	dataDir        string
	npyPath        string
	width, height  int
	fov            float64
	nLabels        uint8
	background     uint8
	nUV            uint32
	uvRange        float64
	nThresholds    uint32
	thresholdRange float64
	maxDepth       uint8
	pixelsPerImage uint32
	seed           uint32
	workers        int
	output         string
	checkpoint     string
	resume         string
	limit          string
	verbose        bool
	logFile        string
	metricsAddr    string
	renderGraph    string
	cacheEntries   int
}

func main() {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "train_rdt",
		Short: "Train a randomized decision tree classifier from a depth/label image corpus.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.dataDir, "data-dir", "", "directory of depth_NNNNN.npy/label_NNNNN.npy pairs")
	fl.StringVar(&f.npyPath, "npy", "", "single packed .npy corpus file (alternative to --data-dir)")
	fl.IntVar(&f.width, "width", 0, "image width in pixels")
	fl.IntVar(&f.height, "height", 0, "image height in pixels")
	fl.Float64Var(&f.fov, "fov", 0, "vertical field of view, radians")
	fl.Uint8Var(&f.nLabels, "n-labels", 0, "number of distinct body part labels")
	fl.Uint8Var(&f.background, "background-label", 0, "label index treated as background")
	fl.Uint32Var(&f.nUV, "n-uv", 2000, "number of depth-offset feature candidates to sample")
	fl.Float64Var(&f.uvRange, "uv-range", 1.29, "uv sampling range, meters")
	fl.Uint32Var(&f.nThresholds, "n-thresholds", 50, "number of threshold candidates per uv")
	fl.Float64Var(&f.thresholdRange, "threshold-range", 1.29, "threshold sampling range")
	fl.Uint8Var(&f.maxDepth, "max-depth", 20, "maximum tree depth")
	fl.Uint32Var(&f.pixelsPerImage, "pixels-per-image", 2000, "root pixels sampled per image")
	fl.Uint32Var(&f.seed, "seed", 0, "PRNG seed")
	fl.IntVar(&f.workers, "workers", 0, "worker goroutines (0 = number of CPUs)")
	fl.StringVar(&f.output, "output", "model.rdt", "output tree path")
	fl.StringVar(&f.checkpoint, "checkpoint", "", "checkpoint file to write on interrupt")
	fl.StringVar(&f.resume, "resume", "", "checkpoint file to resume training from")
	fl.StringVar(&f.limit, "limit", "", "N or N,skip: number of images to load, optionally skipping the first `skip`")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log every committed node, not just depth summaries")
	fl.StringVar(&f.logFile, "log-file", "", "rotate structured JSON logs to this path in addition to stderr")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fl.StringVar(&f.renderGraph, "render-graph", "", "also render the finished tree as a PNG at this path")
	fl.IntVar(&f.cacheEntries, "image-cache-entries", 256, "size of the LRU cache the directory loader allocates")

	// The first interrupt cancels ctx so the run stops after the current
	// node and writes a checkpoint; a second one exits immediately.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Fprintln(os.Stderr, "interrupt received: writing a checkpoint after the current node (interrupt again to abort)")
		cancel()
		<-sigs
		os.Exit(1)
	}()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(goCtx context.Context, f *flags) error {
	reporter := rdt.NewReporter(f.logFile, f.verbose)
	defer reporter.Sync()

	runID := uuid.New().String()
	reporter.Info("starting training run", zap.String("run_id", runID))

	reg := prometheus.NewRegistry()
	metrics := rdt.NewMetrics(reg)
	if f.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: f.metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				reporter.Warn("metrics server exited", zap.Error(err))
			}
		}()
		defer server.Close()
	}

	limit, skip, err := parseLimit(f.limit)
	if err != nil {
		return err
	}

	loader, err := buildLoader(f)
	if err != nil {
		return err
	}

	corpus, err := loader.Load(limit, skip)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	params := rdt.Params{
		NUV:            f.nUV,
		UVRange:        float32(f.uvRange),
		NThresholds:    f.nThresholds,
		ThresholdRange: float32(f.thresholdRange),
		MaxDepth:       f.maxDepth,
		PixelsPerImage: f.pixelsPerImage,
		Seed:           f.seed,
	}

	tctx, err := rdt.NewTrainContext(corpus, params)
	if err != nil {
		return err
	}

	var tree *rdt.Tree
	var fr *rdt.Frontier
	if f.resume != "" {
		restored, err := rdtio.ReadTree(f.resume)
		if err != nil {
			return fmt.Errorf("reading checkpoint %s: %w", f.resume, err)
		}
		if restored.NLabels != corpus.NLabels {
			return rdt.ErrIncompatibleCheckpoint
		}
		if math.Abs(float64(restored.FOV)-float64(corpus.FOV)) > 1e-6 {
			return rdt.ErrIncompatibleCheckpoint
		}
		if restored.Depth > f.maxDepth {
			return rdt.ErrIncompatibleCheckpoint
		}
		checkpointDepth := restored.Depth
		if restored.Depth < f.maxDepth {
			rdt.ExtendDepth(restored, f.maxDepth)
		}
		tree = restored
		fr = rdt.RestoreFrontier(tctx, tree, checkpointDepth)
		if fr.Empty() {
			return rdt.ErrAlreadyComplete
		}
		reporter.Info("resuming from checkpoint", zap.String("run_id", runID), zap.String("checkpoint", f.resume), zap.Int("frontier_nodes", fr.Len()))
	} else {
		tree, fr = rdt.NewRun(tctx, f.background)
	}

	workers := f.workers
	if workers <= 0 {
		workers = defaultWorkers()
	}

	engine := rdt.NewEngine(tctx, workers, reporter, metrics)
	defer engine.Close()

	completed, err := engine.Run(goCtx, tree, fr)
	if err != nil {
		return err
	}

	if !completed {
		reporter.Warn("training interrupted, writing checkpoint", zap.String("run_id", runID))
		if f.checkpoint == "" {
			f.checkpoint = f.output + ".checkpoint"
		}
		if err := rdtio.SaveTree(f.checkpoint, tree); err != nil {
			return fmt.Errorf("writing checkpoint: %w", err)
		}
		metrics.CheckpointWrites.Inc()
		return nil
	}

	if err := rdtio.SaveTree(f.output, tree); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if err := rdtio.SaveTreeJSON(f.output+".json", tree); err != nil {
		return fmt.Errorf("writing json dump: %w", err)
	}
	if f.renderGraph != "" {
		if err := rdtio.RenderTree(tree, f.renderGraph); err != nil {
			return fmt.Errorf("rendering graph: %w", err)
		}
	}

	reporter.Info("training complete", zap.String("run_id", runID), zap.String("output", f.output))
	return nil
}

func buildLoader(f *flags) (rdtio.Loader, error) {
	switch {
	case f.dataDir != "":
		return rdtio.NewDirLoader(f.dataDir, f.width, f.height, float32(f.fov), f.nLabels, f.cacheEntries)
	case f.npyPath != "":
		return &rdtio.NpyLoader{Path: f.npyPath, Width: f.width, Height: f.height, FOV: float32(f.fov), NLabels: f.nLabels}, nil
	default:
		return nil, fmt.Errorf("one of --data-dir or --npy is required")
	}
}

func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// parseLimit parses the --limit flag's "N" or "N,skip" syntax.
func parseLimit(s string) (limit, skip uint32, err error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(s, ",", 2)
	n, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing --limit: %w", err)
	}
	limit = uint32(n)
	if len(parts) == 2 {
		sk, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("parsing --limit skip: %w", err)
		}
		skip = uint32(sk)
	}
	return limit, skip, nil
}
