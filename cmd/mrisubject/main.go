package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/stat"

	"mrisubject/pkg/config"
	"mrisubject/pkg/image"
	"mrisubject/pkg/metrics"
	"mrisubject/pkg/provenance"
	"mrisubject/pkg/sampler"
	"mrisubject/pkg/subject"
	"mrisubject/pkg/transform"
)

func main() {
	// Parse command line arguments
	var images, labels namedDirs
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	flag.Var(&images, "image", "Intensity slice directory as name=dir (repeatable)")
	flag.Var(&labels, "label", "Label slice directory as name=dir (repeatable)")
	subjectID := flag.String("subject", "subject", "Subject identifier stored with the history")
	spacing := flag.String("spacing", "", "Voxel spacing in mm as pixel,gap or x,y,z")
	patch := flag.String("patch", "", "Patch size in voxels as n or x,y,z")
	numPatches := flag.Int("patches", 0, "Number of patches to draw, negative for unbounded")
	seed := flag.Uint64("seed", 0, "Random seed, 0 for a fresh one")
	flipAxes := flag.String("flip", "", "Spatial axes to flip before sampling, e.g. 0,2")
	maskName := flag.String("mask", "", "Label image used to mask intensity images")
	historyPath := flag.String("history", "", "Output YAML file for the transform history")
	metricsPath := flag.String("metrics", "", "Output Prometheus textfile")
	exportDir := flag.String("export", "", "Directory to save every patch as JPEG slice stacks")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if len(images) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := applyFlags(cfg, set, *spacing, *patch, *numPatches, *seed, *historyPath, *metricsPath); err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	fmt.Println("================================")
	fmt.Println("MRI SUBJECT PATCH SAMPLING")
	fmt.Println("================================")

	s, err := loadSubject(*subjectID, images, labels, cfg.Spacing())
	if err != nil {
		log.Fatalf("Failed to load subject: %v", err)
	}
	fmt.Printf("Loaded %s\n", s)

	if err := checkSpace(s, cfg); err != nil {
		log.Fatalf("Subject images are not in the same space: %v", err)
	}
	shape, err := s.Shape()
	if err != nil {
		log.Fatalf("Failed to read subject shape: %v", err)
	}
	fmt.Printf("Shape: %v, spacing: %v\n", shape, cfg.Spacing())

	// Augment
	registry := prometheus.NewRegistry()
	transformMetrics := metrics.NewTransforms(registry)
	samplerMetrics := metrics.NewSampler(registry)

	var transforms []subject.Transform
	if *flipAxes != "" {
		axes, err := parseInts(*flipAxes)
		if err != nil {
			log.Fatalf("Invalid -flip: %v", err)
		}
		flip, err := transform.NewFlip(axes...)
		if err != nil {
			log.Fatalf("Invalid -flip: %v", err)
		}
		transforms = append(transforms, flip)
	}
	if *maskName != "" {
		transforms = append(transforms, &transform.Mask{MaskingMethod: *maskName, Logger: logger})
	}
	processed := s
	for _, t := range transforms {
		start := time.Now()
		next, err := t.Apply(processed)
		transformMetrics.Observe(t.Name(), time.Since(start), err)
		if err != nil {
			log.Fatalf("Transform %s failed: %v", t.Name(), err)
		}
		fmt.Printf("Applied %s\n", t.Name())
		processed = next
	}

	// Sample
	size, err := cfg.PatchSize()
	if err != nil {
		log.Fatalf("Invalid patch size: %v", err)
	}
	uniform, err := sampler.NewUniformSampler(size,
		sampler.WithSeed(cfg.Sampling.Seed),
		sampler.WithMetrics(samplerMetrics),
		sampler.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create sampler: %v", err)
	}
	fmt.Printf("\nSampling patches of %v with seed %d...\n", size, uniform.Seed())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	count := 0
	for patch, err := range uniform.Patches(processed, cfg.Sampling.NumPatches) {
		if err != nil {
			log.Fatalf("Sampling failed: %v", err)
		}
		location, _ := patch.Get(sampler.LocationKey)
		mean, std, err := patchStats(patch)
		if err != nil {
			log.Fatalf("Failed to read patch: %v", err)
		}
		fmt.Printf("Patch %d at %v: mean %.4f, std %.4f\n", count, location, mean, std)
		if *exportDir != "" {
			if err := exportPatch(patch, filepath.Join(*exportDir, fmt.Sprintf("patch_%03d", count))); err != nil {
				log.Printf("Warning: Failed to export patch %d: %v", count, err)
			}
		}
		count++
		if ctx.Err() != nil {
			fmt.Println("Interrupted")
			break
		}
	}
	fmt.Printf("Extracted %d patches\n", count)

	// Provenance
	if cfg.Output.HistoryPath != "" {
		if err := provenance.WriteFile(cfg.Output.HistoryPath, provenance.New(*subjectID, processed)); err != nil {
			log.Fatalf("Failed to write history: %v", err)
		}
		fmt.Printf("\nTransform history saved to: %s\n", cfg.Output.HistoryPath)
	}

	opts, err := cfg.HistoryOptions()
	if err != nil {
		log.Fatalf("Invalid inversion settings: %v", err)
	}
	opts = append(opts, subject.WithLogger(logger))
	restored, err := processed.ApplyInverseTransform(opts...)
	if err != nil {
		log.Fatalf("Failed to invert history: %v", err)
	}
	fmt.Printf("History: %d transforms applied, %d after inversion\n",
		len(processed.History()), len(restored.History()))

	if cfg.Output.MetricsPath != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsPath, registry); err != nil {
			log.Fatalf("Failed to write metrics: %v", err)
		}
		fmt.Printf("Metrics saved to: %s\n", cfg.Output.MetricsPath)
	}
}

// applyFlags overrides cfg with the flags the user set explicitly.
func applyFlags(cfg *config.Config, set map[string]bool, spacing, patch string, numPatches int, seed uint64, historyPath, metricsPath string) error {
	if set["spacing"] {
		values, err := parseFloats(spacing)
		if err != nil {
			return err
		}
		switch len(values) {
		case 2:
			cfg.Stack.PixelSpacing, cfg.Stack.SliceGap = values[0], values[1]
		case 3:
			if values[0] != values[1] {
				return fmt.Errorf("in-plane spacing must be isotropic, got %v", values)
			}
			cfg.Stack.PixelSpacing, cfg.Stack.SliceGap = values[0], values[2]
		default:
			return fmt.Errorf("-spacing needs 2 or 3 values, got %d", len(values))
		}
	}
	if set["patch"] {
		values, err := parseInts(patch)
		if err != nil {
			return err
		}
		cfg.Sampling.PatchSize = values
	}
	if set["patches"] {
		cfg.Sampling.NumPatches = numPatches
	}
	if set["seed"] {
		cfg.Sampling.Seed = seed
	}
	if set["history"] {
		cfg.Output.HistoryPath = historyPath
	}
	if set["metrics"] {
		cfg.Output.MetricsPath = metricsPath
	}
	return cfg.Validate()
}

// subjectIDKey is the metadata key holding the subject identifier.
const subjectIDKey = "id"

// loadSubject builds a subject from slice directories. Images are loaded on
// first access. Image names must be unique and must not shadow the subject
// identifier.
func loadSubject(id string, images, labels namedDirs, spacing [3]float64) (*subject.Subject, error) {
	var items []subject.Item
	seen := map[string]bool{subjectIDKey: true}
	for _, group := range []struct {
		kind image.Type
		dirs namedDirs
	}{{image.Intensity, images}, {image.Label, labels}} {
		for _, d := range group.dirs {
			if seen[d.Name] {
				return nil, fmt.Errorf("image name %q is used twice or reserved", d.Name)
			}
			seen[d.Name] = true
			img, err := image.LoadSliceStack(d.Dir, group.kind, spacing)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", d.Name, err)
			}
			items = append(items, subject.Item{Name: d.Name, Value: img})
		}
	}
	items = append(items, subject.Item{Name: subjectIDKey, Value: id})
	return subject.New(items...)
}

// checkSpace verifies that all images share one voxel grid, using the
// configured tolerances.
func checkSpace(s *subject.Subject, cfg *config.Config) error {
	for _, attr := range []image.Attribute{image.AttrSpacing, image.AttrDirection, image.AttrOrigin} {
		err := s.CheckConsistentAttribute(attr, cfg.Consistency.RelativeTolerance, cfg.Consistency.AbsoluteTolerance)
		if err != nil {
			return &subject.SpaceError{Err: err}
		}
	}
	if err := s.CheckConsistentSpatialShape(); err != nil {
		return &subject.SpaceError{Err: err}
	}
	return nil
}

// patchStats returns the mean and standard deviation of the first intensity
// image of a patch.
func patchStats(patch *subject.Subject) (float64, float64, error) {
	named := patch.ImagesDict(subject.IntensityOnly())
	if len(named) == 0 {
		return 0, 0, nil
	}
	data, err := named[0].Image.Data()
	if err != nil {
		return 0, 0, err
	}
	mean, std := stat.MeanStdDev(data.Values, nil)
	return mean, std, nil
}

// exportPatch saves every image of a patch as a slice stack under dir/<name>.
func exportPatch(patch *subject.Subject, dir string) error {
	for _, named := range patch.ImagesDict() {
		if err := image.WriteSliceStack(named.Image, filepath.Join(dir, named.Name)); err != nil {
			return fmt.Errorf("%s: %w", named.Name, err)
		}
	}
	return nil
}
