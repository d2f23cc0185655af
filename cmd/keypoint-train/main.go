package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"math/rand"
	"os"

	"github.com/ironsheep/keypoint-train/internal/augment"
	"github.com/ironsheep/keypoint-train/internal/config"
	"github.com/ironsheep/keypoint-train/internal/dataset"
	"github.com/ironsheep/keypoint-train/internal/model"
	"github.com/ironsheep/keypoint-train/internal/training"
	"github.com/ironsheep/keypoint-train/internal/visualize"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("keypoint-train %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("keypoint-train - glue tube keypoint detector trainer")
			fmt.Println()
			fmt.Println("Usage: keypoint-train [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  -config path     JSON run configuration (defaults apply when omitted)")
			fmt.Println("  -demo out.png    Render one augmented training sample and exit")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			return
		}
	}

	configPath := flag.String("config", "", "path to a JSON run configuration")
	demoPath := flag.String("demo", "", "render one augmented training sample to this PNG and exit")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if *demoPath != "" {
		if err := renderDemo(cfg, *demoPath); err != nil {
			log.Fatalf("Demo error: %v", err)
		}
		log.Printf("Wrote sample sheet to %s", *demoPath)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Training error: %v", err)
	}
}

func run(cfg config.Config) error {
	rng := rand.New(rand.NewSource(cfg.Seed))

	train, err := dataset.Open(cfg.TrainDir,
		dataset.WithTransform(augment.TrainTransform(rng)),
		dataset.WithPointsPerObject(cfg.NumKeypoints))
	if err != nil {
		return fmt.Errorf("opening training data: %w", err)
	}
	test, err := dataset.Open(cfg.TestDir,
		dataset.WithPointsPerObject(cfg.NumKeypoints))
	if err != nil {
		return fmt.Errorf("opening test data: %w", err)
	}
	log.Printf("Loaded %d training and %d test samples", train.Len(), test.Len())

	opts := []model.Option{model.WithSeed(cfg.Seed)}
	if cfg.BackboneWeights != "" {
		opts = append(opts, model.WithBackboneWeights(cfg.BackboneWeights))
	}
	m, err := model.NewKeypointDetector(cfg.NumKeypoints, cfg.InWeights, opts...)
	if err != nil {
		return fmt.Errorf("building model: %w", err)
	}

	trainer, err := training.New(m, cfg.Training)
	if err != nil {
		return err
	}

	trainLoader := dataset.NewLoader(train, cfg.BatchSize, true, rng)
	testLoader := dataset.NewLoader(test, cfg.TestBatchSize, false, nil)
	if err := trainer.Run(trainLoader, testLoader); err != nil {
		return err
	}

	if err := m.Save(cfg.OutWeights); err != nil {
		return fmt.Errorf("saving weights: %w", err)
	}
	log.Printf("Saved weights to %s", cfg.OutWeights)
	return nil
}

// renderDemo writes the first training sample as an original|augmented sheet
// with its boxes and keypoints drawn in.
func renderDemo(cfg config.Config, outPath string) error {
	rng := rand.New(rand.NewSource(cfg.Seed))

	ds, err := dataset.Open(cfg.TrainDir,
		dataset.WithTransform(augment.TrainTransform(rng)),
		dataset.WithPointsPerObject(cfg.NumKeypoints))
	if err != nil {
		return fmt.Errorf("opening training data: %w", err)
	}
	if ds.Len() == 0 {
		return fmt.Errorf("no samples under %s", cfg.TrainDir)
	}

	transformed, original, err := ds.SampleWithOriginal(0)
	if err != nil {
		return err
	}

	left, err := annotatedImage(original)
	if err != nil {
		return err
	}
	right, err := annotatedImage(transformed)
	if err != nil {
		return err
	}
	return visualize.SavePNG(visualize.SideBySide(left, right), outPath)
}

func annotatedImage(s *dataset.Sample) (*image.NRGBA, error) {
	img, err := dataset.TensorToImage(s.Input)
	if err != nil {
		return nil, err
	}
	return visualize.Annotated(img, s.Target.BoxSlices(), s.Target.KeypointSlices(), nil), nil
}
