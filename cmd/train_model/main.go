package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"strokerisk/config"
	"strokerisk/db"
	"strokerisk/logging"
	"strokerisk/ml"
	"strokerisk/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}
}

// run trains, cross-validates and writes the artifact. Nothing is written
// unless every step before the artifact write succeeds.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train_model", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "config file path")
	datasetPath := fs.String("dataset", "", "training CSV path")
	modelPath := fs.String("model_path", "", "artifact output path")
	folds := fs.Int("folds", 0, "cross-validation folds")
	repeats := fs.Int("repeats", 0, "cross-validation repeats")
	neighbors := fs.Int("neighbors", 0, "SMOTE neighbors")
	seed := fs.Int64("seed", 0, "random seed")
	workers := fs.Int("workers", 0, "concurrent folds, 0 uses GOMAXPROCS")
	rocPlot := fs.String("roc_plot", "", "optional ROC chart output (.png, .svg, .pdf)")
	runLog := fs.String("run_log", "", "optional SQLite training run log")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset":
			cfg.Dataset.Path = *datasetPath
		case "model_path":
			cfg.Artifact.Path = *modelPath
		case "folds":
			cfg.Training.Folds = *folds
		case "repeats":
			cfg.Training.Repeats = *repeats
		case "neighbors":
			cfg.Training.Neighbors = *neighbors
		case "seed":
			cfg.Training.Seed = *seed
		case "workers":
			cfg.Training.Workers = *workers
		case "roc_plot":
			cfg.Training.ROCPlot = *rocPlot
		case "run_log":
			cfg.Training.RunLog = *runLog
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ds, err := pipeline.LoadCSV(cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	printSummary(stdout, ds.Summary())

	cv := ml.RepeatedStratifiedKFold{
		Folds:   cfg.Training.Folds,
		Repeats: cfg.Training.Repeats,
		Seed:    cfg.Training.Seed,
	}
	pcfg := ml.PipelineConfig{
		Neighbors: cfg.Training.Neighbors,
		MaxIter:   cfg.Training.MaxIter,
		Tol:       cfg.Training.Tol,
		Seed:      cfg.Training.Seed,
	}

	start := time.Now()
	result, err := ml.CrossValidate(ctx, ds.Rows, ds.Labels, cv, pcfg, cfg.Training.Workers)
	if err != nil {
		return fmt.Errorf("cross-validate: %w", err)
	}
	logger.Info("cross-validation finished",
		zap.Int("splits", len(result.Scores)),
		zap.Float64("auc_mean", result.Mean),
		zap.Float64("auc_std", result.Std),
		zap.Duration("elapsed", time.Since(start)),
	)
	fmt.Fprintf(stdout, "Mean ROC AUC: %.3f (%.3f)\n", result.Mean, result.Std)

	fitted, report, err := ml.FitPipeline(ds.Rows, ds.Labels, pcfg)
	if err != nil {
		return fmt.Errorf("fit pipeline: %w", err)
	}
	if !report.Converged {
		logger.Warn("classifier did not converge", zap.Int("iterations", report.Iterations))
	}

	summary := ds.Summary()
	md := ml.Metadata{
		TrainedAt: time.Now().UTC(),
		Rows:      summary.Rows,
		Positives: summary.Positives,
		CVMean:    result.Mean,
		CVStd:     result.Std,
		Folds:     cv.Folds,
		Repeats:   cv.Repeats,
	}
	fitted = fitted.WithMetadata(md)
	if err := fitted.Save(cfg.Artifact.Path); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	logger.Info("artifact written",
		zap.String("path", cfg.Artifact.Path),
		zap.Int("features", report.Features),
		zap.Int("resampled_rows", report.Resampled),
	)
	fmt.Fprintf(stdout, "model saved to %s\n", cfg.Artifact.Path)

	if cfg.Training.ROCPlot != "" {
		if err := writeROCPlot(cfg.Training.ROCPlot, result.OutOfFold, ds.Labels); err != nil {
			logger.Error("failed to write ROC plot", zap.Error(err))
		}
	}

	if cfg.Training.RunLog != "" {
		if err := recordRun(ctx, cfg, md, report.Features); err != nil {
			logger.Error("failed to record training run", zap.Error(err))
		}
	}
	return nil
}

func printSummary(w io.Writer, s pipeline.Summary) {
	fmt.Fprintf(w, "Dataset: %d rows, %d columns\n", s.Rows, s.Columns)
	fmt.Fprintf(w, "Class balance: %d positive, %d negative\n", s.Positives, s.Negatives)
	if s.Issues > 0 {
		fmt.Fprintf(w, "Cleaning issues: %d\n", s.Issues)
	}

	fields := make([]string, 0, len(s.Missing))
	for field := range s.Missing {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		fmt.Fprintf(w, "Missing %s: %d\n", field, s.Missing[field])
	}
}

func writeROCPlot(path string, scores []float64, labels []int) error {
	tpr, fpr, err := ml.ROCCurve(scores, labels)
	if err != nil {
		return err
	}
	auc, err := ml.ROCAUC(scores, labels)
	if err != nil {
		return err
	}
	return ml.SaveROCPlot(path, tpr, fpr, auc)
}

func recordRun(ctx context.Context, cfg *config.Config, md ml.Metadata, features int) error {
	digest, err := fileSHA256(cfg.Artifact.Path)
	if err != nil {
		return err
	}

	runLog, err := db.OpenRunLog(cfg.Training.RunLog)
	if err != nil {
		return err
	}
	defer runLog.Close()

	_, err = runLog.RecordRun(ctx, db.Run{
		ArtifactPath:   cfg.Artifact.Path,
		ArtifactSHA256: digest,
		Rows:           md.Rows,
		Positives:      md.Positives,
		Features:       features,
		CVMean:         md.CVMean,
		CVStd:          md.CVStd,
		Folds:          md.Folds,
		Repeats:        md.Repeats,
		Seed:           cfg.Training.Seed,
		TrainedAt:      md.TrainedAt,
	})
	return err
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
