package ml

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// RepeatedStratifiedKFold produces Folds x Repeats train/test splits in
// which every test fold keeps the class proportions of the full dataset.
type RepeatedStratifiedKFold struct {
	Folds   int
	Repeats int
	Seed    int64
}

// Split is one train/test partition of row indices.
type Split struct {
	Repeat int
	Fold   int
	Train  []int
	Test   []int
}

// Splits shuffles each class and deals it round-robin over the folds. Each
// class needs at least Folds rows so that every test fold contains both
// classes.
func (cv RepeatedStratifiedKFold) Splits(labels []int) ([]Split, error) {
	if cv.Folds < 2 {
		return nil, fmt.Errorf("folds must be at least 2, got %d", cv.Folds)
	}
	if cv.Repeats < 1 {
		return nil, fmt.Errorf("repeats must be at least 1, got %d", cv.Repeats)
	}
	if err := checkBinary(labels); err != nil {
		return nil, err
	}
	classes := [2][]int{}
	for i, label := range labels {
		classes[label] = append(classes[label], i)
	}
	for label, members := range classes {
		if len(members) < cv.Folds {
			return nil, fmt.Errorf("%w: class %d has %d rows, folds=%d",
				ErrInsufficientClassMembers, label, len(members), cv.Folds)
		}
	}

	rng := rand.New(rand.NewSource(cv.Seed))
	splits := make([]Split, 0, cv.Folds*cv.Repeats)
	for repeat := 0; repeat < cv.Repeats; repeat++ {
		assignment := make([]int, len(labels))
		offset := 0
		for _, members := range classes {
			shuffled := append([]int(nil), members...)
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			for i, idx := range shuffled {
				assignment[idx] = (offset + i) % cv.Folds
			}
			offset += len(shuffled)
		}
		for fold := 0; fold < cv.Folds; fold++ {
			split := Split{Repeat: repeat, Fold: fold}
			for idx, f := range assignment {
				if f == fold {
					split.Test = append(split.Test, idx)
				} else {
					split.Train = append(split.Train, idx)
				}
			}
			splits = append(splits, split)
		}
	}
	return splits, nil
}

// CVResult summarises a cross-validation run.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64

	// OutOfFold holds the first repeat's held-out probability for every row.
	OutOfFold []float64
}

// CrossValidate refits the whole pipeline on every training split, scores
// ROC AUC on the matching test split and reports mean and population
// standard deviation. Folds run concurrently on at most workers goroutines;
// workers <= 0 means GOMAXPROCS.
func CrossValidate(ctx context.Context, rows []Row, labels []int, cv RepeatedStratifiedKFold, cfg PipelineConfig, workers int) (CVResult, error) {
	var result CVResult
	if len(rows) == 0 {
		return result, ErrEmptyDataset
	}
	if len(rows) != len(labels) {
		return result, ErrLabelMismatch
	}
	splits, err := cv.Splits(labels)
	if err != nil {
		return result, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	scores := make([]float64, len(splits))
	oof := make([]float64, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, split := range splits {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trainRows, trainLabels := subset(rows, labels, split.Train)
			testRows, testLabels := subset(rows, labels, split.Test)

			p, _, err := FitPipeline(trainRows, trainLabels, cfg)
			if err != nil {
				return fmt.Errorf("repeat %d fold %d: %w", split.Repeat, split.Fold, err)
			}
			proba, err := p.PredictProba(testRows)
			if err != nil {
				return fmt.Errorf("repeat %d fold %d: %w", split.Repeat, split.Fold, err)
			}
			auc, err := ROCAUC(proba, testLabels)
			if err != nil {
				return fmt.Errorf("repeat %d fold %d: %w", split.Repeat, split.Fold, err)
			}
			scores[i] = auc
			if split.Repeat == 0 {
				for k, idx := range split.Test {
					oof[idx] = proba[k]
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	result.Scores = scores
	result.Mean, result.Std = stat.PopMeanStdDev(scores, nil)
	result.OutOfFold = oof
	return result, nil
}

func subset(rows []Row, labels []int, idx []int) ([]Row, []int) {
	outRows := make([]Row, len(idx))
	outLabels := make([]int, len(idx))
	for i, j := range idx {
		outRows[i] = rows[j]
		outLabels[i] = labels[j]
	}
	return outRows, outLabels
}

// ROCCurve returns the true and false positive rates of the ROC curve in
// increasing order of false positive rate.
func ROCCurve(scores []float64, labels []int) (tpr, fpr []float64, err error) {
	if len(scores) != len(labels) {
		return nil, nil, ErrLabelMismatch
	}
	if err := checkBinary(labels); err != nil {
		return nil, nil, err
	}
	y := append([]float64(nil), scores...)
	classes := make([]bool, len(labels))
	for i, label := range labels {
		classes[i] = label == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ = stat.ROC(nil, y, classes, nil)
	return tpr, fpr, nil
}

// ROCAUC is the area under the ROC curve of scores against binary labels.
func ROCAUC(scores []float64, labels []int) (float64, error) {
	tpr, fpr, err := ROCCurve(scores, labels)
	if err != nil {
		return 0, err
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}
