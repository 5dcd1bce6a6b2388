package nn

import (
	"math"
)

// RocAreaError is a differentiable surrogate of 1 − AUC for binary
// classification. The area under the ROC curve equals the probability that
// a positive sample scores above a negative one; the step in that pairwise
// comparison is smoothed with a logistic so the term has a usable gradient:
//
//	AUC ≈ (1/(P·N)) Σ_p Σ_n σ((s_p − s_n)/k)
//
// Targets are 0/1 labels; anything above 0.5 counts as positive.
type RocAreaError struct {
	// Smoothing controls the logistic steepness; smaller is closer to the
	// exact Wilcoxon statistic but has vanishing gradients. Zero selects
	// the default 0.1.
	Smoothing float64
}

func (r RocAreaError) smoothing() float64 {
	if r.Smoothing <= 0 {
		return 0.1
	}
	return r.Smoothing
}

func splitByLabel(outputs, targets []float64) (positives, negatives []float64, err error) {
	if len(outputs) != len(targets) {
		return nil, nil, dimensionMismatch("roc area: outputs %d, targets %d", len(outputs), len(targets))
	}
	for i, label := range targets {
		if label > 0.5 {
			positives = append(positives, outputs[i])
		} else {
			negatives = append(negatives, outputs[i])
		}
	}
	if len(positives) == 0 || len(negatives) == 0 {
		return nil, nil, dimensionMismatch("roc area: need both classes, got %d positives and %d negatives",
			len(positives), len(negatives))
	}
	return positives, negatives, nil
}

// Error computes 1 − smoothed AUC over a batch of scores and binary labels.
func (r RocAreaError) Error(outputs, targets []float64) (float64, error) {
	positives, negatives, err := splitByLabel(outputs, targets)
	if err != nil {
		return 0, err
	}
	k := r.smoothing()
	var auc float64
	for _, sp := range positives {
		for _, sn := range negatives {
			auc += 1.0 / (1.0 + math.Exp(-(sp-sn)/k))
		}
	}
	auc /= float64(len(positives) * len(negatives))
	return 1 - auc, nil
}

// OutputGradient computes ∂error/∂outputs for every sample score. Each
// positive-negative pair contributes −σ'/(P·N·k) to the positive's entry
// and the opposite sign to the negative's.
func (r RocAreaError) OutputGradient(outputs, targets []float64) ([]float64, error) {
	if len(outputs) != len(targets) {
		return nil, dimensionMismatch("roc area gradient: outputs %d, targets %d", len(outputs), len(targets))
	}
	var posIdx, negIdx []int
	for i, label := range targets {
		if label > 0.5 {
			posIdx = append(posIdx, i)
		} else {
			negIdx = append(negIdx, i)
		}
	}
	if len(posIdx) == 0 || len(negIdx) == 0 {
		return nil, dimensionMismatch("roc area gradient: need both classes, got %d positives and %d negatives",
			len(posIdx), len(negIdx))
	}

	k := r.smoothing()
	scale := 1.0 / (float64(len(posIdx)*len(negIdx)) * k)
	grad := make([]float64, len(outputs))
	for _, p := range posIdx {
		for _, n := range negIdx {
			sig := 1.0 / (1.0 + math.Exp(-(outputs[p]-outputs[n])/k))
			d := sig * (1 - sig) * scale
			grad[p] -= d
			grad[n] += d
		}
	}
	return grad, nil
}
