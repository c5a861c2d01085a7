package birdnet

import (
	"fmt"
	"math"
	"sort"

	tflite "github.com/tphakala/go-tflite"

	"github.com/magpi/listener/internal/errors"
)

// Predict runs inference on a single window of normalized audio samples and
// returns the top results ranked by confidence. The interpreter is not
// reentrant, so concurrent callers are serialized.
func (bn *BirdNET) Predict(sample []float32) ([]Result, error) {
	bn.mu.Lock()
	defer bn.mu.Unlock()

	if bn.interpreter == nil {
		return nil, errors.Newf("interpreter not initialized").
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Build()
	}

	input := bn.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component("birdnet").
			Category(errors.CategoryClassification).
			Build()
	}
	copy(input.Float32s(), sample)

	if status := bn.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.New(fmt.Errorf("inference failed: %v", status)).
			Component("birdnet").
			Category(errors.CategoryClassification).
			Build()
	}

	output := bn.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component("birdnet").
			Category(errors.CategoryClassification).
			Build()
	}

	predictions := make([]float32, len(output.Float32s()))
	copy(predictions, output.Float32s())

	confidence := applySigmoid(predictions, bn.sensitivity)
	results, err := pairLabelsAndConfidence(bn.labels, confidence)
	if err != nil {
		return nil, errors.New(err).
			Component("birdnet").
			Category(errors.CategoryClassification).
			Build()
	}

	sortResults(results)
	return trimResults(results, maxResults), nil
}

// applySigmoid maps raw model logits to confidence values in [0, 1].
// Sensitivity scales the logits before the sigmoid: higher sensitivity
// pushes borderline predictions toward the extremes.
func applySigmoid(predictions []float32, sensitivity float64) []float32 {
	confidence := make([]float32, len(predictions))
	for i, p := range predictions {
		confidence[i] = float32(1.0 / (1.0 + math.Exp(-sensitivity*float64(p))))
	}
	return confidence
}

// pairLabelsAndConfidence zips the label list with the model output.
func pairLabelsAndConfidence(labels []string, confidence []float32) ([]Result, error) {
	if len(labels) != len(confidence) {
		return nil, fmt.Errorf("label count %d does not match output size %d", len(labels), len(confidence))
	}

	results := make([]Result, len(labels))
	for i := range labels {
		results[i] = Result{Species: labels[i], Confidence: confidence[i]}
	}
	return results, nil
}

// sortResults orders results by confidence, highest first.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
}

// trimResults keeps at most n results.
func trimResults(results []Result, n int) []Result {
	if len(results) > n {
		return results[:n]
	}
	return results
}
