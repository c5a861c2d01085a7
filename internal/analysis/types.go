// Package analysis contains the detection pipeline: analyzer workers that
// run audio windows through the classification model, the duplicate filter
// that suppresses repeat detections, and the single writer that persists
// what survives.
package analysis

import (
	"time"

	"github.com/magpi/listener/internal/birdnet"
)

// Candidate is a single above-threshold classification result awaiting
// duplicate filtering and persistence. Timestamp is when the audio window
// ended, not when classification finished.
type Candidate struct {
	Species    string
	Confidence float64
	Timestamp  time.Time
	PCM        []byte
	SampleRate int
	Source     string
}

// Classifier is the model interface the analyzer workers call. It must be
// safe for concurrent use.
type Classifier interface {
	Predict(sample []float32) ([]birdnet.Result, error)
}
