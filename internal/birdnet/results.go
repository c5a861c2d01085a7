package birdnet

// Result is a single classification outcome: a species label paired with
// the model's confidence in [0, 1]. Predict returns results ranked by
// confidence, descending.
type Result struct {
	Species    string
	Confidence float32
}
