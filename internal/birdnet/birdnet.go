// Package birdnet wraps the BirdNET TensorFlow Lite model behind the
// classifier interface consumed by the analysis pipeline. The model itself
// is opaque to the rest of the system: audio samples in, ranked species
// confidences out.
package birdnet

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sync"

	tflite "github.com/tphakala/go-tflite"

	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/errors"
	"github.com/magpi/listener/internal/logging"
)

// maxResults is the number of top-ranked results Predict returns.
const maxResults = 10

// BirdNET holds the TFLite interpreter and the species labels. A single
// interpreter serves all analyzer workers; Predict serializes access.
type BirdNET struct {
	interpreter *tflite.Interpreter
	model       *tflite.Model
	labels      []string
	sensitivity float64
	mu          sync.Mutex
	log         *slog.Logger
}

// New loads the model and labels and initializes the interpreter.
func New(settings *conf.Settings) (*BirdNET, error) {
	bn := &BirdNET{
		sensitivity: settings.BirdNET.Sensitivity,
		log:         logging.ForService("birdnet"),
	}

	if err := bn.loadLabels(settings.BirdNET.LabelPath); err != nil {
		return nil, errors.New(fmt.Errorf("failed to load species labels: %w", err)).
			Component("birdnet").
			Category(errors.CategoryLabelLoad).
			Context("label_path", settings.BirdNET.LabelPath).
			Build()
	}

	if err := bn.initializeModel(settings.BirdNET.ModelPath, settings.BirdNET.Threads); err != nil {
		return nil, errors.New(fmt.Errorf("failed to initialize model: %w", err)).
			Component("birdnet").
			Category(errors.CategoryModelInit).
			Context("model_path", settings.BirdNET.ModelPath).
			Build()
	}

	bn.log.Info("model initialized",
		"model", settings.BirdNET.ModelPath,
		"labels", len(bn.labels),
		"threads", settings.BirdNET.Threads)

	return bn, nil
}

func (bn *BirdNET) initializeModel(modelPath string, threads int) error {
	model := tflite.NewModelFromFile(modelPath)
	if model == nil {
		return fmt.Errorf("cannot load model from %s", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	if threads > 0 {
		options.SetNumThread(threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return fmt.Errorf("tensor allocation failed: %v", status)
	}

	bn.model = model
	bn.interpreter = interpreter
	return nil
}

// loadLabels reads one species label per line.
func (bn *BirdNET) loadLabels(labelPath string) error {
	f, err := os.Open(labelPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(labels) == 0 {
		return fmt.Errorf("label file %s is empty", labelPath)
	}

	bn.labels = labels
	return nil
}

// Labels returns the loaded species labels.
func (bn *BirdNET) Labels() []string {
	return bn.labels
}

// Close releases the interpreter and model.
func (bn *BirdNET) Close() {
	bn.mu.Lock()
	defer bn.mu.Unlock()
	if bn.interpreter != nil {
		bn.interpreter.Delete()
		bn.interpreter = nil
	}
	if bn.model != nil {
		bn.model.Delete()
		bn.model = nil
	}
}
