package conf

import (
	"fmt"
	"sync"
	"time"
)

// Runtime holds the settings the dashboard may adjust while the service is
// running. All access goes through its methods; the zero value is not usable.
type Runtime struct {
	mu              sync.RWMutex
	minConfidence   float64
	duplicateWindow time.Duration
}

func newRuntime(minConfidence float64, duplicateWindow time.Duration) *Runtime {
	return &Runtime{
		minConfidence:   minConfidence,
		duplicateWindow: duplicateWindow,
	}
}

// MinConfidence returns the confidence threshold below which classification
// results are discarded.
func (r *Runtime) MinConfidence() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minConfidence
}

// DuplicateWindow returns the span within which repeat detections of the
// same species are suppressed.
func (r *Runtime) DuplicateWindow() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.duplicateWindow
}

// SetMinConfidence updates the confidence threshold.
func (r *Runtime) SetMinConfidence(v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("min_confidence must be in (0, 1], got %v", v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minConfidence = v
	return nil
}

// Update applies both tunables as a single operation. Nil fields are left
// unchanged. Validation happens before anything is written, so a rejected
// update leaves the current values untouched.
func (r *Runtime) Update(minConfidence *float64, duplicateWindow *time.Duration) error {
	if minConfidence != nil && (*minConfidence <= 0 || *minConfidence > 1) {
		return fmt.Errorf("min_confidence must be in (0, 1], got %v", *minConfidence)
	}
	if duplicateWindow != nil && *duplicateWindow < 0 {
		return fmt.Errorf("duplicate_window must not be negative, got %v", *duplicateWindow)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if minConfidence != nil {
		r.minConfidence = *minConfidence
	}
	if duplicateWindow != nil {
		r.duplicateWindow = *duplicateWindow
	}
	return nil
}

// SetDuplicateWindow updates the duplicate suppression window.
func (r *Runtime) SetDuplicateWindow(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duplicate_window must not be negative, got %v", d)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicateWindow = d
	return nil
}
