package conf

import (
	"errors"
	"fmt"
)

// Validate checks the loaded settings for values the pipeline cannot run
// with. A validation failure is fatal at startup.
func (s *Settings) Validate() error {
	var errs []error

	if s.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", s.Audio.SampleRate))
	}
	if s.Audio.SampleDuration <= 0 {
		errs = append(errs, fmt.Errorf("sample_duration must be positive, got %d", s.Audio.SampleDuration))
	}
	if s.Audio.BufferDuration < s.Audio.SampleDuration {
		errs = append(errs, fmt.Errorf("buffer_duration (%d) must be at least sample_duration (%d)",
			s.Audio.BufferDuration, s.Audio.SampleDuration))
	}
	if s.Audio.ExtractInterval <= 0 {
		errs = append(errs, fmt.Errorf("extract_interval must be positive, got %d", s.Audio.ExtractInterval))
	}
	if s.BirdNET.Sensitivity <= 0 || s.BirdNET.Sensitivity > 1.5 {
		errs = append(errs, fmt.Errorf("sensitivity must be in (0, 1.5], got %v", s.BirdNET.Sensitivity))
	}
	if s.Realtime.Workers < 1 {
		errs = append(errs, fmt.Errorf("num_workers must be at least 1, got %d", s.Realtime.Workers))
	}
	if s.Realtime.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue_size must be at least 1, got %d", s.Realtime.QueueSize))
	}
	if s.Realtime.ClassifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("classify_timeout must be positive, got %d", s.Realtime.ClassifyTimeout))
	}
	if s.Output.DBPath == "" {
		errs = append(errs, errors.New("db_path must not be empty"))
	}
	if s.API.Port <= 0 || s.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api_port must be a valid port, got %d", s.API.Port))
	}
	if s.runtime != nil {
		if mc := s.runtime.MinConfidence(); mc <= 0 || mc > 1 {
			errs = append(errs, fmt.Errorf("min_confidence must be in (0, 1], got %v", mc))
		}
		if dw := s.runtime.DuplicateWindow(); dw < 0 {
			errs = append(errs, fmt.Errorf("duplicate_window must not be negative, got %v", dw))
		}
	}

	return errors.Join(errs...)
}
