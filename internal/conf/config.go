// Package conf loads the listener configuration from the environment.
// Settings are read once at startup and are immutable afterwards, with the
// exception of the small runtime-tunable subset exposed through Runtime.
package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// AudioSettings contains capture device and buffering settings.
type AudioSettings struct {
	Device          string // capture device name, empty for system default
	SampleRate      int    // samples per second
	BufferDuration  int    // capture ring buffer length in seconds
	SampleDuration  int    // analysis window length in seconds
	ExtractInterval int    // seconds between window extractions
}

// BirdNETSettings contains classification model settings.
type BirdNETSettings struct {
	ModelPath   string  // path to the TFLite model file
	LabelPath   string  // path to the species label file
	Sensitivity float64 // sigmoid sensitivity applied to raw predictions
	Threads     int     // interpreter thread count
}

// RealtimeSettings contains pipeline settings for realtime analysis.
type RealtimeSettings struct {
	Workers         int // number of analyzer workers
	QueueSize       int // capacity of the window and candidate queues
	ClassifyTimeout int // classification call timeout in seconds
	Export          ExportSettings
}

// ExportSettings controls audio clip export for accepted detections.
type ExportSettings struct {
	Enabled bool
	Path    string
}

// OutputSettings contains persistence settings.
type OutputSettings struct {
	DBPath string // path to the SQLite database file
}

// APISettings contains HTTP API settings.
type APISettings struct {
	Host     string
	Port     int
	CacheTTL int // aggregation cache TTL in seconds
}

// Settings is the process-wide configuration snapshot.
type Settings struct {
	Debug    bool
	LogLevel string

	Audio    AudioSettings
	BirdNET  BirdNETSettings
	Realtime RealtimeSettings
	Output   OutputSettings
	API      APISettings

	runtime *Runtime
}

// Runtime returns the runtime-tunable subset of the configuration.
func (s *Settings) Runtime() *Runtime {
	return s.runtime
}

// WindowDuration returns the analysis window length.
func (s *Settings) WindowDuration() time.Duration {
	return time.Duration(s.Audio.SampleDuration) * time.Second
}

// setDefaults registers default values mirroring the documented
// LISTENER_* environment variables.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)

	v.SetDefault("audio_device", "")
	v.SetDefault("sample_rate", 48000)
	v.SetDefault("buffer_duration", 10)
	v.SetDefault("sample_duration", 5)
	v.SetDefault("extract_interval", 5)

	v.SetDefault("model_path", "model/BirdNET_GLOBAL_6K_V2.4_Model_FP32.tflite")
	v.SetDefault("label_path", "model/labels.txt")
	v.SetDefault("sensitivity", 1.0)
	v.SetDefault("birdnet_threads", 2)

	v.SetDefault("min_confidence", 0.5)
	v.SetDefault("duplicate_window", 30)
	v.SetDefault("num_workers", 2)
	v.SetDefault("queue_size", 100)
	v.SetDefault("classify_timeout", 30)

	v.SetDefault("export_enabled", false)
	v.SetDefault("export_path", "clips")

	v.SetDefault("db_path", "data/detections.db")

	v.SetDefault("api_host", "0.0.0.0")
	v.SetDefault("api_port", 8000)
	v.SetDefault("cache_ttl", 10)
}

// Load reads the configuration from LISTENER_* environment variables,
// applying defaults for anything unset, and validates the result.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("LISTENER")
	v.AutomaticEnv()
	setDefaults(v)

	s := &Settings{
		Debug:    v.GetBool("debug"),
		LogLevel: v.GetString("log_level"),
		Audio: AudioSettings{
			Device:          v.GetString("audio_device"),
			SampleRate:      v.GetInt("sample_rate"),
			BufferDuration:  v.GetInt("buffer_duration"),
			SampleDuration:  v.GetInt("sample_duration"),
			ExtractInterval: v.GetInt("extract_interval"),
		},
		BirdNET: BirdNETSettings{
			ModelPath:   v.GetString("model_path"),
			LabelPath:   v.GetString("label_path"),
			Sensitivity: v.GetFloat64("sensitivity"),
			Threads:     v.GetInt("birdnet_threads"),
		},
		Realtime: RealtimeSettings{
			Workers:         v.GetInt("num_workers"),
			QueueSize:       v.GetInt("queue_size"),
			ClassifyTimeout: v.GetInt("classify_timeout"),
			Export: ExportSettings{
				Enabled: v.GetBool("export_enabled"),
				Path:    v.GetString("export_path"),
			},
		},
		Output: OutputSettings{
			DBPath: v.GetString("db_path"),
		},
		API: APISettings{
			Host:     v.GetString("api_host"),
			Port:     v.GetInt("api_port"),
			CacheTTL: v.GetInt("cache_ttl"),
		},
	}

	s.runtime = newRuntime(
		v.GetFloat64("min_confidence"),
		time.Duration(v.GetInt("duplicate_window"))*time.Second,
	)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return s, nil
}
