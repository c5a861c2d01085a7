// Package benchmark contains the model benchmark command.
package benchmark

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/magpi/listener/internal/birdnet"
	"github.com/magpi/listener/internal/conf"
)

// Command creates the command that measures classification latency on the
// current host, useful for sizing the worker count and timeout.
func Command(settings *conf.Settings) *cobra.Command {
	var runs int

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure model inference speed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(settings, runs)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 20, "number of inference runs")
	return cmd
}

func runBenchmark(settings *conf.Settings, runs int) error {
	classifier, err := birdnet.New(settings)
	if err != nil {
		return err
	}
	defer classifier.Close()

	samples := make([]float32, settings.Audio.SampleRate*settings.Audio.SampleDuration)
	for i := range samples {
		samples[i] = rand.Float32()*2 - 1
	}

	// one warm-up run outside the measurement
	if _, err := classifier.Predict(samples); err != nil {
		return err
	}

	durations := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		start := time.Now()
		if _, err := classifier.Predict(samples); err != nil {
			return err
		}
		elapsed := time.Since(start)
		durations = append(durations, elapsed)
		fmt.Printf("run %2d: %v\n", i+1, elapsed.Round(time.Millisecond))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var total time.Duration
	for _, d := range durations {
		total += d
	}

	fmt.Printf("\nruns: %d  min: %v  median: %v  max: %v  avg: %v\n",
		runs,
		durations[0].Round(time.Millisecond),
		durations[runs/2].Round(time.Millisecond),
		durations[runs-1].Round(time.Millisecond),
		(total / time.Duration(runs)).Round(time.Millisecond))

	return nil
}
