package myaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/magpi/listener/internal/conf"
)

// SavePCMToWAV writes S16LE mono PCM to a WAV file, creating parent
// directories as needed.
func SavePCMToWAV(filePath string, pcm []byte, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create clip directory: %w", err)
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create clip file: %w", err)
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, sampleRate, conf.BitDepth, conf.NumChannels, 1)

	buf := &audio.IntBuffer{
		Data:   byteSliceToInts(pcm),
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: conf.NumChannels},
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	return enc.Close()
}

// byteSliceToInts converts S16LE PCM bytes to int samples for the encoder.
func byteSliceToInts(pcm []byte) []int {
	samples := make([]int, 0, len(pcm)/2)
	buf := bytes.NewBuffer(pcm)

	for {
		var sample int16
		if err := binary.Read(buf, binary.LittleEndian, &sample); err != nil {
			break
		}
		samples = append(samples, int(sample))
	}

	return samples
}

// PCMToFloat32 converts S16LE PCM bytes to normalized float32 samples in
// [-1, 1], the input format of the classification model.
func PCMToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
		samples[i] = float32(v) / 32768.0
	}
	return samples
}
