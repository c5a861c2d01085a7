package myaudio

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/errors"
)

// MalgoSource captures audio from a system device through the malgo
// (miniaudio) bindings. Frames arrive on the device's capture callback as
// S16LE mono PCM at the configured sample rate.
type MalgoSource struct {
	deviceName string
	sampleRate int

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	errCh  chan error

	// opened is atomic, not guarded by mu: miniaudio delivers the Stop
	// notification synchronously from device stop/uninit, while Close
	// still holds mu. The notification path must never take the lock.
	opened atomic.Bool
}

// NewMalgoSource creates a source for the named capture device. An empty
// name selects the system default device.
func NewMalgoSource(deviceName string, sampleRate int) *MalgoSource {
	return &MalgoSource{
		deviceName: deviceName,
		sampleRate: sampleRate,
		errCh:      make(chan error, 1),
	}
}

// Open initializes the malgo context, selects the capture device and starts
// the capture stream.
func (s *MalgoSource) Open(onFrames func(pcm []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened.Load() {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.Newf("failed to initialize audio context: %w", err).
			Component("capture").
			Category(errors.CategoryDevice).
			Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = uint32(s.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if s.deviceName != "" {
		infos, err := mctx.Devices(malgo.Capture)
		if err != nil {
			_ = mctx.Uninit()
			mctx.Free()
			return errors.Newf("failed to enumerate capture devices: %w", err).
				Component("capture").
				Category(errors.CategoryDevice).
				Build()
		}
		found := false
		for i := range infos {
			if strings.Contains(infos[i].Name(), s.deviceName) {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			_ = mctx.Uninit()
			mctx.Free()
			return errors.Newf("capture device %q not found", s.deviceName).
				Component("capture").
				Category(errors.CategoryDevice).
				Context("device", s.deviceName).
				Build()
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, framecount uint32) {
			if framecount == 0 || len(pInputSamples) == 0 {
				return
			}
			onFrames(pInputSamples)
		},
		Stop: func() {
			s.notifyStop()
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return errors.Newf("failed to initialize capture device: %w", err).
			Component("capture").
			Category(errors.CategoryDevice).
			Context("device", s.deviceName).
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return errors.Newf("failed to start capture device: %w", err).
			Component("capture").
			Category(errors.CategoryDevice).
			Context("device", s.deviceName).
			Build()
	}

	s.ctx = mctx
	s.device = device
	s.opened.Store(true)
	return nil
}

// notifyStop reports a device that stopped outside of Close, so the
// recorder can attempt a reopen. It runs on miniaudio's notification path
// while Close may be holding the source lock, so it must not take s.mu.
func (s *MalgoSource) notifyStop() {
	if !s.opened.Load() {
		return
	}
	select {
	case s.errCh <- errors.Newf("capture device stopped unexpectedly").
		Component("capture").
		Category(errors.CategoryDevice).
		Context("device", s.deviceName).
		Build():
	default:
	}
}

// Errors implements AudioSource.
func (s *MalgoSource) Errors() <-chan error {
	return s.errCh
}

// Close stops the capture stream and releases the device and context.
func (s *MalgoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened.Load() {
		return nil
	}
	// cleared before Uninit so the Stop notification fired by an explicit
	// close is not mistaken for a device failure
	s.opened.Store(false)

	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			s.ctx.Free()
			s.ctx = nil
			return fmt.Errorf("failed to uninitialize audio context: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

// Name implements AudioSource.
func (s *MalgoSource) Name() string {
	if s.deviceName == "" {
		return "default"
	}
	return s.deviceName
}

// ListCaptureDevices returns the names of the available capture devices.
func ListCaptureDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for i := range infos {
		names = append(names, infos[i].Name())
	}
	return names, nil
}
