// Package myaudio implements the audio capture side of the listener: the
// circular capture buffer, the capture device sources and the recorder that
// slices analysis windows out of the live audio stream.
package myaudio
