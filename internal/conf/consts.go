package conf

// Audio format constants. The capture pipeline and the classifier both
// assume signed 16-bit little-endian mono PCM.
const (
	BitDepth       = 16
	NumChannels    = 1
	BytesPerSample = BitDepth / 8
)
