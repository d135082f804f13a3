package ffmpeg

// AudioMetadata represents metadata extracted from an audio file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`    // Duration in seconds
	SampleRate int     `json:"sample_rate"` // Sample rate in Hz
	Channels   int     `json:"channels"`    // Number of audio channels
	Bitrate    int     `json:"bitrate"`     // Bitrate in bits per second
	Format     string  `json:"format"`      // Container format (wav, webm, etc.)
	Codec      string  `json:"codec"`       // Audio codec
	Size       int64   `json:"size"`        // File size in bytes
}

// InputConfig describes the capture device ffmpeg reads from
type InputConfig struct {
	Format     string // ffmpeg input format: pulse, alsa, avfoundation, dshow
	Device     string // device name understood by the input format
	SampleRate int    // output sample rate in Hz
	Channels   int    // output channel count
}

// DefaultInputConfig returns settings suited to speech capture
func DefaultInputConfig() InputConfig {
	return InputConfig{
		Format:     "pulse",
		Device:     "default",
		SampleRate: 16000,
		Channels:   1,
	}
}

func (c InputConfig) withDefaults() InputConfig {
	d := DefaultInputConfig()
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Device == "" {
		c.Device = d.Device
	}
	if c.SampleRate <= 0 {
		c.SampleRate = d.SampleRate
	}
	if c.Channels <= 0 {
		c.Channels = d.Channels
	}
	return c
}
