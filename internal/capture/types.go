package capture

import (
	"context"
	"io"
	"time"
)

// State of a capture controller
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
)

// Config describes how the input device should be opened
type Config struct {
	Format     string
	Device     string
	SampleRate int
	Channels   int
}

// Session is a live device session producing signed 16-bit little-endian PCM
type Session interface {
	io.ReadCloser
	Stop() error
}

// Device opens capture sessions
type Device interface {
	Open(ctx context.Context, cfg Config) (Session, error)
}

// PermissionChecker reports whether microphone access is granted. It
// returns nil when capture may start.
type PermissionChecker interface {
	CheckPermission(ctx context.Context) error
}

// PermissionFunc adapts a function to PermissionChecker
type PermissionFunc func(ctx context.Context) error

func (f PermissionFunc) CheckPermission(ctx context.Context) error {
	return f(ctx)
}

// AlwaysGranted is used where the OS enforces access when the device opens
var AlwaysGranted PermissionChecker = PermissionFunc(func(context.Context) error { return nil })

// Artifact is the finished local recording returned by Stop
type Artifact struct {
	Path      string
	SizeBytes int64
	Duration  time.Duration
}

// Options configures a Controller
type Options struct {
	Config        Config
	TempDir       string
	TickInterval  time.Duration
	LevelInterval time.Duration
	ChunkSize     int
	StopTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Config.SampleRate <= 0 {
		o.Config.SampleRate = 16000
	}
	if o.Config.Channels <= 0 {
		o.Config.Channels = 1
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.LevelInterval <= 0 {
		o.LevelInterval = 100 * time.Millisecond
	}
	if o.ChunkSize < 256 {
		o.ChunkSize = 4096
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 5 * time.Second
	}
	return o
}
