package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession produces budget bytes immediately, then serves chunks sent on
// feed until stopped. A zero-length chunk acts as a barrier: once it is
// accepted, every earlier chunk has been written.
type fakeSession struct {
	budget  int
	sample  int16
	feed    chan []byte
	failErr error

	stopOnce sync.Once
	stop     chan struct{}
}

func newFakeSession(budget int) *fakeSession {
	return &fakeSession{
		budget: budget,
		sample: 8000,
		feed:   make(chan []byte),
		stop:   make(chan struct{}),
	}
}

func (f *fakeSession) Read(p []byte) (int, error) {
	if f.budget > 0 {
		n := min(len(p), f.budget, 3200)
		n -= n % 2
		for i := 0; i+1 < n; i += 2 {
			binary.LittleEndian.PutUint16(p[i:], uint16(f.sample))
		}
		f.budget -= n
		return n, nil
	}
	if f.failErr != nil {
		return 0, f.failErr
	}
	select {
	case chunk := <-f.feed:
		return copy(p, chunk), nil
	case <-f.stop:
		return 0, io.EOF
	}
}

func (f *fakeSession) Close() error { return f.Stop() }

func (f *fakeSession) Stop() error {
	f.stopOnce.Do(func() { close(f.stop) })
	return nil
}

type fakeDevice struct {
	mu       sync.Mutex
	opens    int
	next     func() *fakeSession
	openErr  error
	sessions []*fakeSession
}

func (d *fakeDevice) Open(ctx context.Context, cfg Config) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := d.next()
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDevice) last() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[len(d.sessions)-1]
}

func newDevice(budget int) *fakeDevice {
	return &fakeDevice{next: func() *fakeSession { return newFakeSession(budget) }}
}

func newTestController(t *testing.T, mic *Microphone, device Device) (*Controller, string) {
	dir := t.TempDir()
	c := NewController(mic, device, nil, Options{
		TempDir:       dir,
		TickInterval:  10 * time.Millisecond,
		LevelInterval: time.Nanosecond,
		StopTimeout:   time.Second,
	})
	return c, dir
}

func captureFiles(t *testing.T, dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "capture-*.wav"))
	require.NoError(t, err)
	return matches
}

func TestStopWithoutStart(t *testing.T) {
	device := newDevice(0)
	c, dir := newTestController(t, NewMicrophone("default"), device)

	artifact, err := c.Stop()
	assert.NoError(t, err)
	assert.Nil(t, artifact)
	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, device.opens)
	assert.Empty(t, captureFiles(t, dir))
}

func TestStartStop(t *testing.T) {
	const oneSecond = 16000 * 2
	mic := NewMicrophone("default")
	c, _ := newTestController(t, mic, newDevice(oneSecond))

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StateRecording, c.State())
	assert.True(t, mic.InUse())

	// Barrier: the budget has been written once the feed is accepted
	device := c.device.(*fakeDevice)
	device.last().feed <- nil

	artifact, err := c.Stop()
	require.NoError(t, err)
	require.NotNil(t, artifact)

	assert.Equal(t, int64(wavHeaderSize+oneSecond), artifact.SizeBytes)
	assert.Equal(t, time.Second, artifact.Duration)
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, mic.InUse())

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint32(36+oneSecond), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint32(oneSecond), binary.LittleEndian.Uint32(data[40:44]))
}

func TestStartIgnoresCallerCancellation(t *testing.T) {
	c, _ := newTestController(t, NewMicrophone("default"), newDevice(0))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateRecording, c.State())

	artifact, err := c.Stop()
	require.NoError(t, err)
	assert.NotNil(t, artifact)
}

func TestPauseDropsFrames(t *testing.T) {
	c, _ := newTestController(t, NewMicrophone("default"), newDevice(0))
	require.NoError(t, c.Start(context.Background()))
	session := c.device.(*fakeDevice).last()

	chunk := make([]byte, 3200)
	session.feed <- chunk
	session.feed <- nil

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())
	pausedAt := c.Elapsed()
	session.feed <- chunk
	session.feed <- nil
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, pausedAt, c.Elapsed())

	require.NoError(t, c.Resume())
	session.feed <- chunk
	session.feed <- nil

	artifact, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, int64(wavHeaderSize+6400), artifact.SizeBytes)
	assert.InDelta(t, 0.2, artifact.Duration.Seconds(), 0.001)
}

func TestInvalidTransitions(t *testing.T) {
	c, _ := newTestController(t, NewMicrophone("default"), newDevice(0))

	assert.ErrorIs(t, c.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Resume(), ErrInvalidTransition)

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Resume(), ErrInvalidTransition)
	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), ErrInvalidTransition)

	// Stop is valid from paused
	artifact, err := c.Stop()
	require.NoError(t, err)
	assert.NotNil(t, artifact)
}

func TestPermissionDenied(t *testing.T) {
	device := newDevice(0)
	mic := NewMicrophone("default")
	c := NewController(mic, device, PermissionFunc(func(context.Context) error {
		return errors.New("revoked in system settings")
	}), Options{TempDir: t.TempDir()})

	err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Zero(t, device.opens)
	assert.False(t, mic.InUse())
	assert.Equal(t, StateIdle, c.State())
}

func TestSharedMicrophoneIsExclusive(t *testing.T) {
	mic := NewMicrophone("default")
	first, _ := newTestController(t, mic, newDevice(0))
	second, _ := newTestController(t, mic, newDevice(0))

	require.NoError(t, first.Start(context.Background()))
	assert.ErrorIs(t, second.Start(context.Background()), ErrDeviceBusy)
	assert.ErrorIs(t, first.Start(context.Background()), ErrDeviceBusy)

	_, err := first.Stop()
	require.NoError(t, err)

	require.NoError(t, second.Start(context.Background()))
	second.Cancel()
}

func TestSeparateMicrophonesAreIndependent(t *testing.T) {
	first, _ := newTestController(t, NewMicrophone("usb-1"), newDevice(0))
	second, _ := newTestController(t, NewMicrophone("usb-2"), newDevice(0))

	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, second.Start(context.Background()))
	first.Cancel()
	second.Cancel()
}

func TestDeviceFailureMidCapture(t *testing.T) {
	device := &fakeDevice{next: func() *fakeSession {
		s := newFakeSession(3200)
		s.failErr = errors.New("input/output error")
		return s
	}}
	mic := NewMicrophone("default")
	c, dir := newTestController(t, mic, device)

	require.NoError(t, c.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)

	artifact, err := c.Stop()
	assert.Nil(t, artifact)
	assert.ErrorIs(t, err, ErrDeviceFailure)
	assert.Empty(t, captureFiles(t, dir))
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, mic.InUse())

	// A fresh start works after a failure
	device.next = func() *fakeSession { return newFakeSession(0) }
	require.NoError(t, c.Start(context.Background()))
	artifact, err = c.Stop()
	require.NoError(t, err)
	assert.NotNil(t, artifact)
}

func TestDeviceOpenErrorReleasesMicrophone(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
		want    error
	}{
		{"permission", ErrPermissionDenied, ErrPermissionDenied},
		{"busy", ErrDeviceBusy, ErrDeviceBusy},
		{"other", errors.New("no such device"), ErrDeviceFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mic := NewMicrophone("default")
			c, dir := newTestController(t, mic, &fakeDevice{openErr: tt.openErr})

			assert.ErrorIs(t, c.Start(context.Background()), tt.want)
			assert.False(t, mic.InUse())
			assert.Equal(t, StateIdle, c.State())
			assert.Empty(t, captureFiles(t, dir))
		})
	}
}

func TestCancelDeletesArtifact(t *testing.T) {
	mic := NewMicrophone("default")
	c, dir := newTestController(t, mic, newDevice(3200))

	c.Cancel() // no-op while idle

	require.NoError(t, c.Start(context.Background()))
	require.Len(t, captureFiles(t, dir), 1)

	c.Cancel()
	assert.Empty(t, captureFiles(t, dir))
	assert.Equal(t, StateIdle, c.State())
	assert.False(t, mic.InUse())
}

func TestTicksAndLevels(t *testing.T) {
	c, _ := newTestController(t, NewMicrophone("default"), newDevice(3200))
	require.NoError(t, c.Start(context.Background()))
	defer c.Cancel()

	select {
	case elapsed := <-c.Ticks():
		assert.Greater(t, elapsed, time.Duration(0))
	case <-time.After(time.Second):
		t.Fatal("no tick received")
	}

	select {
	case level := <-c.Levels():
		assert.InDelta(t, 8000.0/32768.0, level, 0.001)
	case <-time.After(time.Second):
		t.Fatal("no level received")
	}
}

func TestRMSLevel(t *testing.T) {
	assert.Equal(t, 0.0, rmsLevel(nil))
	assert.Equal(t, 0.0, rmsLevel(make([]byte, 64)))

	full := make([]byte, 4)
	binary.LittleEndian.PutUint16(full[0:], uint16(0x8000)) // -32768
	binary.LittleEndian.PutUint16(full[2:], uint16(0x8000))
	assert.Equal(t, 1.0, rmsLevel(full))
}
