package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/abhisek/cclprep/internal/config"
)

// ExecConfig locates the external media tools used on a real terminal.
type ExecConfig struct {
	FFplay string // Default: "ffplay"
	FFmpeg string // Default: "ffmpeg"

	// InputFormat is the ffmpeg capture backend ("pulse", "alsa",
	// "avfoundation", "dshow"). Default depends on the OS.
	InputFormat string

	// InputDevice is the capture device name. Default: "default" (":0" on
	// macOS).
	InputDevice string

	// EchoCancelDevice, when set, is opened instead of InputDevice if echo
	// cancellation is requested (e.g. PulseAudio's "echo-cancel-source").
	EchoCancelDevice string
}

// DefaultExecConfig returns settings for the host OS.
func DefaultExecConfig() ExecConfig {
	cfg := ExecConfig{FFplay: "ffplay", FFmpeg: "ffmpeg", InputDevice: "default"}
	switch runtime.GOOS {
	case "darwin":
		cfg.InputFormat = "avfoundation"
		cfg.InputDevice = ":0"
	case "windows":
		cfg.InputFormat = "dshow"
	default:
		cfg.InputFormat = "pulse"
	}
	return cfg
}

// ExecConfigFromEnv overrides the host defaults with CCLPREP_FFPLAY,
// CCLPREP_FFMPEG, CCLPREP_MIC_FORMAT, CCLPREP_MIC_DEVICE and
// CCLPREP_MIC_ECHO_CANCEL_DEVICE.
func ExecConfigFromEnv() ExecConfig {
	cfg := DefaultExecConfig()
	cfg.FFplay = config.Get("FFPLAY", cfg.FFplay)
	cfg.FFmpeg = config.Get("FFMPEG", cfg.FFmpeg)
	cfg.InputFormat = config.Get("MIC_FORMAT", cfg.InputFormat)
	cfg.InputDevice = config.Get("MIC_DEVICE", cfg.InputDevice)
	cfg.EchoCancelDevice = config.Get("MIC_ECHO_CANCEL_DEVICE", cfg.EchoCancelDevice)
	return cfg
}

// ExecDevice plays audio by running ffplay. Object URLs are resolved
// through the registry and spooled to a temp file first.
type ExecDevice struct {
	bin  string
	urls *ObjectURLs

	mu      sync.Mutex
	src     string
	tmpFile string
	pos     time.Duration
	cur     *playProc
}

type playProc struct {
	cmd     *exec.Cmd
	started time.Time
	stopped bool
}

var _ Device = (*ExecDevice)(nil)

// NewExecDevice creates an ffplay-backed device. urls may be nil when
// object URLs are never played.
func NewExecDevice(cfg ExecConfig, urls *ObjectURLs) *ExecDevice {
	bin := cfg.FFplay
	if bin == "" {
		bin = "ffplay"
	}
	return &ExecDevice{bin: bin, urls: urls}
}

func (d *ExecDevice) Load(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.killLocked()
	d.removeTmpLocked()
	d.pos = 0

	if IsObjectURL(url) {
		if d.urls == nil {
			return fmt.Errorf("object URL %s: no registry", url)
		}
		blob, ok := d.urls.Resolve(url)
		if !ok {
			return fmt.Errorf("object URL %s has been revoked", url)
		}
		f, err := os.CreateTemp("", "cclprep-*.audio")
		if err != nil {
			return fmt.Errorf("spool recording: %w", err)
		}
		if _, err := f.Write(blob.Data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return fmt.Errorf("spool recording: %w", err)
		}
		f.Close()
		d.tmpFile = f.Name()
		d.src = f.Name()
		return nil
	}

	d.src = url
	return nil
}

func (d *ExecDevice) Play() (<-chan error, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.src == "" {
		return nil, ErrNotLoaded
	}
	d.killLocked()

	args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
	if d.pos > 0 {
		args = append(args, "-ss", strconv.FormatFloat(d.pos.Seconds(), 'f', 3, 64))
	}
	args = append(args, d.src)

	cmd := exec.Command(d.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", d.bin, err)
	}

	p := &playProc{cmd: cmd, started: time.Now()}
	d.cur = p

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()

		d.mu.Lock()
		stopped := p.stopped
		if d.cur == p {
			d.cur = nil
			if !stopped {
				d.pos = 0
			}
		}
		d.mu.Unlock()

		switch {
		case stopped:
			done <- ErrStopped
		case err != nil:
			done <- fmt.Errorf("%s: %w: %s", d.bin, err, bytes.TrimSpace(stderr.Bytes()))
		default:
			done <- nil
		}
	}()
	return done, nil
}

func (d *ExecDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cur == nil {
		return nil
	}
	d.pos += time.Since(d.cur.started)
	d.killLocked()
	return nil
}

// Close stops playback and removes any spooled file.
func (d *ExecDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.killLocked()
	d.removeTmpLocked()
	return nil
}

func (d *ExecDevice) killLocked() {
	if d.cur == nil {
		return
	}
	d.cur.stopped = true
	if d.cur.cmd.Process != nil {
		_ = d.cur.cmd.Process.Kill()
	}
	d.cur = nil
}

func (d *ExecDevice) removeTmpLocked() {
	if d.tmpFile != "" {
		os.Remove(d.tmpFile)
		d.tmpFile = ""
	}
}

// ExecMicrophone captures audio by running ffmpeg and reading Ogg/Opus
// from its stdout.
type ExecMicrophone struct {
	cfg ExecConfig
}

var _ Microphone = (*ExecMicrophone)(nil)

// NewExecMicrophone creates an ffmpeg-backed microphone.
func NewExecMicrophone(cfg ExecConfig) *ExecMicrophone {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	return &ExecMicrophone{cfg: cfg}
}

// captureArgs builds the ffmpeg command line for c.
func (m *ExecMicrophone) captureArgs(c Constraints) []string {
	device := m.cfg.InputDevice
	if c.EchoCancellation && m.cfg.EchoCancelDevice != "" {
		device = m.cfg.EchoCancelDevice
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if m.cfg.InputFormat != "" {
		args = append(args, "-f", m.cfg.InputFormat)
	}
	args = append(args, "-i", device)
	if c.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(c.Channels))
	}
	if c.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.SampleRate))
	}
	if c.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	args = append(args, "-c:a", "libopus", "-f", "ogg", "pipe:1")
	return args
}

func (m *ExecMicrophone) Open(ctx context.Context, c Constraints) (Stream, error) {
	if _, err := exec.LookPath(m.cfg.FFmpeg); err != nil {
		return nil, fmt.Errorf("capture tool not found: %w", err)
	}
	cmd := exec.Command(m.cfg.FFmpeg, m.captureArgs(c)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	s := &execStream{cmd: cmd, stdout: stdout, exited: make(chan struct{})}
	cmd.Stderr = &s.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return s, nil
}

type execStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	mu     sync.Mutex
	closed bool

	waitOnce sync.Once
	exited   chan struct{}
	waitErr  error
}

// reap waits for ffmpeg to exit. Only called once stdout is drained or the
// process has been killed.
func (s *execStream) reap() {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
		close(s.exited)
	})
}

func (s *execStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, io.EOF) {
		s.reap()
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed && s.waitErr != nil {
			return n, fmt.Errorf("capture exited: %w: %s", s.waitErr, bytes.TrimSpace(s.stderr.Bytes()))
		}
	}
	return n, err
}

func (s *execStream) MIMEType() string { return "audio/ogg; codecs=opus" }

// Close stops ffmpeg, which releases the capture device.
func (s *execStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// SIGINT lets ffmpeg write the container trailer before exiting.
	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = s.cmd.Process.Kill()
	}
	select {
	case <-s.exited:
	case <-time.After(2 * time.Second):
		_ = s.cmd.Process.Kill()
		s.reap()
	}
	return nil
}
