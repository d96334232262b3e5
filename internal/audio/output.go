// Package audio wraps the sound device and PCM helpers shared by the tone
// synthesizer and the background track player.
package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

const (
	// SampleRate is the output rate every source is rendered at.
	SampleRate = 44100
	// ChannelCount is the number of interleaved output channels.
	ChannelCount = 2
	// FrameSize is the byte size of one float32 stereo frame.
	FrameSize = 4 * ChannelCount
)

// ErrClosed is returned when playing through a closed output.
var ErrClosed = errors.New("audio output closed")

// Playback is a sound handed to an Output.
type Playback interface {
	// Done is closed when the sound has finished or was stopped.
	Done() <-chan struct{}
	SetVolume(v float64)
	Pause()
	Play()
	Stop()
}

// Output plays PCM streams. Readers must produce float32 little-endian
// stereo frames at SampleRate.
type Output interface {
	Play(r io.Reader, volume float64) (Playback, error)
	Resume() error
	Close() error
}

var (
	deviceOnce sync.Once
	deviceCtx  *oto.Context
	deviceErr  error
)

// oto allows a single context per process, so every Device shares it.
func sharedContext() (*oto.Context, error) {
	deviceOnce.Do(func() {
		ctx, ready, err := oto.NewContext(SampleRate, ChannelCount, oto.FormatFloat32LE)
		if err != nil {
			deviceErr = fmt.Errorf("failed to open audio device: %w", err)
			return
		}
		<-ready
		deviceCtx = ctx
	})
	return deviceCtx, deviceErr
}

// Device is an Output backed by the system sound device.
type Device struct {
	ctx *oto.Context

	mu      sync.Mutex
	closed  bool
	playing map[*devicePlayback]struct{}
}

// Open returns a Device. Reopening after Close resumes the shared context.
func Open() (*Device, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.Resume(); err != nil {
		return nil, fmt.Errorf("failed to resume audio device: %w", err)
	}
	return &Device{ctx: ctx, playing: make(map[*devicePlayback]struct{})}, nil
}

// Play starts r at volume and returns immediately.
func (d *Device) Play(r io.Reader, volume float64) (Playback, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	p := d.ctx.NewPlayer(r)
	p.SetVolume(clampVolume(volume))
	pb := &devicePlayback{
		device: d,
		player: p,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	d.playing[pb] = struct{}{}
	p.Play()
	go pb.watch()
	return pb, nil
}

// Resume wakes the device after a suspension.
func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.ctx.Resume(); err != nil {
		return fmt.Errorf("failed to resume audio device: %w", err)
	}
	return nil
}

// Close stops every sound and suspends the device.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	active := make([]*devicePlayback, 0, len(d.playing))
	for pb := range d.playing {
		active = append(active, pb)
	}
	d.mu.Unlock()

	for _, pb := range active {
		pb.Stop()
	}
	if err := d.ctx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend audio device: %w", err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) forget(pb *devicePlayback) {
	d.mu.Lock()
	delete(d.playing, pb)
	d.mu.Unlock()
}

type devicePlayback struct {
	device   *Device
	player   oto.Player
	paused   atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (p *devicePlayback) watch() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	defer func() {
		if cerr := p.player.Close(); cerr != nil {
			// Best-effort player close.
			_ = cerr
		}
		p.device.forget(p)
		close(p.done)
	}()
	for {
		select {
		case <-p.stop:
			p.player.Pause()
			return
		case <-ticker.C:
		}
		if p.paused.Load() {
			continue
		}
		if !p.player.IsPlaying() {
			return
		}
	}
}

func (p *devicePlayback) Done() <-chan struct{} { return p.done }

func (p *devicePlayback) SetVolume(v float64) { p.player.SetVolume(clampVolume(v)) }

func (p *devicePlayback) Pause() {
	p.paused.Store(true)
	p.player.Pause()
}

func (p *devicePlayback) Play() {
	p.paused.Store(false)
	p.player.Play()
}

func (p *devicePlayback) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
