// Package music plays the background playlist.
package music

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrNoTracks is returned by Play when the playlist is empty.
var ErrNoTracks = errors.New("playlist is empty")

// Track is one playlist entry. Implementations are reused for the life of
// the player.
type Track interface {
	// Play starts the track, or resumes it when paused. onEnd is called
	// once, without locks held, when the track finishes on its own.
	Play(onEnd func()) error
	Pause()
	// Rewind stops the track and moves it back to the beginning.
	Rewind() error
	SetVolume(v float64)
	Close() error
	Name() string
}

// Player loops through tracks in order.
type Player struct {
	logger *log.Logger

	mu      sync.Mutex
	tracks  []Track
	index   int
	volume  float64
	playing bool
	gen     uint64
}

// NewPlayer returns a Player over tracks.
func NewPlayer(tracks []Track, volume float64, logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{
		logger: logger.WithPrefix("music"),
		tracks: tracks,
		volume: volume,
	}
}

// Play starts or resumes the current track. It is a no-op while playing.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return ErrNoTracks
	}
	if p.playing {
		return nil
	}
	p.playing = true
	p.gen++
	if err := p.playCurrentLocked(); err != nil {
		p.playing = false
		return err
	}
	return nil
}

func (p *Player) playCurrentLocked() error {
	gen, idx := p.gen, p.index
	t := p.tracks[idx]
	t.SetVolume(p.volume)
	p.logger.Info("playing track", "index", idx+1, "of", len(p.tracks), "name", t.Name())
	return t.Play(func() { p.trackEnded(gen, idx) })
}

func (p *Player) trackEnded(gen uint64, idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen || !p.playing || idx != p.index {
		return
	}
	if err := p.tracks[idx].Rewind(); err != nil {
		p.logger.Warn("failed to rewind track", "name", p.tracks[idx].Name(), "err", err)
	}
	p.index = (p.index + 1) % len(p.tracks)
	if err := p.playCurrentLocked(); err != nil {
		p.logger.Error("failed to play track", "name", p.tracks[p.index].Name(), "err", err)
		p.playing = false
	}
}

// Pause pauses every track, keeping positions.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.playing = false
	for _, t := range p.tracks {
		t.Pause()
	}
}

// Stop pauses and rewinds every track and returns to the first one.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.playing = false
	for _, t := range p.tracks {
		t.Pause()
		if err := t.Rewind(); err != nil {
			p.logger.Warn("failed to rewind track", "name", t.Name(), "err", err)
		}
	}
	p.index = 0
}

// SetVolume applies v to every track.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	for _, t := range p.tracks {
		t.SetVolume(v)
	}
}

// Index returns the current track position.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Playing reports whether music is playing.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Len returns the playlist length.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tracks)
}

// Close stops playback and releases every track.
func (p *Player) Close() error {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, t := range p.tracks {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.tracks = nil
	return errors.Join(errs...)
}
