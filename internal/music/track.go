package music

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/verte-zerg/tuibeat/internal/audio"
)

// FileTrack streams an MP3 or WAV file through a shared output. The file is
// decoded on play and released on rewind.
type FileTrack struct {
	path   string
	output func() (audio.Output, error)

	mu     sync.Mutex
	volume float64
	src    *source
	pb     audio.Playback
	gen    uint64
	// onEnd is the callback of the latest Play, including a resume.
	onEnd func()
}

// NewFileTrack returns a track for path.
func NewFileTrack(path string, output func() (audio.Output, error)) *FileTrack {
	return &FileTrack{path: path, output: output, volume: 1}
}

// NewFileTracks returns one track per path.
func NewFileTracks(paths []string, output func() (audio.Output, error)) []Track {
	tracks := make([]Track, 0, len(paths))
	for _, p := range paths {
		tracks = append(tracks, NewFileTrack(p, output))
	}
	return tracks
}

// Name returns the file name.
func (t *FileTrack) Name() string {
	return filepath.Base(t.path)
}

// Play implements Track.
func (t *FileTrack) Play(onEnd func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pb != nil {
		t.onEnd = onEnd
		t.pb.Play()
		return nil
	}
	out, err := t.output()
	if err != nil {
		return err
	}
	clip, err := audio.DecodeFile(t.path)
	if err != nil {
		return err
	}
	src := &source{clip: clip, r: audio.NewStreamReader(clip)}
	pb, err := out.Play(src, t.volume)
	if err != nil {
		src.detach()
		return fmt.Errorf("failed to play %s: %w", t.Name(), err)
	}
	t.gen++
	gen := t.gen
	t.src, t.pb = src, pb
	t.onEnd = onEnd
	go t.wait(gen, pb)
	return nil
}

func (t *FileTrack) wait(gen uint64, pb audio.Playback) {
	<-pb.Done()
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	onEnd := t.onEnd
	t.releaseLocked()
	t.mu.Unlock()
	if onEnd != nil {
		onEnd()
	}
}

// Pause implements Track.
func (t *FileTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pb != nil {
		t.pb.Pause()
	}
}

// Rewind implements Track.
func (t *FileTrack) Rewind() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.pb != nil {
		t.pb.Stop()
	}
	t.releaseLocked()
	return nil
}

// SetVolume implements Track.
func (t *FileTrack) SetVolume(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = v
	if t.pb != nil {
		t.pb.SetVolume(v)
	}
}

// Close implements Track.
func (t *FileTrack) Close() error {
	return t.Rewind()
}

func (t *FileTrack) releaseLocked() {
	if t.src != nil {
		t.src.detach()
	}
	t.src, t.pb = nil, nil
	t.onEnd = nil
}

// source guards the decoder so it can be released while the device may
// still be reading from it.
type source struct {
	mu       sync.Mutex
	clip     *audio.Clip
	r        io.Reader
	detached bool
}

func (s *source) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return 0, io.EOF
	}
	return s.r.Read(p)
}

func (s *source) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.detached = true
	if cerr := s.clip.Close(); cerr != nil {
		// Best-effort close.
		_ = cerr
	}
}

// LoadPlaylist lists the MP3 and WAV files in dir sorted by name. A missing
// directory yields an empty playlist.
func LoadPlaylist(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read music dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".mp3", ".wav":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
