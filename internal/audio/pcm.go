package audio

import (
	"io"
	"math"

	"github.com/gopxl/beep/v2"
)

// EncodeMono renders mono samples in [-1,1] as float32 LE stereo frames.
func EncodeMono(samples []float64) []byte {
	buf := make([]byte, len(samples)*FrameSize)
	for i, s := range samples {
		putStereo(buf, i, s, s)
	}
	return buf
}

func putStereo(buf []byte, i int, left, right float64) {
	l := math.Float32bits(float32(left))
	r := math.Float32bits(float32(right))
	o := i * FrameSize
	buf[o] = byte(l)
	buf[o+1] = byte(l >> 8)
	buf[o+2] = byte(l >> 16)
	buf[o+3] = byte(l >> 24)
	buf[o+4] = byte(r)
	buf[o+5] = byte(r >> 8)
	buf[o+6] = byte(r >> 16)
	buf[o+7] = byte(r >> 24)
}

// StreamReader adapts a beep.Streamer to the byte stream an Output plays.
type StreamReader struct {
	s       beep.Streamer
	frames  [][2]float64
	pending []byte
	err     error
}

// NewStreamReader wraps s.
func NewStreamReader(s beep.Streamer) *StreamReader {
	return &StreamReader{s: s}
}

// Read copies rendered frames into p. It returns io.EOF once the streamer
// is drained, or the streamer's error if it failed.
func (r *StreamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill(len(p)/FrameSize + 1)
		if len(r.pending) == 0 {
			return 0, r.err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *StreamReader) fill(frames int) {
	if cap(r.frames) < frames {
		r.frames = make([][2]float64, frames)
	}
	buf := r.frames[:frames]
	n, ok := r.s.Stream(buf)
	out := make([]byte, n*FrameSize)
	for i := 0; i < n; i++ {
		putStereo(out, i, buf[i][0], buf[i][1])
	}
	r.pending = out
	if !ok {
		r.err = io.EOF
		if err := r.s.Err(); err != nil {
			r.err = err
		}
	}
}
