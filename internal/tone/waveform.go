package tone

import (
	"math"
	"time"

	"github.com/verte-zerg/tuibeat/internal/audio"
	"github.com/verte-zerg/tuibeat/internal/model"
)

const rampFloor = 0.01

// Bell partials relative to the C5 fundamental.
var (
	bellFundamental = 523.25
	bellHarmonics   = []float64{1, 2, 3, 4.2, 5.8}
	bellAmplitudes  = []float64{1, 0.6, 0.4, 0.25, 0.2}
)

// Render synthesizes kind at volume as mono samples at audio.SampleRate.
// Unknown kinds render as beep.
func Render(kind model.SoundType, volume float64) []float64 {
	switch kind {
	case model.SoundTick:
		return renderTick(volume)
	case model.SoundClap:
		return renderClap(volume, newNoise(uint32(time.Now().UnixNano())))
	case model.SoundBell:
		return renderBell(volume)
	default:
		return renderBeep(volume)
	}
}

// Duration returns how long the rendered sound for kind lasts.
func Duration(kind model.SoundType) float64 {
	switch kind {
	case model.SoundTick:
		return 0.05
	case model.SoundBell:
		return 0.5
	default:
		return 0.1
	}
}

func frames(seconds float64) int {
	return int(seconds * audio.SampleRate)
}

// ramp returns the exponential envelope from start to rampFloor over n
// samples, evaluated at sample i.
func ramp(start float64, i, n int) float64 {
	if start <= 0 {
		return 0
	}
	if start <= rampFloor {
		return start
	}
	return start * math.Pow(rampFloor/start, float64(i)/float64(n))
}

func renderBeep(volume float64) []float64 {
	n := frames(0.1)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / audio.SampleRate
		out[i] = math.Sin(2*math.Pi*880*t) * ramp(volume, i, n)
	}
	return out
}

func renderTick(volume float64) []float64 {
	n := frames(0.05)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / audio.SampleRate
		sq := 1.0
		if math.Sin(2*math.Pi*1200*t) < 0 {
			sq = -1
		}
		out[i] = sq * ramp(volume, i, n)
	}
	return out
}

func renderClap(volume float64, rnd *noise) []float64 {
	n := frames(0.1)
	out := make([]float64, n)
	f := newBandpass(1500, 1, audio.SampleRate)
	for i := range out {
		out[i] = f.process(rnd.next()) * ramp(volume, i, n)
	}
	return out
}

func renderBell(volume float64) []float64 {
	n := frames(0.5)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / audio.SampleRate
		var v float64
		for h, mult := range bellHarmonics {
			v += math.Sin(2*math.Pi*bellFundamental*mult*t) * ramp(bellAmplitudes[h]*0.3, i, n)
		}
		out[i] = v * ramp(volume, i, n)
	}
	return out
}

// noise is a small LCG so clap bursts do not depend on global rand state.
type noise struct {
	state uint32
}

func newNoise(seed uint32) *noise {
	return &noise{state: seed}
}

func (n *noise) next() float64 {
	n.state = n.state*1664525 + 1013904223
	return float64(n.state)/float64(math.MaxUint32)*2 - 1
}

// bandpass is an RBJ biquad with 0 dB peak gain.
type bandpass struct {
	b0, b2 float64
	a1, a2 float64
	x1, x2 float64
	y1, y2 float64
}

func newBandpass(freq, q, rate float64) *bandpass {
	w0 := 2 * math.Pi * freq / rate
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha
	return &bandpass{
		b0: alpha / a0,
		b2: -alpha / a0,
		a1: -2 * math.Cos(w0) / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *bandpass) process(x float64) float64 {
	y := f.b0*x + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}
