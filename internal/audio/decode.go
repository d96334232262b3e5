package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

const resampleQuality = 4

// Clip is a decoded audio file resampled to SampleRate.
type Clip struct {
	raw    beep.StreamSeekCloser
	stream beep.Streamer
}

// DecodeBytes decodes WAV or MP3 data, detected from its header.
func DecodeBytes(data []byte) (*Clip, error) {
	return decode(byteSource{bytes.NewReader(data)}, isWAV(data))
}

type byteSource struct {
	*bytes.Reader
}

func (byteSource) Close() error { return nil }

// DecodeFile decodes a WAV or MP3 file.
func DecodeFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	head := make([]byte, 12)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}
	clip, err := decode(f, isWAV(head[:n]))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return clip, nil
}

func decode(rc io.ReadCloser, wavData bool) (*Clip, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	if wavData {
		s, format, err = wav.Decode(rc)
	} else {
		s, format, err = mp3.Decode(rc)
	}
	if err != nil {
		return nil, err
	}
	c := &Clip{raw: s, stream: s}
	if format.SampleRate != beep.SampleRate(SampleRate) {
		c.stream = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(SampleRate), s)
	}
	return c, nil
}

// Stream implements beep.Streamer.
func (c *Clip) Stream(samples [][2]float64) (int, bool) {
	return c.stream.Stream(samples)
}

// Err implements beep.Streamer.
func (c *Clip) Err() error {
	return c.stream.Err()
}

// Close releases the underlying reader.
func (c *Clip) Close() error {
	return c.raw.Close()
}

func isWAV(head []byte) bool {
	return len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE"
}
