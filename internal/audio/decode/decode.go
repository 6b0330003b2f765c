// Package decode turns WAV and MP3 files into interleaved 16-bit PCM.
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupported is returned for files that are neither WAV nor MP3.
var ErrUnsupported = errors.New("unsupported audio file")

type source interface {
	read(dst []int16) (int, error)
}

// Stream is a decoded audio file.
type Stream struct {
	SampleRate int
	Channels   int

	src  source
	file *os.File
}

// Open decodes path according to its extension.
func Open(path string) (*Stream, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".wav" && ext != ".mp3" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var s *Stream
	if ext == ".wav" {
		s, err = openWAV(f)
	} else {
		s, err = openMP3(f)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	s.file = f
	return s, nil
}

// Read fills dst with interleaved samples and returns how many were written.
// It returns io.EOF once the stream is exhausted.
func (s *Stream) Read(dst []int16) (int, error) {
	return s.src.read(dst)
}

// Close releases the underlying file.
func (s *Stream) Close() error {
	return s.file.Close()
}

type wavSource struct {
	dec      *wav.Decoder
	buf      *audio.IntBuffer
	bitDepth int
}

func openWAV(f *os.File) (*Stream, error) {
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV format %d is not PCM", ErrUnsupported, d.WavAudioFormat)
	}

	return &Stream{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		src: &wavSource{
			dec:      d,
			buf:      &audio.IntBuffer{Format: d.Format()},
			bitDepth: int(d.BitDepth),
		},
	}, nil
}

func (w *wavSource) read(dst []int16) (int, error) {
	if cap(w.buf.Data) < len(dst) {
		w.buf.Data = make([]int, len(dst))
	}
	w.buf.Data = w.buf.Data[:len(dst)]

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		dst[i] = to16(w.buf.Data[i], w.bitDepth)
	}
	return n, nil
}

func to16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		// 8-bit WAV samples are unsigned.
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}

type mp3Source struct {
	dec *mp3.Decoder
	raw []byte
}

// go-mp3 always produces 16-bit little-endian stereo.
func openMP3(f *os.File) (*Stream, error) {
	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &Stream{
		SampleRate: d.SampleRate(),
		Channels:   2,
		src:        &mp3Source{dec: d},
	}, nil
}

func (m *mp3Source) read(dst []int16) (int, error) {
	if cap(m.raw) < len(dst)*2 {
		m.raw = make([]byte, len(dst)*2)
	}
	raw := m.raw[:len(dst)*2]

	n, err := io.ReadFull(m.dec, raw)
	if n < 2 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return 0, err
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return samples, nil
}
