package audio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/swagat-panda/VocalWeaver/internal/config"
)

func testConfig() config.AudioConfig {
	return config.AudioConfig{SampleRate: 16000, Channels: 1, BitDepth: 16, DefaultFormat: "wav"}
}

func sineWAV(t *testing.T, rate, channels int, seconds float64) []byte {
	t.Helper()
	frames := int(float64(rate) * seconds)
	samples := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = v
		}
	}
	data, err := EncodeWAV(Bytes(samples), Format{SampleRate: rate, Channels: channels, BitDepth: 16})
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return data
}

func TestTranscodeWAVPassthrough(t *testing.T) {
	tr, err := NewTranscoder(testConfig())
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}
	pcm, err := tr.Transcode(context.Background(), "wav", sineWAV(t, 16000, 1, 1.0))
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	if len(pcm) != 16000*2 {
		t.Fatalf("expected 1s of canonical pcm (32000 bytes), got %d", len(pcm))
	}
}

func TestTranscodeResamplesAndDownmixes(t *testing.T) {
	tr, err := NewTranscoder(testConfig())
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}
	pcm, err := tr.Transcode(context.Background(), "wav", sineWAV(t, 48000, 2, 0.5))
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	want := 8000 * 2 // half a second at 16kHz mono, 2 bytes per sample
	if len(pcm) != want {
		t.Fatalf("expected %d bytes after downmix+resample, got %d", want, len(pcm))
	}
}

func TestTranscodeEmptyChunkIsDecodeError(t *testing.T) {
	tr, err := NewTranscoder(testConfig())
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}
	if _, err := tr.Transcode(context.Background(), "wav", nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestTranscodeGarbageIsDecodeError(t *testing.T) {
	tr, err := NewTranscoder(testConfig())
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}
	if _, err := tr.Transcode(context.Background(), "wav", []byte("not audio at all")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := tr.Transcode(context.Background(), "ogg", []byte("garbage ogg bytes")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for corrupt ogg, got %v", err)
	}
}

func TestTranscodeZeroSampleWAVIsDecodeError(t *testing.T) {
	// A structurally valid header with no data payload.
	header, err := EncodeWAV([]byte{0, 0}, Format{SampleRate: 16000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	empty := header[:44]
	empty[40] = 0 // data chunk size → 0
	tr, err := NewTranscoder(testConfig())
	if err != nil {
		t.Fatalf("new transcoder: %v", err)
	}
	if _, err := tr.Transcode(context.Background(), "wav", empty); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for zero samples, got %v", err)
	}
}

func TestResampleHalvesFrameCount(t *testing.T) {
	in := make([]int16, 32000)
	out := Resample(in, 32000, 16000)
	if len(out) != 16000 {
		t.Fatalf("expected 16000 samples, got %d", len(out))
	}
}

func TestDownmixAverages(t *testing.T) {
	out := Downmix([]int16{100, 300, -50, 50}, 2)
	if len(out) != 2 || out[0] != 200 || out[1] != 0 {
		t.Fatalf("unexpected downmix result: %v", out)
	}
}

func TestSamplesRejectsOddLength(t *testing.T) {
	if _, err := Samples([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for unaligned pcm")
	}
}
