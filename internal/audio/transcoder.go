package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"

	"github.com/swagat-panda/VocalWeaver/internal/config"
)

// ErrDecode marks a chunk whose container is unrecognized, corrupt, or
// decodes to zero samples. Request-scoped, never session-fatal.
var ErrDecode = errors.New("decode audio")

const opusDecodeRate = 48000

// Transcoder converts one compressed audio chunk into canonical PCM.
// Chunks are independent encoded clips; no decoder state survives a call.
type Transcoder interface {
	Transcode(ctx context.Context, format string, data []byte) ([]byte, error)
}

type transcoder struct {
	canonical Format
	ffmpeg    []string
}

// NewTranscoder builds the container transcoder. WAV is decoded with
// go-audio, Ogg/Opus with pion, and anything else is handed to the
// configured ffmpeg command.
func NewTranscoder(cfg config.AudioConfig) (Transcoder, error) {
	canonical := Format{SampleRate: cfg.SampleRate, Channels: cfg.Channels, BitDepth: cfg.BitDepth}
	command := cfg.FFmpegCommand
	if command == "" {
		command = "ffmpeg"
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse ffmpeg command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("ffmpeg command empty")
	}
	return &transcoder{canonical: canonical, ffmpeg: args}, nil
}

func (t *transcoder) Transcode(ctx context.Context, format string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty chunk", ErrDecode)
	}

	var (
		samples []int16
		source  Format
		err     error
	)
	switch strings.ToLower(format) {
	case "wav", "wave":
		samples, source, err = decodeWAV(data)
	case "ogg", "opus":
		samples, source, err = decodeOggOpus(data)
	default:
		samples, source, err = t.decodeExec(ctx, data)
	}
	if err != nil {
		return nil, err
	}

	if source.Channels != t.canonical.Channels {
		if t.canonical.Channels != 1 {
			return nil, fmt.Errorf("%w: cannot convert %d channels to %d", ErrDecode, source.Channels, t.canonical.Channels)
		}
		samples = Downmix(samples, source.Channels)
	}
	if source.SampleRate != t.canonical.SampleRate {
		samples = Resample(samples, source.SampleRate, t.canonical.SampleRate)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: decoded to zero samples", ErrDecode)
	}
	return Bytes(samples), nil
}

func decodeWAV(data []byte) ([]int16, Format, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, Format{}, fmt.Errorf("%w: not a valid wav file", ErrDecode)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if decoder.BitDepth != 16 {
		return nil, Format{}, fmt.Errorf("%w: unsupported wav bit depth %d", ErrDecode, decoder.BitDepth)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, Format{}, fmt.Errorf("%w: decoded to zero samples", ErrDecode)
	}
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return samples, Format{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   16,
	}, nil
}

func decodeOggOpus(data []byte) ([]int16, Format, error) {
	ogg, _, err := oggreader.NewWith(bytes.NewReader(data))
	if err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	decoder := opus.NewDecoder()
	var pcm []byte
	frame := make([]byte, 1920) // one 20ms mono frame at 48kHz
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(segments) > 0 && bytes.HasPrefix(segments[0], []byte("OpusTags")) {
			continue
		}
		for _, segment := range segments {
			if _, _, err := decoder.Decode(segment, frame); err != nil {
				return nil, Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
			}
			pcm = append(pcm, frame...)
		}
	}
	if len(pcm) == 0 {
		return nil, Format{}, fmt.Errorf("%w: decoded to zero samples", ErrDecode)
	}
	samples, err := Samples(pcm)
	if err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return samples, Format{SampleRate: opusDecodeRate, Channels: 1, BitDepth: 16}, nil
}

// decodeExec shells out to ffmpeg, which already emits the canonical
// rate and channel count, so no further conversion happens downstream.
func (t *transcoder) decodeExec(ctx context.Context, data []byte) ([]int16, Format, error) {
	base := t.ffmpeg[0]
	args := append([]string{}, t.ffmpeg[1:]...)
	args = append(args,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(t.canonical.SampleRate),
		"-ac", strconv.Itoa(t.canonical.Channels),
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, Format{}, fmt.Errorf("%w: ffmpeg: %v: %s", ErrDecode, err, strings.TrimSpace(stderr.String()))
	}
	samples, err := Samples(stdout.Bytes())
	if err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(samples) == 0 {
		return nil, Format{}, fmt.Errorf("%w: decoded to zero samples", ErrDecode)
	}
	return samples, t.canonical, nil
}
