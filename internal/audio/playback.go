package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
)

// DefaultSpeechSampleRate is the rate of raw PCM replies.
const DefaultSpeechSampleRate = 24000

// ErrUnsupportedFormat is returned for payloads Pulse cannot play directly.
var ErrUnsupportedFormat = errors.New("unsupported playback format")

// Speaker plays synthesized replies through Pulse.
type Speaker struct{}

// Play decodes data according to format ("pcm" or "wav") and blocks until
// playback drains or ctx is cancelled.
func (Speaker) Play(ctx context.Context, data []byte, format string, sampleRate int) error {
	var (
		pcm      []byte
		channels = 1
	)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pcm":
		pcm = data
		if sampleRate <= 0 {
			sampleRate = DefaultSpeechSampleRate
		}
	case "wav":
		decoded, f, err := decodeWAV(data)
		if err != nil {
			return err
		}
		pcm, sampleRate, channels = decoded, f.SampleRate, f.Channels
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return PlaySamples(ctx, int16Samples(pcm), sampleRate, channels, "askit reply")
}

// PlaySamples plays interleaved signed 16-bit samples.
func PlaySamples(ctx context.Context, samples []int16, sampleRate int, channels int, mediaName string) error {
	if len(samples) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	layout := pulse.PlaybackMono
	if channels == 2 {
		layout = pulse.PlaybackStereo
	}

	stream, err := client.NewPlayback(
		reader,
		layout,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}

func int16Samples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}
	return samples
}
