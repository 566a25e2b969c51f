package indicator

import (
	"context"
	"math"
	"time"

	"github.com/rbright/askit/internal/audio"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

const (
	cueSampleRate = 16000
	cueGap        = 22 * time.Millisecond
	cueTimeout    = 4 * time.Second
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cueTones = map[cueKind][]toneSpec{
	cueStart: {
		{frequencyHz: 660, duration: 60 * time.Millisecond, volume: 0.18},
		{frequencyHz: 990, duration: 80 * time.Millisecond, volume: 0.18},
	},
	cueStop: {
		{frequencyHz: 587, duration: 110 * time.Millisecond, volume: 0.18},
	},
	cueComplete: {
		{frequencyHz: 784, duration: 60 * time.Millisecond, volume: 0.16},
		{frequencyHz: 1047, duration: 60 * time.Millisecond, volume: 0.16},
		{frequencyHz: 1319, duration: 90 * time.Millisecond, volume: 0.16},
	},
	cueCancel: {
		{frequencyHz: 494, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 370, duration: 95 * time.Millisecond, volume: 0.18},
	},
}

var cuePCM = func() map[cueKind][]int16 {
	out := make(map[cueKind][]int16, len(cueTones))
	for kind, tones := range cueTones {
		out[kind] = synthesizeCue(tones)
	}
	return out
}()

func emitCue(kind cueKind) error {
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
	defer cancel()
	return audio.PlaySamples(ctx, samples, cueSampleRate, 1, "askit indicator cue")
}

func cueSamples(kind cueKind) []int16 {
	return cuePCM[kind]
}

// synthesizeCue renders tones back to back with short silent gaps.
func synthesizeCue(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gap := samplesForDuration(cueGap)

	var pcm []int16
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 {
			pcm = append(pcm, make([]int16, gap)...)
		}
	}
	return pcm
}

// synthesizeTone renders one sine tone with a linear attack/release of at most 5ms.
func synthesizeTone(tone toneSpec) []int16 {
	n := samplesForDuration(tone.duration)
	if n <= 0 || tone.frequencyHz <= 0 || tone.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)

	pcm := make([]int16, n)
	for i := range n {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		t := float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(2*math.Pi*tone.frequencyHz*t) * tone.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
