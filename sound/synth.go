package sound

import (
	"fmt"
	"math"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
)

// Edge fade applied to synthesised tones to avoid clicks.
const toneRamp = 0.005

// tone streams a sine at freq Hz for length seconds.
func tone(sr beep.SampleRate, freq, length float64) beep.Streamer {
	total := int(math.Round(length * float64(sr)))
	ramp := int(toneRamp * float64(sr))
	if ramp*2 > total {
		ramp = total / 2
	}
	step := 2 * math.Pi * freq / float64(sr)
	pos := 0

	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for i := range samples {
			if pos >= total {
				return i, i > 0
			}
			gain := 1.0
			if ramp > 0 {
				if pos < ramp {
					gain = float64(pos) / float64(ramp)
				} else if rem := total - pos; rem < ramp {
					gain = float64(rem) / float64(ramp)
				}
			}
			v := math.Sin(step*float64(pos)) * gain
			samples[i][0] = v
			samples[i][1] = v
			pos++
		}
		return len(samples), true
	})
}

// decodeClip loads a WAV file into memory, resampled to sr.
func decodeClip(path string, sr beep.SampleRate) (*beep.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer s.Close()

	buf := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2})
	if format.SampleRate == sr {
		buf.Append(s)
	} else {
		buf.Append(beep.Resample(4, format.SampleRate, sr, s))
	}
	return buf, nil
}

// volume scales s by a linear gain.
func volume(s beep.Streamer, linear float64) *effects.Volume {
	v := &effects.Volume{Streamer: s, Base: 10}
	if linear <= 0 {
		v.Silent = true
		return v
	}
	v.Volume = math.Log10(linear)
	return v
}
