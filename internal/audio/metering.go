// Package audio provides audio processing utilities including level metering and silence detection.
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
	// ClipThreshold is slightly below max to catch near-clips.
	ClipThreshold int16 = 32760
)

// LevelData holds raw sample accumulator data for level calculation.
type LevelData struct {
	SumSquares  float64
	Peak        float64
	ClipCount   int
	SampleCount int
}

// ProcessSamples processes S16LE mono PCM data and accumulates level data.
func ProcessSamples(buf []byte, n int, data *LevelData) {
	for i := 0; i+1 < n; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(buf[i:]))
		v := float64(sample)

		data.SumSquares += v * v

		if abs := math.Abs(v); abs > data.Peak {
			data.Peak = abs
		}

		if sample >= ClipThreshold || sample <= -ClipThreshold {
			data.ClipCount++
		}

		data.SampleCount++
	}
}

// Levels contains calculated audio levels normalized to [0,1].
type Levels struct {
	RMS  float64
	Peak float64
	Clip int
}

// CalculateLevels computes normalized RMS and peak levels from accumulated
// sample data. Levels are RMS/32768 and peak/32768, so a full-scale sine
// reads roughly 0.71 RMS and 1.0 peak.
func CalculateLevels(data *LevelData) Levels {
	if data.SampleCount == 0 {
		return Levels{}
	}

	rms := math.Sqrt(data.SumSquares / float64(data.SampleCount))

	return Levels{
		RMS:  min(rms/MaxSampleValue, 1.0),
		Peak: min(data.Peak/MaxSampleValue, 1.0),
		Clip: data.ClipCount,
	}
}

// Reset resets accumulators for the next measurement period.
func (d *LevelData) Reset() {
	d.SampleCount = 0
	d.SumSquares = 0
	d.Peak = 0
	d.ClipCount = 0
}
