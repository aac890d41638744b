package domain

import (
	"math"
	"time"
)

// Frame is one fixed-size block of mono audio as handed off by the capture
// goroutine. Frames are immutable after construction; ownership moves from
// the capture goroutine through the queue to the processing loop.
type Frame struct {
	Samples  []float32
	Seq      uint64
	Captured time.Time
}

// RMS returns the root-mean-square level of the frame in [0, 1].
func (f Frame) RMS() float64 {
	if len(f.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range f.Samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum/float64(len(f.Samples)) + 1e-12)
}

// Duration returns the audio time the frame spans at the given sample rate.
func (f Frame) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(sampleRate) * float64(time.Second))
}
