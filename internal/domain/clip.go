package domain

import "time"

// Clip is a finished command recording: pre-roll plus everything captured
// until the endpoint decision. It is handed to the transcription pipeline
// by value and never reused by the recorder.
type Clip struct {
	Frames     []Frame
	SampleRate int
}

func (c Clip) Empty() bool {
	return len(c.Frames) == 0
}

// Samples flattens the clip into a single contiguous sample slice.
func (c Clip) Samples() []float32 {
	n := 0
	for _, f := range c.Frames {
		n += len(f.Samples)
	}
	out := make([]float32, 0, n)
	for _, f := range c.Frames {
		out = append(out, f.Samples...)
	}
	return out
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	n := 0
	for _, f := range c.Frames {
		n += len(f.Samples)
	}
	return time.Duration(float64(n) / float64(c.SampleRate) * float64(time.Second))
}
