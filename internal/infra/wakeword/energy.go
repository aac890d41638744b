package wakeword

import "voicepi/internal/domain"

// EnergyScorer maps frame energy onto a pseudo wake-word score. It is a
// bring-up aid for machines without a model sidecar: any sufficiently loud
// audio "wakes" the device. Not a real keyword detector.
type EnergyScorer struct {
	// referenceRMS is the level that maps to a score of 1.0.
	referenceRMS float64
}

func NewEnergyScorer(referenceRMS float64) *EnergyScorer {
	if referenceRMS <= 0 {
		referenceRMS = 0.1
	}
	return &EnergyScorer{referenceRMS: referenceRMS}
}

func (s *EnergyScorer) Score(f domain.Frame) (float64, error) {
	score := f.RMS() / s.referenceRMS
	if score > 1 {
		score = 1
	}
	return score, nil
}
