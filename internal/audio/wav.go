package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// EncodeWAV renders float32 mono samples in [-1, 1] as a 16-bit PCM WAV
// file, the format the transcription API expects.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, int16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, floatToInt16(s))
	}

	return buf.Bytes()
}

func floatToInt16(s float32) int16 {
	clipped := math.Max(-1, math.Min(1, float64(s)))
	return int16(clipped * 32767)
}
