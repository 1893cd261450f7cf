// decode.go - static audio file decode into a Bus (spec §4.8 SampledAudioNode
// buffer loading).
//
// Grounded on the teacher's media_loader.go dispatch-by-extension idea
// (detectMediaType), generalized from MMIO-triggered SOUND PLAY loading
// to a plain Decode(data, ext) entry point; the actual PCM decode uses
// github.com/go-audio/wav, one of the decode libraries present across
// the retrieval pack (rayboyd-audio-engine, emer-auditory).

package audiograph

import (
	"bytes"
	"strings"

	"github.com/go-audio/wav"
)

// Decode parses a complete audio file held in memory into a Bus at its
// native sample rate and channel count. ext selects the codec by file
// extension (case-insensitive, with or without a leading dot); only
// "wav"/".wav" is supported today.
func Decode(data []byte, ext string) (*Bus, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "wav":
		return decodeWAV(data)
	default:
		return nil, newError(InvalidArgument, "Decode", "unsupported media type: "+ext)
	}
}

func decodeWAV(data []byte) (*Bus, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, newError(ResourceError, "decodeWAV", "not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, newError(ResourceError, "decodeWAV", err.Error())
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		numChannels = 1
	}
	frames := len(buf.Data) / numChannels
	bus := NewBus(numChannels, frames, float64(buf.Format.SampleRate))

	maxVal := float64(int(1) << (uint(buf.SourceBitDepth) - 1))
	if buf.SourceBitDepth == 0 {
		maxVal = float64(1 << 15)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < numChannels; c++ {
			sample := float32(float64(buf.Data[i*numChannels+c]) / maxVal)
			bus.Channel(c).Set(i, sample)
		}
	}
	return bus, nil
}
