package audio

import (
	"encoding/binary"
	"errors"
)

// wavHeaderSize is the size of a canonical PCM WAV header.
const wavHeaderSize = 44

// ErrEmptyAudio is returned when there is no PCM data to encode.
var ErrEmptyAudio = errors.New("no audio data to encode")

// EncodeWAV wraps raw S16LE PCM bytes in a canonical WAV container.
func EncodeWAV(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * channels * 2)
	blockAlign := uint16(channels * 2)

	buf := make([]byte, wavHeaderSize, wavHeaderSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	return append(buf, pcm...), nil
}

// PCMDuration returns the playback duration in milliseconds of raw S16LE PCM.
func PCMDuration(pcmLen, sampleRate, channels int) int64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	samples := pcmLen / (2 * channels)
	return int64(samples) * 1000 / int64(sampleRate)
}
