package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms of 16 kHz mono S16LE

	wav, err := EncodeWAV(pcm, 16000, 1)
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, "data", string(wav[36:40]))

	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]), "PCM format")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]), "mono")
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]), "byte rate")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(wav[32:34]), "block align")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]), "bits per sample")
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
}

func TestEncodeWAVEmpty(t *testing.T) {
	_, err := EncodeWAV(nil, 16000, 1)
	assert.ErrorIs(t, err, ErrEmptyAudio)

	_, err = EncodeWAV([]byte{}, 16000, 1)
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestPCMDuration(t *testing.T) {
	// One second of 16 kHz mono is 32000 bytes.
	assert.Equal(t, int64(1000), PCMDuration(32000, 16000, 1))
	assert.Equal(t, int64(500), PCMDuration(16000, 16000, 1))
	assert.Equal(t, int64(0), PCMDuration(0, 16000, 1))
	assert.Equal(t, int64(0), PCMDuration(32000, 0, 1))
	assert.Equal(t, int64(1000), PCMDuration(64000, 16000, 2))
}
