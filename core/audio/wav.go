package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const wavHeaderSize = 44

var ErrNotWAV = errors.New("payload is not a RIFF/WAVE file")

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV wraps mono linear16 PCM in a canonical 44 byte WAV header.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	const numChannels, bitsPerSample = 1, 16
	dataSize := uint32(len(pcm))
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * numChannels * bitsPerSample / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// IsWAV reports whether data starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// DecodeWAV extracts mono linear16 PCM from a WAV payload. Stereo input is
// downmixed. Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(data []byte) ([]byte, EncodingInfo, error) {
	if !IsWAV(data) {
		return nil, EncodingInfo{}, ErrNotWAV
	}

	var (
		channels, bitsPerSample, audioFormat uint16
		sampleRate                           uint32
		haveFormat                           bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkSize < 0 || body+chunkSize > len(data) {
			// Streamed WAVs often carry a bogus data size; take what is there.
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, EncodingInfo{}, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, EncodingInfo{}, fmt.Errorf("data chunk before fmt chunk")
			}
			if audioFormat != 1 || bitsPerSample != 16 {
				return nil, EncodingInfo{}, fmt.Errorf("unsupported WAV encoding: format %d, %d bits", audioFormat, bitsPerSample)
			}
			pcm := data[body : body+chunkSize]
			if channels == 2 {
				pcm = SamplesToBytes(StereoToMono(BytesToSamples(pcm)))
			} else if channels != 1 {
				return nil, EncodingInfo{}, fmt.Errorf("unsupported channel count: %d", channels)
			}
			return pcm, EncodingInfo{SampleRate: int(sampleRate), Format: EncodingLinear16}, nil
		}

		offset = body + chunkSize + chunkSize%2
	}

	return nil, EncodingInfo{}, fmt.Errorf("WAV payload has no data chunk")
}
