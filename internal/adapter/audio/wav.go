package audio

import (
	"bytes"
	"encoding/binary"
)

const (
	pcmBitsPerSample = 16
	wavHeaderSize    = 44
)

// EncodeWAV wraps little-endian signed 16-bit PCM in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	blockAlign := channels * pcmBitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(pcmBitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

// PCMDuration returns the length of 16-bit PCM in milliseconds.
func PCMDuration(n, sampleRate, channels int) int64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return int64(n) * 1000 / int64(sampleRate*channels*pcmBitsPerSample/8)
}
