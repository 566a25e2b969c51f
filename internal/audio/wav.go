package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/rbright/askit/internal/recorder"
)

const wavHeaderSize = 44

// WAVEncoder packages signed 16-bit PCM as a RIFF/WAVE file.
type WAVEncoder struct{}

func (WAVEncoder) MIMEType() string  { return "audio/wav" }
func (WAVEncoder) Extension() string { return "wav" }

func (WAVEncoder) Encode(pcm []byte, format recorder.Format) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))
	if err := writePCM16WAV(&buf, pcm, format.SampleRate, format.Channels); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePCM16WAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// decodeWAV returns the PCM payload and format of a canonical 16-bit PCM WAV file.
func decodeWAV(data []byte) ([]byte, recorder.Format, error) {
	if len(data) < wavHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, recorder.Format{}, errors.New("not a RIFF/WAVE payload")
	}
	if binary.LittleEndian.Uint16(data[20:22]) != 1 || binary.LittleEndian.Uint16(data[34:36]) != 16 {
		return nil, recorder.Format{}, errors.New("only 16-bit PCM WAV is supported")
	}
	format := recorder.Format{
		SampleRate: int(binary.LittleEndian.Uint32(data[24:28])),
		Channels:   int(binary.LittleEndian.Uint16(data[22:24])),
	}
	pcm := data[wavHeaderSize:]
	if size := int(binary.LittleEndian.Uint32(data[40:44])); size < len(pcm) {
		pcm = pcm[:size]
	}
	return pcm, format, nil
}
