// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"capture/internal/media"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV writes PCM16 little-endian data as a WAV stream.
func EncodeWAV(w io.WriteSeeker, pcm []byte, f media.AudioFormat) error {
	if f.Channels <= 0 || f.SampleRate <= 0 {
		return fmt.Errorf("invalid audio format %+v", f)
	}
	enc := wav.NewEncoder(w, int(f.SampleRate), 16, f.Channels, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: f.Channels,
			SampleRate:  int(f.SampleRate),
		},
		Data:           make([]int, len(pcm)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteWAV saves a recorded PCM artifact to path. The format is read from
// the artifact's mime type.
func WriteWAV(path string, pcm []byte, mimeType string) error {
	f, err := ParseMimeType(mimeType)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(file, pcm, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadWAV decodes a WAV file into PCM16 little-endian data.
func ReadWAV(path string) ([]byte, media.AudioFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, media.AudioFormat{}, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, media.AudioFormat{}, fmt.Errorf("%s: not a wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, media.AudioFormat{}, fmt.Errorf("decode %s: %w", path, err)
	}
	pcm := make([]byte, 0, 2*len(buf.Data))
	for _, v := range buf.Data {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(v)))
	}
	format := media.AudioFormat{
		SampleRate: float64(buf.Format.SampleRate),
		Channels:   buf.Format.NumChannels,
	}
	return pcm, format, nil
}
