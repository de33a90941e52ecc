package mixer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gen2brain/mpeg"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// bytesPerFrame is the size of one 16-bit stereo frame, the format every
// decoder below produces.
const bytesPerFrame = 4

// ErrUnsupportedFormat is returned for files no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Format identifies a decoder by file extension.
type Format string

const (
	FormatOgg  Format = ".ogg"
	FormatWav  Format = ".wav"
	FormatMP3  Format = ".mp3"
	FormatMPEG Format = ".mpg"
)

// FormatOf returns the decoder format for a file name.
func FormatOf(filename string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".ogg", ".oga":
		return FormatOgg, nil
	case ".wav":
		return FormatWav, nil
	case ".mp3":
		return FormatMP3, nil
	case ".mpg", ".mpeg":
		return FormatMPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Decode converts encoded audio to 16-bit little-endian stereo PCM at the
// given sample rate.
func Decode(filename string, data []byte, sampleRate int) ([]byte, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}

	var stream io.Reader
	switch format {
	case FormatOgg:
		if fixed, err := fixOggHeader(data); err == nil {
			data = fixed
		}
		stream, err = vorbis.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	case FormatWav:
		stream, err = wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	case FormatMP3:
		stream, err = mp3.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	case FormatMPEG:
		return decodeMPEG(data, sampleRate)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}

	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return pcm[:len(pcm)-len(pcm)%bytesPerFrame], nil
}

// decodeMPEG extracts the first audio stream of an MPEG-1 program stream,
// e.g. a cutscene whose soundtrack doubles as a clip.
func decodeMPEG(data []byte, sampleRate int) ([]byte, error) {
	mpg, err := mpeg.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open mpeg stream: %w", err)
	}
	if mpg.NumAudioStreams() == 0 {
		return nil, fmt.Errorf("%w: mpeg stream has no audio", ErrUnsupportedFormat)
	}
	mpg.SetVideoEnabled(false)
	mpg.SetAudioFormat(mpeg.AudioS16)

	var pcm bytes.Buffer
	for {
		samples := mpg.Audio().Decode()
		if samples == nil {
			break
		}
		pcm.Write(samples.Bytes())
	}
	if pcm.Len() == 0 {
		return nil, fmt.Errorf("mpeg stream decoded to no samples")
	}

	from := mpg.Samplerate()
	if from == sampleRate {
		return pcm.Bytes(), nil
	}
	return resample(pcm.Bytes(), from, sampleRate)
}

// resample converts PCM between sample rates.
func resample(pcm []byte, from, to int) ([]byte, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}
	out, err := io.ReadAll(audio.Resample(bytes.NewReader(pcm), int64(len(pcm)), from, to))
	if err != nil {
		return nil, err
	}
	return out[:len(out)-len(out)%bytesPerFrame], nil
}

// fixOggHeader repairs packed OGG files whose capture pattern was padded
// with garbage bytes.
func fixOggHeader(data []byte) ([]byte, error) {
	const (
		sizeOfValidOggHeader = 16
		oggS                 = "OggS"
	)

	if len(data) < sizeOfValidOggHeader {
		return nil, fmt.Errorf("not enough data, cannot fix Ogg header")
	}

	validHeader := []byte{
		oggS[0], oggS[1], oggS[2], oggS[3],
		0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	if bytes.HasPrefix(data, validHeader) {
		return data, nil
	}

	indexToCut, numberOfZeros := 0, 0
	for i := 0; i < sizeOfValidOggHeader; i++ {
		if strings.IndexByte(oggS, data[i]) >= 0 {
			continue
		}

		if data[i] == 0x00 {
			numberOfZeros++
			if numberOfZeros > 9 {
				return nil, fmt.Errorf("too many zeros in the Ogg header, cannot fix")
			}
			continue
		}

		if i > 2 && data[i-1] != 0x00 && data[i-2] == 0x00 {
			indexToCut = i - 1
			break
		}
	}

	fixed := make([]byte, 0, len(validHeader)+len(data)-indexToCut)
	fixed = append(fixed, validHeader...)
	return append(fixed, data[indexToCut:]...), nil
}
