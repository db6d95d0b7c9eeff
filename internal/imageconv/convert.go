// Package imageconv converts downloaded post images between the formats the
// social platforms accept.
package imageconv

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	_ "image/gif"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Format is an output image format.
type Format string

const (
	PNG  Format = "png"
	JPG  Format = "jpg"
	WEBP Format = "webp"
)

const (
	jpegQuality = 90
	webpQuality = 85
)

var ErrUnknownFormat = errors.New("unknown image format")

// ParseFormat accepts png, jpg, jpeg and webp in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPG, nil
	case "webp":
		return WEBP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string { return string(f) }

// Detect sniffs the format of data. It returns "" for anything it does not
// recognise.
func Detect(data []byte) Format {
	switch {
	case isPNG(data):
		return PNG
	case isJPEG(data):
		return JPG
	case isWEBP(data):
		return WEBP
	}
	return ""
}

// Convert re-encodes data as f. Data already in f is returned unchanged.
func Convert(data []byte, f Format) ([]byte, error) {
	if Detect(data) == f {
		return data, nil
	}
	switch f {
	case PNG:
		return ToPNG(data)
	case JPG:
		return ToJPG(data)
	case WEBP:
		return ToWEBP(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func ToJPG(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return out.Bytes(), nil
}

func ToWEBP(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetPhoto, webpQuality)
	if err != nil {
		return nil, fmt.Errorf("webp encoder options: %w", err)
	}

	var out bytes.Buffer
	if err := webp.Encode(&out, img, opts); err != nil {
		return nil, fmt.Errorf("encoding webp: %w", err)
	}
	return out.Bytes(), nil
}

func ToPNG(data []byte) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return out.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	if isWEBP(data) {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("decoding webp: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func isWEBP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

func isPNG(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	return bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
}

func isJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}
