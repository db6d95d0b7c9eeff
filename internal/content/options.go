package content

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTone       = errors.New("invalid tone")
	ErrInvalidImageStyle = errors.New("invalid image style")
	ErrInvalidVariations = errors.New("variations must be between 1 and 3")
)

// MaxVariations is the most variations the backend will produce per platform.
const MaxVariations = 3

// Tone is a style parameter forwarded to the backend.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	ToneFun          Tone = "fun"
)

// Tones returns the supported tones in display order.
func Tones() []Tone {
	return []Tone{ToneProfessional, ToneCasual, ToneFun}
}

func (t Tone) Valid() bool {
	switch t {
	case ToneProfessional, ToneCasual, ToneFun:
		return true
	}
	return false
}

func (t Tone) DisplayName() string {
	switch t {
	case ToneProfessional:
		return "Professional"
	case ToneCasual:
		return "Casual"
	case ToneFun:
		return "Fun"
	}
	return string(t)
}

// ParseTone validates s as a Tone.
func ParseTone(s string) (Tone, error) {
	t := Tone(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTone, s)
	}
	return t, nil
}

// ImageStyle selects the look of generated images.
type ImageStyle string

const (
	StylePhoto        ImageStyle = "photo"
	StyleIllustration ImageStyle = "illustration"
	StyleInfographic  ImageStyle = "infographic"
	StyleMinimalist   ImageStyle = "minimalist"
	Style3D           ImageStyle = "3d"
)

var styleDescriptions = map[ImageStyle]string{
	StylePhoto:        "Realistic photography",
	StyleIllustration: "Hand-drawn or digital illustration",
	StyleInfographic:  "Data-driven visual with text and icons",
	StyleMinimalist:   "Clean shapes and lots of whitespace",
	Style3D:           "Rendered 3D scene",
}

// ImageStyles returns the supported styles in display order.
func ImageStyles() []ImageStyle {
	return []ImageStyle{StylePhoto, StyleIllustration, StyleInfographic, StyleMinimalist, Style3D}
}

func (s ImageStyle) Valid() bool {
	_, ok := styleDescriptions[s]
	return ok
}

func (s ImageStyle) Description() string {
	return styleDescriptions[s]
}

// ParseImageStyle validates s as an ImageStyle.
func ParseImageStyle(s string) (ImageStyle, error) {
	st := ImageStyle(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageStyle, s)
	}
	return st, nil
}
