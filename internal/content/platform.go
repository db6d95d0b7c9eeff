package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlatform is returned when a platform name is not recognised.
var ErrUnknownPlatform = errors.New("unknown platform")

// Platform identifies a target social network.
type Platform string

const (
	Instagram Platform = "instagram"
	LinkedIn  Platform = "linkedin"
	Twitter   Platform = "twitter"
	TikTok    Platform = "tiktok"
)

// Info holds presentation metadata for a platform. Shells decide how to
// render Icon and Color; the values are SF Symbol names and color names.
type Info struct {
	DisplayName string
	Icon        string
	Color       string
	CharLimit   int
}

var platformOrder = []Platform{Instagram, LinkedIn, Twitter, TikTok}

var platformInfo = map[Platform]Info{
	Instagram: {DisplayName: "Instagram", Icon: "camera.fill", Color: "pink", CharLimit: 2200},
	LinkedIn:  {DisplayName: "LinkedIn", Icon: "briefcase.fill", Color: "blue", CharLimit: 3000},
	Twitter:   {DisplayName: "Twitter/X", Icon: "bubble.left.fill", Color: "cyan", CharLimit: 280},
	TikTok:    {DisplayName: "TikTok", Icon: "music.note", Color: "black", CharLimit: 2200},
}

// Platforms returns all known platforms in display order.
func Platforms() []Platform {
	out := make([]Platform, len(platformOrder))
	copy(out, platformOrder)
	return out
}

// ParsePlatform resolves a case-insensitive platform name. "x" is accepted
// as an alias for twitter.
func ParsePlatform(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "x" {
		return Twitter, nil
	}
	p := Platform(name)
	if _, ok := platformInfo[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	_, ok := platformInfo[p]
	return ok
}

// PlatformInfo returns the metadata for p. Unknown platforms get their raw
// name as display name and no character limit.
func PlatformInfo(p Platform) Info {
	if info, ok := platformInfo[p]; ok {
		return info
	}
	return Info{DisplayName: string(p)}
}

// DisplayName is shorthand for PlatformInfo(p).DisplayName.
func (p Platform) DisplayName() string {
	return PlatformInfo(p).DisplayName
}
