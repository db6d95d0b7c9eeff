package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

type Company struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ContentIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type IdeasResponse struct {
	Company string        `json:"company"`
	Ideas   []ContentIdea `json:"ideas"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Healthy reports whether the backend declared itself online.
func (h HealthResponse) Healthy() bool {
	return h.Status == "healthy"
}

// APIError is the error body returned by the backend on non-200 responses.
type APIError struct {
	Detail string `json:"detail"`
}

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	CompanyID      string     `json:"company_id"`
	Topic          string     `json:"topic"`
	Tone           Tone       `json:"tone"`
	GenerateImages bool       `json:"generate_images"`
	ImageStyle     ImageStyle `json:"image_style"`
	Variations     int        `json:"variations"`
}

// WithDefaults fills unset fields with the backend defaults.
func (r GenerateRequest) WithDefaults() GenerateRequest {
	if r.Tone == "" {
		r.Tone = ToneProfessional
	}
	if r.ImageStyle == "" {
		r.ImageStyle = StylePhoto
	}
	if r.Variations == 0 {
		r.Variations = 1
	}
	return r
}

// Validate checks the request against the backend's accepted values.
func (r GenerateRequest) Validate() error {
	if r.CompanyID == "" {
		return fmt.Errorf("company_id is required")
	}
	if r.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if !r.Tone.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTone, r.Tone)
	}
	if !r.ImageStyle.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidImageStyle, r.ImageStyle)
	}
	if r.Variations < 1 || r.Variations > MaxVariations {
		return fmt.Errorf("%w: %d", ErrInvalidVariations, r.Variations)
	}
	return nil
}

// PlatformContent is one generated variation for one platform.
type PlatformContent struct {
	Content         string   `json:"content"`
	Hashtags        []string `json:"hashtags"`
	CharCount       int      `json:"char_count"`
	ImageSuggestion string   `json:"image_suggestion"`
	ImageURL        string   `json:"image_url,omitempty"`
	ImageStyle      string   `json:"image_style,omitempty"`
}

// OverLimit reports whether the text exceeds the platform's character limit.
// The backend's char_count is trusted when set.
func (c PlatformContent) OverLimit(p Platform) bool {
	limit := PlatformInfo(p).CharLimit
	if limit == 0 {
		return false
	}
	n := c.CharCount
	if n == 0 {
		n = utf8.RuneCountInString(c.Content)
	}
	return n > limit
}

// GeneratedContent is the backend's payload for one generation request.
// Platform variation lists are indexed independently. Keys the model does not
// recognise are kept in Extra and written back unchanged.
type GeneratedContent struct {
	Company   string
	Topic     string
	Platforms map[Platform][]PlatformContent
	Extra     map[string]json.RawMessage
}

// Variation returns variation i for platform p. When p has fewer than i+1
// variations the first one is returned instead, so a shared selection index
// may show a different variation on shorter lists.
func (g GeneratedContent) Variation(p Platform, i int) (PlatformContent, bool) {
	list := g.Platforms[p]
	if len(list) == 0 {
		return PlatformContent{}, false
	}
	if i < 0 || i >= len(list) {
		return list[0], true
	}
	return list[i], true
}

// VariationCount returns the length of the longest platform list.
func (g GeneratedContent) VariationCount() int {
	n := 0
	for _, list := range g.Platforms {
		if len(list) > n {
			n = len(list)
		}
	}
	return n
}

// AvailablePlatforms returns the platforms present in g, in display order.
func (g GeneratedContent) AvailablePlatforms() []Platform {
	var out []Platform
	for _, p := range platformOrder {
		if len(g.Platforms[p]) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func (g GeneratedContent) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(g.Extra)+len(g.Platforms)+2)
	for k, v := range g.Extra {
		m[k] = v
	}
	company, err := json.Marshal(g.Company)
	if err != nil {
		return nil, err
	}
	m["company"] = company
	topic, err := json.Marshal(g.Topic)
	if err != nil {
		return nil, err
	}
	m["topic"] = topic
	for p, list := range g.Platforms {
		b, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", p, err)
		}
		m[string(p)] = b
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts each platform either as a list of variations or as a
// single object.
func (g *GeneratedContent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := GeneratedContent{Platforms: make(map[Platform][]PlatformContent)}
	for k, v := range raw {
		switch k {
		case "company":
			if err := json.Unmarshal(v, &out.Company); err != nil {
				return fmt.Errorf("decoding company: %w", err)
			}
		case "topic":
			if err := json.Unmarshal(v, &out.Topic); err != nil {
				return fmt.Errorf("decoding topic: %w", err)
			}
		default:
			p := Platform(k)
			if !p.Valid() {
				if out.Extra == nil {
					out.Extra = make(map[string]json.RawMessage)
				}
				out.Extra[k] = v
				continue
			}
			list, err := decodeVariations(v)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			if len(list) > 0 {
				out.Platforms[p] = list
			}
		}
	}
	*g = out
	return nil
}

func decodeVariations(v json.RawMessage) ([]PlatformContent, error) {
	trimmed := bytes.TrimSpace(v)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case trimmed[0] == '[':
		var list []PlatformContent
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		var single PlatformContent
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		return []PlatformContent{single}, nil
	}
}
