package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/studio"
)

// GenerateRequest is the body of POST /generate. CompanyID accepts a company
// id or name. IdeaTitle wins over Topic when both are set.
type GenerateRequest struct {
	CompanyID       string `json:"company_id"`
	Topic           string `json:"topic"`
	IdeaTitle       string `json:"idea_title,omitempty"`
	IdeaDescription string `json:"idea_description,omitempty"`
	Tone            string `json:"tone,omitempty"`
	GenerateImages  bool   `json:"generate_images"`
	ImageStyle      string `json:"image_style,omitempty"`
	Variations      int    `json:"variations,omitempty"`
}

func handleGenerate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Studio == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "generation is not available")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		params, err := req.Params(r.Context(), deps.Studio)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		res, err := deps.Studio.Generate(r.Context(), params)
		if err != nil {
			writeGenerateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res.Entry)
	}
}

// Params converts r into studio parameters. Tone and image style are
// validated here; missing values are left for the studio's defaults.
func (r GenerateRequest) Params(ctx context.Context, s *studio.Studio) (studio.Params, error) {
	params := studio.Params{
		Company:        resolveCompany(ctx, s, r.CompanyID),
		CustomTopic:    r.Topic,
		GenerateImages: r.GenerateImages,
		Variations:     r.Variations,
	}
	if r.IdeaTitle != "" {
		params.Idea = &content.ContentIdea{Title: r.IdeaTitle, Description: r.IdeaDescription}
	}
	if r.Tone != "" {
		tone, err := content.ParseTone(r.Tone)
		if err != nil {
			return studio.Params{}, err
		}
		params.Tone = tone
	}
	if r.ImageStyle != "" {
		style, err := content.ParseImageStyle(r.ImageStyle)
		if err != nil {
			return studio.Params{}, err
		}
		params.ImageStyle = style
	}
	return params, nil
}

// resolveCompany looks ref up in the studio's company list, refreshing it
// once on a miss. Unknown refs are passed through as ids.
func resolveCompany(ctx context.Context, s *studio.Studio, ref string) content.Company {
	if ref == "" {
		return content.Company{}
	}
	if c, ok := s.FindCompany(ref); ok {
		return c
	}
	if _, err := s.Connect(ctx); err == nil {
		if c, ok := s.FindCompany(ref); ok {
			return c
		}
	}
	return content.Company{ID: ref}
}

func writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrNoCompany), errors.Is(err, studio.ErrNoTopic),
		errors.Is(err, content.ErrInvalidTone), errors.Is(err, content.ErrInvalidImageStyle),
		errors.Is(err, content.ErrInvalidVariations):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}
	var f *studio.Failure
	if errors.As(err, &f) {
		httpError(w, http.StatusBadGateway, "backend_error", "%s", f.Message)
		return
	}
	httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
}
