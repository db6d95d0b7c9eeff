package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/imageconv"
)

type memClipboard struct {
	text string
	err  error
}

func (m *memClipboard) WriteText(_ context.Context, text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

var variation = content.PlatformContent{
	Content:         "Launch day!",
	Hashtags:        []string{"#launch", "#rockets"},
	ImageSuggestion: "Rocket on the pad at dawn",
}

func TestCopyHelpers(t *testing.T) {
	ctx := context.Background()
	cb := &memClipboard{}

	if err := CopyPost(ctx, cb, variation); err != nil || cb.text != "Launch day!" {
		t.Errorf("CopyPost: %q, %v", cb.text, err)
	}
	if err := CopyImageSuggestion(ctx, cb, variation); err != nil || cb.text != "Rocket on the pad at dawn" {
		t.Errorf("CopyImageSuggestion: %q, %v", cb.text, err)
	}
	if err := CopyHashtags(ctx, cb, variation); err != nil || cb.text != "#launch #rockets" {
		t.Errorf("CopyHashtags: %q, %v", cb.text, err)
	}

	if err := CopyImageSuggestion(ctx, cb, content.PlatformContent{}); err == nil {
		t.Error("expected error for missing image suggestion")
	}
	if err := CopyHashtags(ctx, cb, content.PlatformContent{}); err == nil {
		t.Error("expected error for missing hashtags")
	}

	cb.err = errors.New("xclip: no display")
	if err := CopyPost(ctx, cb, variation); err == nil {
		t.Error("clipboard error not propagated")
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Acme Corp":        "acme-corp",
		"  Über & Co. ":    "über-co",
		"already-slugged":  "already-slugged",
		"!!!":              "post",
		"Globex 2024 Inc.": "globex-2024-inc",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSave_RelativeURL(t *testing.T) {
	srv := imageServer(t)
	dir := t.TempDir()
	s := NewImageSaver(dir, imageconv.JPG, WithBaseURL(srv.URL))

	pc := content.PlatformContent{ImageURL: "/images/abc.png"}
	path, err := s.Save(context.Background(), "Acme Corp", content.Instagram, 1, pc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "acme-corp-instagram-2.jpg" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if imageconv.Detect(data) != imageconv.JPG {
		t.Error("saved file is not a JPEG")
	}
}

func TestSave_Errors(t *testing.T) {
	srv := imageServer(t)
	s := NewImageSaver(t.TempDir(), imageconv.PNG)
	ctx := context.Background()

	if _, err := s.Save(ctx, "Acme", content.Twitter, 0, content.PlatformContent{}); err == nil {
		t.Error("expected error for missing image url")
	}
	if _, err := s.Save(ctx, "Acme", content.Twitter, 0, content.PlatformContent{ImageURL: "/x.png"}); err == nil {
		t.Error("expected error for relative url without base")
	}
	if _, err := s.Save(ctx, "Acme", content.Twitter, 0, content.PlatformContent{ImageURL: srv.URL + "/missing.png"}); err == nil {
		t.Error("expected error for 404")
	}
}

func TestSaveAll(t *testing.T) {
	srv := imageServer(t)
	dir := t.TempDir()
	s := NewImageSaver(dir, imageconv.PNG)

	gc := content.GeneratedContent{
		Company: "Acme",
		Platforms: map[content.Platform][]content.PlatformContent{
			content.Instagram: {
				{Content: "a", ImageURL: srv.URL + "/ig1.png"},
				{Content: "b", ImageURL: srv.URL + "/ig2.png"},
			},
			content.LinkedIn: {
				{Content: "c", ImageURL: srv.URL + "/li1.png"},
			},
			content.Twitter: {
				{Content: "no image"},
				{Content: "no image either"},
			},
		},
	}

	saved, err := s.SaveAll(context.Background(), gc, 1)
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	var names []string
	for _, img := range saved {
		names = append(names, filepath.Base(img.Path))
	}
	sort.Strings(names)
	want := []string{"acme-instagram-2.png", "acme-linkedin-1.png"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("saved = %v, want %v", names, want)
	}
}

func TestSaveAll_NothingToSave(t *testing.T) {
	s := NewImageSaver(t.TempDir(), imageconv.PNG)
	saved, err := s.SaveAll(context.Background(), content.GeneratedContent{}, 0)
	if err != nil || saved != nil {
		t.Errorf("SaveAll = %v, %v", saved, err)
	}
}
