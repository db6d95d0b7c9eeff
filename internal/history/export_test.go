package history

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseExportFormat(t *testing.T) {
	cases := map[string]ExportFormat{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, " yml ": FormatYAML}
	for in, want := range cases {
		got, err := ParseExportFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseExportFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseExportFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}

func TestExport_JSON(t *testing.T) {
	s, _ := newTestStore(t)
	s.Save(sampleContent("Acme", "Launch"), "Acme", "Launch", "professional")

	var buf bytes.Buffer
	if err := Export(&buf, s.Entries(), FormatJSON); err != nil {
		t.Fatalf("Export: %v", err)
	}
	var got []Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if len(got) != 1 || got[0].ID != "entry-001" || got[0].Topic != "Launch" {
		t.Errorf("got %+v", got)
	}
}

func TestExport_YAML(t *testing.T) {
	s, _ := newTestStore(t)
	s.Save(sampleContent("Acme", "Launch"), "Acme", "Launch", "fun")

	var buf bytes.Buffer
	if err := Export(&buf, s.Entries(), FormatYAML); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not yaml: %v", err)
	}
	if len(doc) != 1 {
		t.Fatalf("got %d entries", len(doc))
	}
	if doc[0]["tone"] != "fun" || doc[0]["createdAt"] == nil {
		t.Errorf("entry = %v", doc[0])
	}
	if !strings.Contains(buf.String(), "image_suggestion: rocket") {
		t.Errorf("platform fields missing:\n%s", buf.String())
	}
}

func TestExport_EmptyIsList(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("got %q", buf.String())
	}
}
