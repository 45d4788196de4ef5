package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPageSetBody(t *testing.T) {
	t.Parallel()

	t.Run("hashes the body", func(t *testing.T) {
		t.Parallel()

		p := &Page{}
		p.SetBody([]byte("Hello, World!"))

		want := "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"
		if p.Hash != want {
			t.Errorf("got %q, want %q", p.Hash, want)
		}
		if p.Size != 13 {
			t.Errorf("expected size 13, got %d", p.Size)
		}
	})

	t.Run("empty body has no hash", func(t *testing.T) {
		t.Parallel()

		p := &Page{Hash: "stale"}
		p.SetBody(nil)
		if p.Hash != "" || p.Size != 0 {
			t.Errorf("unexpected hash %q size %d", p.Hash, p.Size)
		}
	})
}

func TestPageContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header   string
		want     string
		wantHTML bool
	}{
		{header: "text/html", want: "text/html", wantHTML: true},
		{header: "text/html; charset=utf-8", want: "text/html", wantHTML: true},
		{header: "Application/XHTML+XML", want: "application/xhtml+xml", wantHTML: true},
		{header: "application/json", want: "application/json"},
		{header: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()

			p := &Page{}
			p.SetContentType(tt.header)
			if p.ContentType != tt.want {
				t.Errorf("ContentType = %q, want %q", p.ContentType, tt.want)
			}
			if p.IsHTML() != tt.wantHTML {
				t.Errorf("IsHTML = %v, want %v", p.IsHTML(), tt.wantHTML)
			}
		})
	}
}

func TestPageGetHeader(t *testing.T) {
	t.Parallel()

	p := &Page{Headers: map[string][]string{
		"Server": {"nginx", "proxy"},
		"Empty":  {},
	}}
	if got := p.GetHeader("Server"); got != "nginx" {
		t.Errorf("expected first value, got %q", got)
	}
	if got := p.GetHeader("Empty"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
	if got := p.GetHeader("Missing"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}

func TestPageTruncateSnapshot(t *testing.T) {
	t.Parallel()

	p := &Page{Snapshot: strings.Repeat("a", MaxSnapshotSize+10)}
	p.TruncateSnapshot()
	if len(p.Snapshot) != MaxSnapshotSize {
		t.Errorf("expected %d bytes, got %d", MaxSnapshotSize, len(p.Snapshot))
	}

	short := &Page{Snapshot: "short"}
	short.TruncateSnapshot()
	if short.Snapshot != "short" {
		t.Errorf("short snapshot changed to %q", short.Snapshot)
	}
}

func TestPageJSON(t *testing.T) {
	t.Parallel()

	p := Page{URL: "https://example.com/", StatusCode: 200, Title: "Example"}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, key := range []string{`"url"`, `"status_code"`, `"title"`} {
		if !strings.Contains(out, key) {
			t.Errorf("expected %s in %s", key, out)
		}
	}
	if strings.Contains(out, `"final_url"`) {
		t.Errorf("empty final_url should be omitted: %s", out)
	}
}
