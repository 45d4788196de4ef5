package crawler

import "testing"

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{pattern: "/admin/*", path: "/admin/dashboard", want: true},
		{pattern: "/admin/*", path: "/admin", want: true},
		{pattern: "/admin/*", path: "/admin/users/1", want: true},
		{pattern: "/admin/*", path: "/administrator", want: false},
		{pattern: "*.pdf", path: "/docs/file.pdf", want: true},
		{pattern: "*.pdf", path: "/docs/file.pdf.html", want: false},
		{pattern: "/api/v?", path: "/api/v1", want: true},
		{pattern: "/api/v?", path: "/api/v10", want: false},
		{pattern: "logout*", path: "/account/logout-now", want: true},
		{pattern: "/exact", path: "/exact", want: true},
		{pattern: "[", path: "/anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchPattern(tt.pattern, tt.path); got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldCrawl(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		ignore []string
		follow []string
		want   bool
	}{
		{name: "no patterns", path: "/any", want: true},
		{name: "empty path is root", path: "", follow: []string{"/"}, want: true},
		{name: "ignored", path: "/admin/x", ignore: []string{"/admin/*"}, want: false},
		{name: "followed", path: "/docs/a", follow: []string{"/docs/*"}, want: true},
		{name: "not followed", path: "/blog/a", follow: []string{"/docs/*"}, want: false},
		{name: "ignore wins", path: "/docs/a.pdf", ignore: []string{"*.pdf"}, follow: []string{"/docs/*"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := shouldCrawl(tt.path, tt.ignore, tt.follow); got != tt.want {
				t.Errorf("shouldCrawl(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathDepth(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":        0,
		"/":       0,
		"/a":      1,
		"/a/":     1,
		"/a/b/c":  3,
		"//a//b/": 2,
	}
	for in, want := range tests {
		if got := pathDepth(in); got != want {
			t.Errorf("pathDepth(%q) = %d, want %d", in, got, want)
		}
	}
}
