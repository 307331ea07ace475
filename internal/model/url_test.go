package model

import "testing"

// TestNormalizeURL tests URL canonicalization for frontier deduplication.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "lowercases scheme and host",
			input: "HTTPS://Docs.Example.COM/Guide",
			want:  "https://docs.example.com/Guide",
		},
		{
			name:  "strips default http port",
			input: "http://example.com:80/page",
			want:  "http://example.com/page",
		},
		{
			name:  "strips default https port",
			input: "https://example.com:443/page",
			want:  "https://example.com/page",
		},
		{
			name:  "keeps non-default port",
			input: "http://example.com:8080/page",
			want:  "http://example.com:8080/page",
		},
		{
			name:  "removes fragment",
			input: "https://example.com/page#section",
			want:  "https://example.com/page",
		},
		{
			name:  "empty path becomes root",
			input: "https://example.com",
			want:  "https://example.com/",
		},
		{
			name:  "strips non-root trailing slash",
			input: "https://example.com/guide/",
			want:  "https://example.com/guide",
		},
		{
			name:  "root slash preserved",
			input: "https://example.com/",
			want:  "https://example.com/",
		},
		{
			name:  "query string preserved",
			input: "https://example.com/search?q=x",
			want:  "https://example.com/search?q=x",
		},
		{
			name:    "relative URL rejected",
			input:   "/guide/intro",
			wantErr: true,
		},
		{
			name:    "empty URL rejected",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeURL(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestNormalizeURLEquivalence verifies that semantically equivalent URLs
// collapse to the same key.
func TestNormalizeURLEquivalence(t *testing.T) {
	t.Parallel()

	groups := [][]string{
		{"https://example.com", "https://example.com/", "HTTPS://EXAMPLE.COM:443/"},
		{"http://example.com/a/", "http://example.com/a", "http://example.com:80/a#top"},
	}

	for _, group := range groups {
		first, err := NormalizeURL(group[0])
		if err != nil {
			t.Fatalf("normalize %q: %v", group[0], err)
		}
		for _, raw := range group[1:] {
			got, err := NormalizeURL(raw)
			if err != nil {
				t.Fatalf("normalize %q: %v", raw, err)
			}
			if got != first {
				t.Errorf("%q normalized to %q, want %q (same as %q)", raw, got, first, group[0])
			}
		}
	}
}

// TestSameOrigin tests the crawl boundary check.
func TestSameOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "https://docs.example.com/", "https://docs.example.com/guide", true},
		{"case insensitive host", "https://Docs.Example.com/", "https://docs.example.com/x", true},
		{"different host", "https://docs.example.com/", "https://external.com/", false},
		{"different scheme", "https://example.com/", "http://example.com/", false},
		{"different subdomain", "https://docs.example.com/", "https://www.example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SameOrigin(tt.a, tt.b); got != tt.want {
				t.Errorf("SameOrigin(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestResolveReference tests href resolution against a base URL.
func TestResolveReference(t *testing.T) {
	t.Parallel()

	base := "https://docs.example.com/guide/intro"

	tests := []struct {
		name string
		href string
		want string
	}{
		{"absolute", "https://other.com/x", "https://other.com/x"},
		{"root relative", "/api/reference", "https://docs.example.com/api/reference"},
		{"sibling relative", "setup", "https://docs.example.com/guide/setup"},
		{"parent relative", "../faq", "https://docs.example.com/faq"},
		{"protocol relative", "//cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"mailto skipped", "mailto:a@b.com", ""},
		{"javascript skipped", "javascript:void(0)", ""},
		{"tel skipped", "tel:+123", ""},
		{"bare fragment skipped", "#", ""},
		{"empty skipped", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveReference(base, tt.href); got != tt.want {
				t.Errorf("ResolveReference(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

// TestContentHash verifies hash stability and length.
func TestContentHash(t *testing.T) {
	t.Parallel()

	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	c := ContentHash([]byte("world"))

	if a != b {
		t.Errorf("identical content produced different hashes: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different content produced identical hash: %q", a)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars for SHA-256, got %d", len(a))
	}
}
