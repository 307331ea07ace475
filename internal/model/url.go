package model

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a URL for deduplication purposes.
// Two URLs that are equivalent for crawl purposes normalize to the same string.
//
// Normalization rules:
//  1. Scheme and host are lowercased
//  2. Default ports are stripped (":80" for http, ":443" for https)
//  3. The fragment is removed (#anchor doesn't change content)
//  4. An empty path becomes "/" (http://example.com == http://example.com/)
//  5. A non-root trailing slash is stripped (/guide/ == /guide)
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Strip default ports so http://example.com:80/ and http://example.com/
	// collapse to the same key.
	host, port, found := strings.Cut(u.Host, ":")
	if found {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	if u.Path == "" {
		u.Path = "/"
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// SameOrigin reports whether two URLs share scheme and host.
// This defines the crawl boundary: only same-origin pages are mirrored.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}

// ResolveReference resolves href against base and returns the absolute form.
// It returns an empty string for non-navigable references (mailto:, javascript:,
// tel:, data:, bare fragments) and for unparseable input.
func ResolveReference(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return ""
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
