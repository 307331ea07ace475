package config

// SiteConfig holds site-specific configuration for a single documentation
// host. This customizes crawl behavior for sites that need authentication
// headers or different rendering characteristics.
type SiteConfig struct {
	// Headers are custom HTTP headers sent with every request to this
	// site, both browser navigation and image downloads. Typically used
	// for Authorization or cookie headers on protected docs.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is a shorthand for a Cookie header. It overrides any Cookie
	// entry in Headers.
	Cookie string `yaml:"cookie,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// WaitSelector overrides the settle strategy for this site: the crawl
	// waits for this CSS selector to appear before capturing the DOM.
	WaitSelector string `yaml:"waitSelector,omitempty"`

	// IgnorePatterns are URL path patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// ResolvedHeaders returns the headers to send with requests to this site,
// folding the Cookie shorthand into a Cookie header.
func (sc SiteConfig) ResolvedHeaders() map[string]string {
	if sc.Cookie == "" {
		return sc.Headers
	}
	headers := make(map[string]string, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		headers[k] = v
	}
	headers["Cookie"] = sc.Cookie
	return headers
}

// File represents the structure of the .docmirror configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configurations.
	// Keys are bare hostnames (e.g., "docs.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific hostname, merging
// the site-specific configuration over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if siteConfig.WaitSelector != "" {
			result.WaitSelector = siteConfig.WaitSelector
		}
		if siteConfig.Cookie != "" {
			result.Cookie = siteConfig.Cookie
		}
		if siteConfig.Depth != 0 {
			result.Depth = siteConfig.Depth
		}
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.IgnorePatterns) > 0 {
			result.IgnorePatterns = siteConfig.IgnorePatterns
		}
		if len(siteConfig.FollowPatterns) > 0 {
			result.FollowPatterns = siteConfig.FollowPatterns
		}
	}

	return result
}
