package config

import (
	"fmt"
	"maps"
	"net/url"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SiteConfig holds site-specific configuration for one target.
// This allows tuning the heuristics and requests per site.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when fetching this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxNameDistance overrides the global name distance bound.
	// If zero, the global value is used.
	MaxNameDistance int `yaml:"maxNameDistance,omitempty"`

	// ContainerClasses are extra class substrings that mark a div as a
	// contact container, in addition to "item" and "card".
	ContainerClasses []string `yaml:"containerClasses,omitempty"`
}

// Validate checks a single site section.
func (s SiteConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MaxNameDistance, validation.Min(0)),
		validation.Field(&s.ContainerClasses, validation.Each(validation.Required)),
	)
}

// File represents the structure of the .contactscan configuration file.
type File struct {
	// Sites maps a site key to its configuration. For URLs the key is the
	// host (e.g. "example.com"); for files it is the cleaned path.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// Validate checks the defaults and every site section.
func (cf *File) Validate() error {
	if err := cf.Defaults.Validate(); err != nil {
		return fmt.Errorf("%w: defaults: %v", ErrInvalidSiteConfig, err)
	}
	for key, site := range cf.Sites {
		if err := site.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSiteConfig, key, err)
		}
	}
	return nil
}

// SiteKey returns the key used to look up target in File.Sites.
func SiteKey(target string) string {
	if u, err := url.Parse(target); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return strings.ToLower(u.Hostname())
	}
	return filepath.Clean(strings.TrimPrefix(target, "file://"))
}

// GetSiteConfig returns the configuration for target.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(target string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	result.ContainerClasses = append([]string(nil), cf.Defaults.ContainerClasses...)

	siteConfig, ok := cf.Sites[SiteKey(target)]
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.MaxNameDistance != 0 {
		result.MaxNameDistance = siteConfig.MaxNameDistance
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.ContainerClasses) > 0 {
		result.ContainerClasses = append(result.ContainerClasses, siteConfig.ContainerClasses...)
	}

	return result
}
