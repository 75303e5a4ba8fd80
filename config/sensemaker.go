package config

import (
	"strings"
	"time"
)

const (
	defaultAppRoot     = "."
	defaultDataFolder  = "tmp/sensemaker"
	defaultLocale      = "en"
	defaultCachePrefix = "sensemaker:"
)

// SensemakerConfig locates job files and tunes context compilation.
type SensemakerConfig struct {
	// AppRoot anchors relative data folders and persisted output paths.
	AppRoot string `env:"APP_ROOT" envDefault:"."`
	// DataFolder holds input, context and output files. Relative values resolve against AppRoot.
	DataFolder string `env:"DATA_FOLDER" envDefault:"tmp/sensemaker"`
	// ContextCacheTTL is how long compiled contexts stay in Redis. Zero disables the cache.
	ContextCacheTTL time.Duration `env:"CONTEXT_CACHE_TTL" envDefault:"10m"`
	// CachePrefix namespaces every Redis key.
	CachePrefix string `env:"CACHE_PREFIX" envDefault:"sensemaker:"`
	// Locale picks the translation read for titles and descriptions.
	Locale string `env:"LOCALE" envDefault:"en"`
}

// Sanitize restores defaults for blank values and clamps the cache TTL.
func (c *SensemakerConfig) Sanitize() {
	if c.AppRoot = strings.TrimSpace(c.AppRoot); c.AppRoot == "" {
		c.AppRoot = defaultAppRoot
	}
	if c.DataFolder = strings.TrimSpace(c.DataFolder); c.DataFolder == "" {
		c.DataFolder = defaultDataFolder
	}
	if c.ContextCacheTTL < 0 {
		c.ContextCacheTTL = 0
	}
	if c.Locale = strings.ToLower(strings.TrimSpace(c.Locale)); c.Locale == "" {
		c.Locale = defaultLocale
	}
	c.CachePrefix = strings.TrimSpace(c.CachePrefix)
	if c.CachePrefix == "" {
		c.CachePrefix = defaultCachePrefix
	}
	if !strings.HasSuffix(c.CachePrefix, ":") {
		c.CachePrefix += ":"
	}
}
