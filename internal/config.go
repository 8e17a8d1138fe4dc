package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/sitemap"
)

// Content sources.
const (
	SourceFS   = "fs"
	SourceHTTP = "http"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Site       SiteConfig        `yaml:"site"`
	Content    ContentConfig     `yaml:"content"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Output     OutputConfig      `yaml:"output"`
	Revalidate RevalidateConfig  `yaml:"revalidate"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Revalidate.Validate(); err != nil {
		return fmt.Errorf("revalidate: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig describes the published site and how slugs and timestamps
// are derived.
type SiteConfig struct {
	Name        string `yaml:"name"`
	Domain      string `yaml:"domain"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	RootPageID  string `yaml:"root_page_id"`
	RootSpaceID string `yaml:"root_space_id"`

	IncludePageIDInURLs    bool              `yaml:"include_page_id_in_urls"`
	OverrideCreatedTime    string            `yaml:"override_created_time"`
	OverrideLastEditedTime string            `yaml:"override_last_edited_time"`
	PageURLOverrides       map[string]string `yaml:"page_url_overrides"`
	SocialImageBase        string            `yaml:"social_image_base"`
}

var validPageID = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	_, err := pageid.Parse(s)
	return err
})

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Domain, validation.Required),
		validation.Field(&c.RootPageID, validation.Required, validPageID),
	); err != nil {
		return err
	}
	for slug, id := range c.PageURLOverrides {
		if _, err := pageid.Parse(id); err != nil {
			return fmt.Errorf("page_url_overrides[%s]: %w", slug, err)
		}
	}
	return nil
}

// Models converts c into the site description carried by site maps.
func (c *SiteConfig) Models() models.SiteConfig {
	return models.SiteConfig{
		Name:            c.Name,
		Domain:          c.Domain,
		Author:          c.Author,
		Description:     c.Description,
		Language:        c.Language,
		RootPageID:      c.RootPageID,
		RootSpaceID:     c.RootSpaceID,
		SocialImageBase: c.SocialImageBase,
	}
}

// ContentConfig selects where record maps are read from.
type ContentConfig struct {
	Source        string        `yaml:"source"`
	SnapshotDir   string        `yaml:"snapshot_dir"`
	Watch         bool          `yaml:"watch"`
	APIURL        string        `yaml:"api_url"`
	Concurrency   int           `yaml:"concurrency"`
	RetryAttempts uint          `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(SourceFS, SourceHTTP)),
		validation.Field(&c.SnapshotDir, validation.When(c.Source == SourceFS, validation.Required)),
		validation.Field(&c.APIURL, validation.When(c.Source == SourceHTTP, validation.Required)),
		validation.Field(&c.Concurrency, validation.Min(0), validation.Max(64)),
		validation.Field(&c.RetryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// OutputConfig holds the static output directory. Empty disables publishing.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// RevalidateConfig controls rebuilds in serve mode. A zero Interval
// disables periodic rebuilds; Cooldown spaces out POST /api/revalidate.
type RevalidateConfig struct {
	Interval time.Duration `yaml:"interval"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// Validate validates the revalidation configuration.
func (c *RevalidateConfig) Validate() error {
	if c.Interval != 0 && c.Interval < time.Second {
		return errors.New("interval must be 0 or at least 1s")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
	)
}

// SitemapOptions returns the builder options for this configuration.
func (c *Config) SitemapOptions() sitemap.Options {
	return sitemap.Options{
		Site:                   c.Site.Models(),
		EmbedRawID:             c.Site.IncludePageIDInURLs,
		CreatedTimeProperty:    c.Site.OverrideCreatedTime,
		LastEditedTimeProperty: c.Site.OverrideLastEditedTime,
		PageURLOverrides:       c.Site.PageURLOverrides,
		Concurrency:            c.Content.Concurrency,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Language: "en",
		},
		Content: ContentConfig{
			Source:        SourceFS,
			SnapshotDir:   "./snapshots",
			Concurrency:   4,
			RetryAttempts: 3,
			RetryDelay:    200 * time.Millisecond,
			Timeout:       30 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./blockpress.db",
		},
		Output: OutputConfig{
			Dir: "./public",
		},
		Revalidate: RevalidateConfig{
			Interval: 10 * time.Minute,
			Cooldown: 10 * time.Second,
		},
	}
}
