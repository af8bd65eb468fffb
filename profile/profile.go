// Package profile holds the declarative per-site tables that bind the
// shared ingestion core to one publisher: CSS selector chains, URL
// templates, the locale map, and the publisher constant. Profiles are
// plain data loaded from YAML; they contain no behavior beyond
// validation.
package profile

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one publisher.
type Profile struct {
	// Name is the site identifier used in output filenames and logs.
	Name string `yaml:"name"`
	// Country is the constant copied into source_country.
	Country string `yaml:"country"`
	// BaseURL resolves relative links and images.
	BaseURL string `yaml:"base_url"`
	// DefaultLanguage is the locale code assumed when neither JSON-LD
	// nor the HTML root carries one.
	DefaultLanguage string `yaml:"default_language"`
	// Languages maps locale codes to language names, extending the
	// built-in table.
	Languages map[string]string `yaml:"languages"`
	// Publisher is the fallback publisher object copied verbatim into
	// records when JSON-LD supplies none.
	Publisher map[string]any `yaml:"publisher"`

	Discovery Discovery `yaml:"discovery"`
	Article   Article   `yaml:"article"`
}

// Discovery configures the per-site crawl surfaces.
type Discovery struct {
	// SitemapURL is the top-level XML sitemap or news sitemap. When
	// set, sitemap mode walks it.
	SitemapURL string `yaml:"sitemap_url"`
	// ArchiveTemplate is a dated archive URL carrying a Go time layout,
	// e.g. "/archiv/?datum=2006-01-02" or "/2006/01/02/". Relative
	// templates resolve against BaseURL; the layout must live in the
	// path or query, never in the host. When set (and SitemapURL is
	// not), sitemap mode fetches one page per window day.
	ArchiveTemplate string `yaml:"archive_template"`
	// FeedURL is an RSS/Atom feed used by link_feed mode when set.
	FeedURL string `yaml:"feed_url"`
	// ListPages are the homepage or listing URLs link_feed mode fetches
	// when no feed is configured. Relative paths resolve against
	// BaseURL.
	ListPages []string `yaml:"list_pages"`
	// LinkSelector finds article anchors on archive and list pages.
	LinkSelector string `yaml:"link_selector"`
	// PaginationSelector finds the pagination strip anchors on archive
	// pages. Empty means archives are single pages.
	PaginationSelector string `yaml:"pagination_selector"`
	// PaginationCap bounds how many pages one archive date may add.
	PaginationCap int `yaml:"pagination_cap"`
}

// DefaultPaginationCap bounds archive pagination when the profile does
// not set its own cap.
const DefaultPaginationCap = 11

// Article configures the DOM fallback chains of the record builder.
// Every list is tried in order; the first selector that yields content
// wins.
type Article struct {
	Title    []string `yaml:"title"`
	Subtitle []string `yaml:"subtitle"`
	Byline   []string `yaml:"byline"`
	Body     []string `yaml:"body"`
	Date     []string `yaml:"date"`
	Hero     []string `yaml:"hero"`
	// Figures matches the gallery/figure blocks mined for images.
	Figures []string `yaml:"figures"`
	// Captions matches caption elements aligned positionally with the
	// figure images.
	Captions []string `yaml:"captions"`
	// VideoFrames matches iframes or video elements carrying embeds.
	VideoFrames []string `yaml:"video_frames"`
	// DataConfigAttr names the attribute holding a JSON player config
	// with _sharing.link or _download.url entries.
	DataConfigAttr string `yaml:"data_config_attr"`
	// Breadcrumb matches the breadcrumb items used for sections.
	Breadcrumb string `yaml:"breadcrumb"`
	// SectionOverrides lists article sub-paths where the breadcrumb
	// beats JSON-LD articleSection.
	SectionOverrides []SectionOverride `yaml:"section_overrides"`
	Tags             []string          `yaml:"tags"`
	// PlayButton is clicked by the optional headless video pass.
	PlayButton string `yaml:"play_button"`
}

// SectionOverride picks a breadcrumb element for matching sub-paths.
type SectionOverride struct {
	// PathContains matches against the article URL path.
	PathContains string `yaml:"path_contains"`
	// FromEnd selects the breadcrumb element counting backwards:
	// 1 is the last element, 2 the second-to-last.
	FromEnd int `yaml:"from_end"`
}

// Validate enforces the minimum viable profile.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: name is required")
	}
	if p.Country == "" {
		return fmt.Errorf("profile %s: country is required", p.Name)
	}
	if p.BaseURL == "" {
		return fmt.Errorf("profile %s: base_url is required", p.Name)
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("profile %s: base_url %q is not an absolute URL", p.Name, p.BaseURL)
	}
	if p.DefaultLanguage == "" {
		return fmt.Errorf("profile %s: default_language is required", p.Name)
	}
	if len(p.Article.Body) == 0 {
		return fmt.Errorf("profile %s: article.body selectors are required", p.Name)
	}
	d := p.Discovery
	if d.SitemapURL == "" && d.ArchiveTemplate == "" && d.FeedURL == "" && len(d.ListPages) == 0 {
		return fmt.Errorf("profile %s: at least one discovery surface is required", p.Name)
	}
	if (d.ArchiveTemplate != "" || len(d.ListPages) > 0) && d.LinkSelector == "" {
		return fmt.Errorf("profile %s: link_selector is required with archive or list discovery", p.Name)
	}
	if d.PaginationCap < 0 {
		return fmt.Errorf("profile %s: pagination_cap must not be negative", p.Name)
	}
	return nil
}

// PaginationLimit returns the profile cap or the family default.
func (p *Profile) PaginationLimit() int {
	if p.Discovery.PaginationCap > 0 {
		return p.Discovery.PaginationCap
	}
	return DefaultPaginationCap
}

// Resolve makes ref absolute against the profile base URL. Already
// absolute references come back unchanged; unparseable ones come back
// empty.
func (p *Profile) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// Load reads and validates a single profile file.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	defer f.Close()

	var p Profile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Registry holds the loaded profiles of the adapter family, keyed by
// site name.
type Registry struct {
	profiles map[string]*Profile
}

// LoadDir loads every .yaml file in dir into a registry.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles directory: %w", err)
	}

	r := &Registry{profiles: make(map[string]*Profile)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		p, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile %s: duplicate site name", p.Name)
		}
		r.profiles[p.Name] = p
	}
	if len(r.profiles) == 0 {
		return nil, fmt.Errorf("no profiles found in %s", dir)
	}
	return r, nil
}

// Get returns the profile for a site name.
func (r *Registry) Get(name string) (*Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names lists the registered site names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}
