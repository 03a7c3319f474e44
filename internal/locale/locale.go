// Package locale renders health factors, recommendations and spotlight
// reasons from key-based message catalogs.
package locale

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/pulse/internal/health"
)

//go:embed locales/*.yaml
var builtin embed.FS

// DefaultLang is the language of the built-in fallback catalog.
const DefaultLang = "en"

// Catalog maps dotted message keys (e.g. "factors.tasks_overdue.label") to
// templates with {token} placeholders.
type Catalog struct {
	Lang     string
	messages map[string]string
}

// Parse builds a catalog from a nested YAML document.
func Parse(lang string, data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s catalog: %w", lang, err)
	}
	c := &Catalog{Lang: lang, messages: make(map[string]string)}
	flatten("", raw, c.messages)
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := v.(type) {
		case map[string]any:
			flatten(key, x, out)
		case nil:
		default:
			out[key] = fmt.Sprint(x)
		}
	}
}

// Load returns the catalog for lang. A <lang>.yaml file in dir takes
// precedence over the built-in catalogs.
func Load(lang, dir string) (*Catalog, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLang
	}
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, lang+".yaml"))
		switch {
		case err == nil:
			return Parse(lang, data)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read %s catalog: %w", lang, err)
		}
	}
	data, err := builtin.ReadFile("locales/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no catalog for locale %q", lang)
	}
	return Parse(lang, data)
}

// Builtin returns the embedded language codes.
func Builtin() []string {
	entries, _ := fs.ReadDir(builtin, "locales")
	var langs []string
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(langs)
	return langs
}

// Len returns the number of messages in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.messages)
}

// Lookup returns the raw template for key.
func (c *Catalog) Lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	s, ok := c.messages[key]
	return s, ok
}

// Render fills the template for key from meta, or returns fallback when the
// catalog has no such key. fallback is expected to be already interpolated.
func (c *Catalog) Render(key, fallback string, meta map[string]any) string {
	tmpl, ok := c.Lookup(key)
	if !ok {
		return fallback
	}
	return health.Interpolate(tmpl, meta)
}

// Status returns the display name of a health status.
func (c *Catalog) Status(s health.Status) string {
	return c.Render("statuses."+string(s), string(s), nil)
}

// ProjectHealth returns a copy of h with factor and recommendation texts
// rendered from the catalog.
func (c *Catalog) ProjectHealth(h health.ProjectHealth) health.ProjectHealth {
	out := h
	out.Factors = make([]health.HealthFactor, len(h.Factors))
	for i, f := range h.Factors {
		f.Label = c.Render("factors."+f.ID+".label", f.Label, f.Meta)
		f.Description = c.Render("factors."+f.ID+".description", f.Description, f.Meta)
		out.Factors[i] = f
	}
	out.Recommendations = make([]string, len(h.RecommendationKeys))
	for i, key := range h.RecommendationKeys {
		fallback := ""
		if i < len(h.Recommendations) {
			fallback = h.Recommendations[i]
		}
		out.Recommendations[i] = c.Render("recommendations."+key, fallback, nil)
	}
	return out
}

// Spotlight returns a copy of s with reason texts rendered from the catalog.
func (c *Catalog) Spotlight(s health.SpotlightScore) health.SpotlightScore {
	out := s
	out.Reasons = make([]health.SpotlightReason, len(s.Reasons))
	for i, r := range s.Reasons {
		r.Text = c.Render("reasons."+r.Key, r.Text, r.Meta)
		out.Reasons[i] = r
	}
	out.PrimaryReason.Text = c.Render("reasons."+s.PrimaryReason.Key, s.PrimaryReason.Text, s.PrimaryReason.Meta)
	out.Reason = out.PrimaryReason.Text
	return out
}
