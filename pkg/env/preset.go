package env

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taigrr/studio/pkg/shade"
)

// Encoding is the pixel encoding of a panorama source.
type Encoding string

const (
	EncodingLDR Encoding = "ldr" // 8-bit sRGB (PNG, JPEG)
	EncodingHDR Encoding = "hdr" // Radiance RGBE
)

// MoodHint is the look a preset suggests for the rest of the scene.
type MoodHint struct {
	Exposure      float32           `yaml:"exposure" json:"exposure"`
	ToneMapping   shade.ToneMapping `yaml:"toneMapping" json:"toneMapping"`
	FallbackColor string            `yaml:"fallback" json:"fallback"`
}

// Preset is an immutable catalog entry.
type Preset struct {
	ID        string    `yaml:"id" json:"id"`
	SourceURL string    `yaml:"source" json:"source"`
	Encoding  Encoding  `yaml:"encoding" json:"encoding"`
	Mood      *MoodHint `yaml:"mood,omitempty" json:"mood,omitempty"`
}

// Catalog is an ordered, id-indexed set of presets.
type Catalog struct {
	presets []Preset
	byID    map[string]int
}

//go:embed presets.yaml
var defaultPresets []byte

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultPresets)
	if err != nil {
		panic(fmt.Sprintf("embedded presets: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML catalog of the form
//
//	presets:
//	  - id: meadow
//	    source: https://example.com/meadow.hdr
//	    encoding: hdr
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Presets []Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(doc.Presets...)
}

// NewCatalog validates presets and builds a catalog. Encodings default from
// the source extension.
func NewCatalog(presets ...Preset) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(presets))}
	var errs []error
	for _, p := range presets {
		if p.ID == "" {
			errs = append(errs, errors.New("preset without id"))
			continue
		}
		if p.SourceURL == "" {
			errs = append(errs, fmt.Errorf("preset %s: empty source", p.ID))
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			errs = append(errs, fmt.Errorf("preset %s: duplicate id", p.ID))
			continue
		}
		switch p.Encoding {
		case EncodingLDR, EncodingHDR:
		case "":
			p.Encoding = guessEncoding(p.SourceURL)
		default:
			errs = append(errs, fmt.Errorf("preset %s: unknown encoding %q", p.ID, p.Encoding))
			continue
		}
		if p.Mood != nil {
			tm, err := shade.ParseToneMapping(string(p.Mood.ToneMapping))
			if err != nil {
				errs = append(errs, fmt.Errorf("preset %s: %w", p.ID, err))
				continue
			}
			mood := *p.Mood
			mood.ToneMapping = tm
			p.Mood = &mood
		}
		c.byID[p.ID] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func guessEncoding(src string) Encoding {
	if strings.HasSuffix(strings.ToLower(src), ".hdr") {
		return EncodingHDR
	}
	return EncodingLDR
}

// Lookup returns the preset with the given id.
func (c *Catalog) Lookup(id string) (Preset, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Preset{}, false
	}
	return c.presets[i], true
}

// Presets returns the presets in catalog order.
func (c *Catalog) Presets() []Preset {
	return slices.Clone(c.presets)
}

// IDs returns the preset ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.presets))
	for i, p := range c.presets {
		ids[i] = p.ID
	}
	return ids
}
