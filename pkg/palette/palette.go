// Package palette validates the versioned color-shade document an
// organization can persist to object storage. A document is checked in full
// before any storage write is accepted.
package palette

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"youth-cms-backend/pkg/apperrors"
)

// ColorFamilies are the exact seven families a document must contain.
var ColorFamilies = []string{"primary", "secondary", "accent", "neutral", "success", "warning", "error"}

// ShadeKeys are the exact eleven shade keys each family must contain.
var ShadeKeys = []string{"50", "100", "200", "300", "400", "500", "600", "700", "800", "900", "950"}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Document is the palette JSON shape accepted for storage.
type Document struct {
	Version  int                          `json:"version"`
	Name     string                       `json:"name"`
	Colors   map[string]map[string]string `json:"colors"`
	Semantic map[string]string            `json:"semantic"`
	Metadata map[string]string            `json:"metadata"`
}

// Parse decodes and validates a raw palette document. It returns a
// validation error naming the first problem found; nothing may be written to
// storage unless Parse succeeds.
func Parse(raw []byte) (*Document, error) {
	// Decode loosely first so missing top-level keys are reported by name
	// instead of as zero values.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeValidation, "palette is not a JSON object", err)
	}
	for _, key := range []string{"version", "name", "colors", "semantic", "metadata"} {
		if _, ok := top[key]; !ok {
			return nil, apperrors.New(apperrors.TypeValidation, fmt.Sprintf("palette missing required key %q", key))
		}
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.TypeValidation, "palette has malformed fields", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the decoded document against the accepted shape.
func (d *Document) Validate() error {
	if d.Version < 1 {
		return apperrors.New(apperrors.TypeValidation, "palette version must be >= 1")
	}
	if strings.TrimSpace(d.Name) == "" {
		return apperrors.New(apperrors.TypeValidation, "palette name is required")
	}

	for _, family := range ColorFamilies {
		shades, ok := d.Colors[family]
		if !ok {
			return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("palette missing color family %q", family))
		}
		if len(shades) != len(ShadeKeys) {
			return apperrors.New(apperrors.TypeValidation,
				fmt.Sprintf("color family %q must have exactly %d shades, got %d", family, len(ShadeKeys), len(shades)))
		}
		for _, shade := range ShadeKeys {
			value, ok := shades[shade]
			if !ok {
				return apperrors.New(apperrors.TypeValidation, fmt.Sprintf("color family %q missing shade %q", family, shade))
			}
			if !hexColor.MatchString(value) {
				return apperrors.New(apperrors.TypeValidation,
					fmt.Sprintf("color %s.%s is not a valid hex color: %q", family, shade, value))
			}
		}
	}
	if len(d.Colors) != len(ColorFamilies) {
		extras := extraFamilies(d.Colors)
		return apperrors.New(apperrors.TypeValidation,
			fmt.Sprintf("palette has unexpected color families: %s", strings.Join(extras, ", ")))
	}

	for name, value := range d.Semantic {
		if !hexColor.MatchString(value) {
			return apperrors.New(apperrors.TypeValidation,
				fmt.Sprintf("semantic color %q is not a valid hex color: %q", name, value))
		}
	}
	return nil
}

func extraFamilies(colors map[string]map[string]string) []string {
	known := make(map[string]bool, len(ColorFamilies))
	for _, f := range ColorFamilies {
		known[f] = true
	}
	var extras []string
	for f := range colors {
		if !known[f] {
			extras = append(extras, f)
		}
	}
	sort.Strings(extras)
	return extras
}
