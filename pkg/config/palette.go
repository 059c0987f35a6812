package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Palette maps calendar categories (appointments, countdowns, ...) to display colors.
type Palette struct {
	Colors map[string]string `yaml:"colors"`
	// Fallback is used for categories missing from Colors.
	Fallback string `yaml:"fallback"`
}

// DefaultPalette returns the built-in category colors.
func DefaultPalette() Palette {
	return Palette{
		Colors: map[string]string{
			"appointments": "#4A90D9",
			"countdowns":   "#F5A623",
			"birthdays":    "#E84D8A",
			"medications":  "#7ED321",
			"todo_lists":   "#9B59B6",
		},
		Fallback: "#8E8E93",
	}
}

// LoadPalette reads a YAML palette file and overlays it on the defaults.
// An empty path or a missing file yields the defaults.
func LoadPalette(path string) (Palette, error) {
	palette := DefaultPalette()
	if path == "" {
		return palette, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return palette, nil
		}
		return palette, fmt.Errorf("read palette %s: %w", path, err)
	}

	var file Palette
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return palette, fmt.Errorf("parse palette %s: %w", path, err)
	}

	for key, color := range file.Colors {
		color = strings.TrimSpace(color)
		if color == "" {
			continue
		}
		palette.Colors[strings.ToLower(strings.TrimSpace(key))] = color
	}
	if strings.TrimSpace(file.Fallback) != "" {
		palette.Fallback = strings.TrimSpace(file.Fallback)
	}
	return palette, nil
}

// Color returns the color for a category.
func (p Palette) Color(category string) string {
	if color, ok := p.Colors[category]; ok {
		return color
	}
	return p.Fallback
}
