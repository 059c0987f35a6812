package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPaletteDefaultsWhenPathEmpty(t *testing.T) {
	palette, err := LoadPalette("")
	require.NoError(t, err)
	assert.Equal(t, "#4A90D9", palette.Color("appointments"))
	assert.Equal(t, "#8E8E93", palette.Color("unknown"))
}

func TestLoadPaletteMissingFileFallsBack(t *testing.T) {
	palette, err := LoadPalette(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPalette().Colors, palette.Colors)
}

func TestLoadPaletteOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	body := "colors:\n  Birthdays: \"#000000\"\n  medications: \"\"\nfallback: \"#111111\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	palette, err := LoadPalette(path)
	require.NoError(t, err)
	assert.Equal(t, "#000000", palette.Color("birthdays"))
	assert.Equal(t, "#7ED321", palette.Color("medications"))
	assert.Equal(t, "#111111", palette.Color("other"))
}

func TestLoadPaletteRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte("colors: [unterminated"), 0o600))

	_, err := LoadPalette(path)
	require.Error(t, err)
}
