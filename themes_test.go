package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWallTheme(t *testing.T) {
	for _, valid := range []string{"flower", "star", "gift"} {
		theme, err := ParseWallTheme(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(theme))
	}

	_, err := ParseWallTheme("rainbow")
	assert.Error(t, err)
	_, err = ParseWallTheme("")
	assert.Error(t, err)
	_, err = ParseWallTheme("Flower")
	assert.Error(t, err)
}

func TestParseWallPrivacy(t *testing.T) {
	for _, valid := range []string{"public", "private", "link_only"} {
		privacy, err := ParseWallPrivacy(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, string(privacy))
	}

	_, err := ParseWallPrivacy("secret")
	assert.Error(t, err)
}

func TestThemeStylesAreComplete(t *testing.T) {
	for _, theme := range []WallTheme{ThemeFlower, ThemeStar, ThemeGift} {
		style := theme.Style()
		assert.NotEmpty(t, style.Emoji, "theme %s", theme)
		assert.NotEmpty(t, style.Accent, "theme %s", theme)
		assert.NotEmpty(t, style.Background, "theme %s", theme)
		assert.NotEmpty(t, style.Tagline, "theme %s", theme)
	}
}
