package main

import "fmt"

// WallTheme is the visual theme of a wish wall.
type WallTheme string

const (
	ThemeFlower WallTheme = "flower"
	ThemeStar   WallTheme = "star"
	ThemeGift   WallTheme = "gift"
)

// WallPrivacy controls who can fetch a wall by slug.
type WallPrivacy string

const (
	PrivacyPublic   WallPrivacy = "public"
	PrivacyPrivate  WallPrivacy = "private"
	PrivacyLinkOnly WallPrivacy = "link_only"
)

// ThemeStyle is the presentation data a template needs to render a themed
// wall. Kept as a switch rather than a map so an unhandled theme is a visible
// empty page in dev instead of a silent fallback.
type ThemeStyle struct {
	Emoji      string
	Accent     string
	Background string
	Tagline    string
}

// ParseWallTheme validates a theme value at the boundary. Everything past
// wall creation can assume the theme is one of the three constants.
func ParseWallTheme(s string) (WallTheme, error) {
	switch WallTheme(s) {
	case ThemeFlower:
		return ThemeFlower, nil
	case ThemeStar:
		return ThemeStar, nil
	case ThemeGift:
		return ThemeGift, nil
	}
	return "", fmt.Errorf("unknown wall theme %q", s)
}

func ParseWallPrivacy(s string) (WallPrivacy, error) {
	switch WallPrivacy(s) {
	case PrivacyPublic:
		return PrivacyPublic, nil
	case PrivacyPrivate:
		return PrivacyPrivate, nil
	case PrivacyLinkOnly:
		return PrivacyLinkOnly, nil
	}
	return "", fmt.Errorf("unknown wall privacy %q", s)
}

func (t WallTheme) Style() ThemeStyle {
	switch t {
	case ThemeFlower:
		return ThemeStyle{
			Emoji:      "🌸",
			Accent:     "#e8578a",
			Background: "#fff0f5",
			Tagline:    "A garden of good wishes",
		}
	case ThemeStar:
		return ThemeStyle{
			Emoji:      "⭐",
			Accent:     "#d9a514",
			Background: "#fffbe8",
			Tagline:    "Wishes written in the stars",
		}
	case ThemeGift:
		return ThemeStyle{
			Emoji:      "🎁",
			Accent:     "#2f855a",
			Background: "#effff4",
			Tagline:    "Every wish is a gift",
		}
	}
	// Unreachable for walls that passed ParseWallTheme.
	return ThemeStyle{}
}
