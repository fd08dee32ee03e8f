package main

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"blessyou/constants"

	"gorm.io/gorm"
)

// IncrementShareCount is the dedicated atomic increment for a blessing's
// share counter.
func IncrementShareCount(blessingID string) error {
	return db.Model(&Blessing{}).Where("id = ?", blessingID).
		UpdateColumn("share_count", gorm.Expr("share_count + 1")).Error
}

// TrackShare records a share event then bumps the blessing's share_count.
// The two writes are sequential and not wrapped in a transaction; when the
// increment fails after the analytics insert the counter under-reports,
// accepted as telemetry drift.
func TrackShare(blessingID, platform string, categorySlug, subcategorySlug, userAgent, referrer *string) error {
	event := ShareAnalytic{
		BlessingID:      blessingID,
		Platform:        platform,
		CategorySlug:    categorySlug,
		SubcategorySlug: subcategorySlug,
		UserAgent:       userAgent,
		Referrer:        referrer,
		SharedAt:        time.Now().UTC(),
	}
	if err := db.Create(&event).Error; err != nil {
		return err
	}

	if err := IncrementShareCount(blessingID); err != nil {
		log.Printf("WARN: Failed to increment share count for blessing %s: %v", blessingID, err)
	}
	return nil
}

// ShareURLs holds ready-to-open share links for a blessing.
type ShareURLs struct {
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	WhatsApp  string `json:"whatsapp"`
	LinkedIn  string `json:"linkedin"`
	Pinterest string `json:"pinterest"`
}

func BuildShareURLs(blessing *Blessing) ShareURLs {
	pageURL := constants.PUBLIC_URL + "/blessings/" + blessing.Slug
	escaped := url.QueryEscape(pageURL)
	title := url.QueryEscape(blessing.Title)

	media := ""
	if blessing.PinterestImageURL != nil {
		media = url.QueryEscape(*blessing.PinterestImageURL)
	} else if blessing.OgImageURL != nil {
		media = url.QueryEscape(*blessing.OgImageURL)
	}

	return ShareURLs{
		Facebook:  "https://www.facebook.com/sharer/sharer.php?u=" + escaped,
		Twitter:   fmt.Sprintf("https://twitter.com/intent/tweet?url=%s&text=%s", escaped, title),
		WhatsApp:  fmt.Sprintf("https://wa.me/?text=%s%%20%s", title, escaped),
		LinkedIn:  "https://www.linkedin.com/sharing/share-offsite/?url=" + escaped,
		Pinterest: fmt.Sprintf("https://pinterest.com/pin/create/button/?url=%s&media=%s&description=%s", escaped, media, title),
	}
}

// BuildWallShareURLs builds share links for a wish wall page.
func BuildWallShareURLs(wall *WishWall) ShareURLs {
	pageURL := constants.PUBLIC_URL + "/wish/" + wall.Slug
	escaped := url.QueryEscape(pageURL)
	title := url.QueryEscape(wall.Title)

	return ShareURLs{
		Facebook: "https://www.facebook.com/sharer/sharer.php?u=" + escaped,
		Twitter:  fmt.Sprintf("https://twitter.com/intent/tweet?url=%s&text=%s", escaped, title),
		WhatsApp: fmt.Sprintf("https://wa.me/?text=%s%%20%s", title, escaped),
		LinkedIn: "https://www.linkedin.com/sharing/share-offsite/?url=" + escaped,
	}
}
