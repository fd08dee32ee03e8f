package main

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category is a top-level blessing category. Seeded once, read-mostly.
type Category struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string
	Slug        string `gorm:"uniqueIndex"`
	Description string
	Icon        string
	SeoKeywords string
	SortOrder   int
	CreatedAt   time.Time

	Subcategories []Subcategory
}

type Subcategory struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	CategoryID  string `gorm:"index;uniqueIndex:idx_subcategory_slug"`
	Name        string
	Slug        string `gorm:"uniqueIndex:idx_subcategory_slug"`
	Description string
	SeoKeywords string
	SortOrder   int
	CreatedAt   time.Time
}

// Blessing is a single piece of catalog content. ContentType and IsActive
// jointly gate visibility in every listing query.
type Blessing struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	CategoryID    string  `gorm:"index"`
	SubcategoryID *string `gorm:"index"`
	Title         string
	Slug          string `gorm:"uniqueIndex"`
	Content       string `gorm:"type:text"`
	ContentType   string // short, long, image
	Author        *string
	Occasion      *string
	LanguageStyle string // formal, casual

	MetaTitle         *string
	MetaDescription   *string
	MetaKeywords      *string
	OgImageURL        *string
	PinterestImageURL *string

	ViewCount  int64 `gorm:"default:0"`
	ShareCount int64 `gorm:"default:0"`
	IsFeatured bool  `gorm:"default:false"`
	IsActive   bool  `gorm:"default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Category    *Category    `gorm:"foreignKey:CategoryID"`
	Subcategory *Subcategory `gorm:"foreignKey:SubcategoryID"`
}

// ShareAnalytic records a single share event for a blessing.
type ShareAnalytic struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	BlessingID      string `gorm:"index"`
	Platform        string
	CategorySlug    *string
	SubcategorySlug *string
	UserAgent       *string
	Referrer        *string
	SharedAt        time.Time
}

// User is a site account. Sessions are a single rotating token, held in a
// cookie and matched against SessionToken.
type User struct {
	ID                 string         `gorm:"type:uuid;primaryKey"`
	Email              string         `gorm:"uniqueIndex"`
	FullName           string
	PasswordHash       datatypes.JSON `gorm:"type:json"`
	SessionToken       string         `gorm:"index"`
	EmailNotifications bool           `gorm:"default:false"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LoginAttempt is an append-only ledger of sign-in attempts.
type LoginAttempt struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"index"`
	IPAddress string
	Success   bool
	CreatedAt time.Time
}

type UserFavorite struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	UserID     string `gorm:"uniqueIndex:idx_user_blessing"`
	BlessingID string `gorm:"uniqueIndex:idx_user_blessing"`
	CreatedAt  time.Time

	Blessing *Blessing `gorm:"foreignKey:BlessingID"`
}

// WishWall is a user-created board that collects wishes from visitors.
// Soft-deleted via IsActive; never hard-deleted.
type WishWall struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	Title            string
	Slug             string `gorm:"uniqueIndex"`
	Theme            string // flower, star, gift
	CoverImageURL    *string
	OpeningMessage   string `gorm:"type:text"`
	Privacy          string // public, private, link_only
	CreatorName      string
	CreatorAvatarURL *string
	CreatorSignature *string
	AllowedOrigins   string // comma-separated embed origins, empty allows all
	ViewCount        int64  `gorm:"default:0"`
	WishCount        int64  `gorm:"default:0"`
	UserID           *string `gorm:"index"`
	IsActive         bool    `gorm:"default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Wishes []WallWish `gorm:"foreignKey:WallID"`
}

type WallWish struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	WallID      string `gorm:"index"`
	AuthorName  string
	Content     string `gorm:"type:text"`
	ImageURL    *string
	Emoji       *string
	IsAnonymous bool    `gorm:"default:false"`
	LikeCount   int64   `gorm:"default:0"`
	ReplyCount  int64   `gorm:"default:0"`
	UserID      *string `gorm:"index"`
	IsActive    bool    `gorm:"default:true"`
	CreatedAt   time.Time

	Replies []WallWishReply `gorm:"foreignKey:WishID"`
	IsLiked bool            `gorm:"-"`
}

// WallWishLike is the like toggle ledger. Exactly one of UserID/IPAddress is
// set; the partial unique indexes make a raced duplicate insert fail at the
// store instead of double-counting (PG treats NULLs as distinct, so each
// index only bites for rows carrying that identity kind).
type WallWishLike struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	WishID    string  `gorm:"index;uniqueIndex:idx_like_user;uniqueIndex:idx_like_ip"`
	UserID    *string `gorm:"uniqueIndex:idx_like_user"`
	IPAddress *string `gorm:"uniqueIndex:idx_like_ip"`
	CreatedAt time.Time
}

// WallWishReply is a single-level reply under a wish. Replies cannot be
// replied to.
type WallWishReply struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	WishID     string `gorm:"index"`
	AuthorName string
	Content    string
	UserID     *string
	IsActive   bool `gorm:"default:true"`
	CreatedAt  time.Time
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (c *Category) BeforeCreate(*gorm.DB) error      { assignID(&c.ID); return nil }
func (s *Subcategory) BeforeCreate(*gorm.DB) error   { assignID(&s.ID); return nil }
func (b *Blessing) BeforeCreate(*gorm.DB) error      { assignID(&b.ID); return nil }
func (s *ShareAnalytic) BeforeCreate(*gorm.DB) error { assignID(&s.ID); return nil }
func (u *User) BeforeCreate(*gorm.DB) error          { assignID(&u.ID); return nil }
func (l *LoginAttempt) BeforeCreate(*gorm.DB) error  { assignID(&l.ID); return nil }
func (f *UserFavorite) BeforeCreate(*gorm.DB) error  { assignID(&f.ID); return nil }
func (w *WishWall) BeforeCreate(*gorm.DB) error      { assignID(&w.ID); return nil }
func (w *WallWish) BeforeCreate(*gorm.DB) error      { assignID(&w.ID); return nil }
func (l *WallWishLike) BeforeCreate(*gorm.DB) error  { assignID(&l.ID); return nil }
func (r *WallWishReply) BeforeCreate(*gorm.DB) error { assignID(&r.ID); return nil }
