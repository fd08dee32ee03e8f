package main

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"blessyou/constants"

	"gorm.io/gorm"
)

// ErrWallPrivate is returned when a private wall is fetched by anyone other
// than its owner. Handlers render it as a plain 404 so the existence of
// private walls is not leaked.
var ErrWallPrivate = errors.New("this wish wall is private")

var (
	slugStripPattern  = regexp.MustCompile(`[^\w\s-]`)
	slugSpacesPattern = regexp.MustCompile(`\s+`)
	slugDashesPattern = regexp.MustCompile(`--+`)
)

// Slugify derives a URL slug from a wall title. Pure transform, no I/O.
func Slugify(text string) string {
	slug := strings.ToLower(text)
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = strings.TrimSpace(slug)
	slug = slugSpacesPattern.ReplaceAllString(slug, "-")
	slug = slugDashesPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// GenerateUniqueSlug probes wish_walls for a free slug, appending -1, -2, ...
// until one is found. The loop is unbounded; under concurrent creation with
// the same title both writers can see the same candidate as free, and the
// loser's insert fails on the slug unique index inside CreateWishWall.
func GenerateUniqueSlug(baseSlug string) (string, error) {
	slug := baseSlug
	counter := 1
	for {
		var count int64
		err := db.Model(&WishWall{}).Where("slug = ?", slug).Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", baseSlug, counter)
		counter++
	}
}

type CreateWishWallInput struct {
	Title            string
	Slug             string
	Theme            string
	CoverImageURL    *string
	OpeningMessage   string
	Privacy          string
	CreatorName      string
	CreatorAvatarURL *string
	CreatorSignature *string
	AllowedOrigins   string
	UserID           *string
}

// CreateWishWall inserts a wall row. The slug must already be pre-computed
// unique by the caller; a constraint violation here is surfaced verbatim.
func CreateWishWall(input CreateWishWallInput) (*WishWall, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.New("wall title cannot be empty")
	}
	if len(input.Title) > constants.MAX_TITLE_LENGTH {
		return nil, errors.New("wall title is too long")
	}
	theme, err := ParseWallTheme(input.Theme)
	if err != nil {
		return nil, err
	}
	privacy, err := ParseWallPrivacy(input.Privacy)
	if err != nil {
		return nil, err
	}

	wall := WishWall{
		Title:            input.Title,
		Slug:             input.Slug,
		Theme:            string(theme),
		CoverImageURL:    input.CoverImageURL,
		OpeningMessage:   input.OpeningMessage,
		Privacy:          string(privacy),
		CreatorName:      input.CreatorName,
		CreatorAvatarURL: input.CreatorAvatarURL,
		CreatorSignature: input.CreatorSignature,
		AllowedOrigins:   input.AllowedOrigins,
		UserID:           input.UserID,
		IsActive:         true,
	}
	if err := db.Create(&wall).Error; err != nil {
		return nil, fmt.Errorf("failed to create wish wall: %w", err)
	}
	return &wall, nil
}

// GetWishWallBySlug fetches a wall by slug. Private walls are only handed to
// their owner; everyone else gets ErrWallPrivate. Soft-deleted walls are
// filtered by the caller via IsActive (wish visibility cascades from there).
func GetWishWallBySlug(slug string, userID string) (*WishWall, error) {
	var wall WishWall
	if err := db.First(&wall, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	if wall.Privacy == string(PrivacyPrivate) {
		if userID == "" || wall.UserID == nil || *wall.UserID != userID {
			return nil, ErrWallPrivate
		}
	}
	return &wall, nil
}

func GetPublicWishWalls(limit, offset int) ([]WishWall, error) {
	var walls []WishWall
	err := db.Where("privacy = ? AND is_active = ?", string(PrivacyPublic), true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&walls).Error
	return walls, err
}

func GetUserWishWalls(userID string) ([]WishWall, error) {
	var walls []WishWall
	err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&walls).Error
	return walls, err
}

// WishWallUpdates carries the owner-editable fields of a wall.
type WishWallUpdates struct {
	Title            *string
	Theme            *string
	OpeningMessage   *string
	Privacy          *string
	CreatorSignature *string
	AllowedOrigins   *string
}

// UpdateWishWall applies owner edits and touches updated_at. Only the owning
// user may mutate a wall.
func UpdateWishWall(id string, userID string, updates WishWallUpdates) (*WishWall, error) {
	var wall WishWall
	if err := db.First(&wall, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if wall.UserID == nil || *wall.UserID != userID {
		return nil, errors.New("only the wall owner can edit it")
	}

	if updates.Title != nil && strings.TrimSpace(*updates.Title) != "" {
		wall.Title = *updates.Title
	}
	if updates.Theme != nil {
		theme, err := ParseWallTheme(*updates.Theme)
		if err != nil {
			return nil, err
		}
		wall.Theme = string(theme)
	}
	if updates.Privacy != nil {
		privacy, err := ParseWallPrivacy(*updates.Privacy)
		if err != nil {
			return nil, err
		}
		wall.Privacy = string(privacy)
	}
	if updates.OpeningMessage != nil {
		wall.OpeningMessage = *updates.OpeningMessage
	}
	if updates.CreatorSignature != nil {
		wall.CreatorSignature = updates.CreatorSignature
	}
	if updates.AllowedOrigins != nil {
		origins, err := validateOrigins(*updates.AllowedOrigins)
		if err != nil {
			return nil, err
		}
		wall.AllowedOrigins = origins
	}

	if err := db.Save(&wall).Error; err != nil {
		return nil, err
	}
	return &wall, nil
}

// DeleteWishWall soft-deletes a wall. Wishes stay in place and become
// invisible through the wall's IsActive flag.
func DeleteWishWall(id string, userID string) error {
	var wall WishWall
	if err := db.First(&wall, "id = ?", id).Error; err != nil {
		return err
	}
	if wall.UserID == nil || *wall.UserID != userID {
		return errors.New("only the wall owner can delete it")
	}
	return db.Model(&wall).Update("is_active", false).Error
}

// IncrementWallViewCount bumps the wall view counter atomically. Fire and
// forget: view counts are best-effort, failures are logged only.
func IncrementWallViewCount(wallID string) {
	err := db.Model(&WishWall{}).Where("id = ?", wallID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		log.Printf("Error incrementing view count for wall %s: %v", wallID, err)
	}
}

type CreateWallWishInput struct {
	WallID      string
	AuthorName  string
	Content     string
	ImageURL    *string
	Emoji       *string
	IsAnonymous bool
	UserID      *string
}

// CreateWallWish inserts a wish and bumps the wall's wish_count in the same
// transaction. AuthorName is stored verbatim: when IsAnonymous is set the
// caller is expected to have already replaced the name, this function does
// not enforce it.
func CreateWallWish(input CreateWallWishInput) (*WallWish, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.New("wish content cannot be empty")
	}
	if len(input.Content) > constants.MAX_WISH_LENGTH {
		return nil, errors.New("wish content is too long")
	}

	wish := WallWish{
		WallID:      input.WallID,
		AuthorName:  input.AuthorName,
		Content:     input.Content,
		ImageURL:    input.ImageURL,
		Emoji:       input.Emoji,
		IsAnonymous: input.IsAnonymous,
		UserID:      input.UserID,
		IsActive:    true,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		var wallCount int64
		if err := tx.Model(&WishWall{}).Where("id = ? AND is_active = ?", input.WallID, true).Count(&wallCount).Error; err != nil {
			return err
		}
		if wallCount == 0 {
			return errors.New("wish wall not found")
		}
		if err := tx.Create(&wish).Error; err != nil {
			return err
		}
		return tx.Model(&WishWall{}).Where("id = ?", input.WallID).
			UpdateColumn("wish_count", gorm.Expr("wish_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &wish, nil
}

// GetWallWishes returns the active wishes of a wall newest-first with their
// replies preloaded. When userID is set a second query fetches that user's
// likes and annotates IsLiked by set membership; two round trips, as the
// original behaves.
func GetWallWishes(wallID string, userID string) ([]WallWish, error) {
	var wishes []WallWish
	err := db.Preload("Replies", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_active = ?", true).Order("created_at ASC")
	}).
		Where("wall_id = ? AND is_active = ?", wallID, true).
		Order("created_at DESC").
		Limit(constants.MAX_WISHES_TO_SHOW).
		Find(&wishes).Error
	if err != nil {
		return nil, err
	}

	if userID != "" && len(wishes) > 0 {
		wishIDs := make([]string, len(wishes))
		for i, wish := range wishes {
			wishIDs[i] = wish.ID
		}
		var likes []WallWishLike
		err := db.Where("user_id = ? AND wish_id IN ?", userID, wishIDs).Find(&likes).Error
		if err != nil {
			log.Printf("Error fetching likes for wall %s: %v", wallID, err)
		} else {
			liked := make(map[string]bool, len(likes))
			for _, like := range likes {
				liked[like.WishID] = true
			}
			for i := range wishes {
				wishes[i].IsLiked = liked[wishes[i].ID]
			}
		}
	}
	return wishes, nil
}

// DeleteWallWish soft-deletes a wish and decrements the wall's wish_count.
// The wish must belong to the given wall; an id smuggled in from another
// wall's page resolves to gorm.ErrRecordNotFound.
func DeleteWallWish(id, wallID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var wish WallWish
		if err := tx.First(&wish, "id = ? AND wall_id = ? AND is_active = ?", id, wallID, true).Error; err != nil {
			return err
		}
		if err := tx.Model(&wish).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&WishWall{}).Where("id = ?", wish.WallID).
			UpdateColumn("wish_count", gorm.Expr("wish_count - 1")).Error
	})
}

// LikeResult reports the state after a toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
}

// ToggleWishLike flips a like for one identity: exactly one of userID and
// ipAddress must be set. The wish must be an active wish of the given wall,
// so a like cannot be routed onto a private wall's wish through another
// wall's slug. The toggle is a conditional delete by identity inside a
// transaction; if the delete removes a row the like is withdrawn, otherwise
// a ledger row is inserted. like_count on the wish is maintained in the same
// transaction since no trigger layer exists under GORM. A raced duplicate
// insert dies on the ledger's unique index rather than double-counting.
func ToggleWishLike(wishID, wallID string, userID string, ipAddress string) (LikeResult, error) {
	if (userID == "") == (ipAddress == "") {
		return LikeResult{}, errors.New("exactly one of user ID or IP address is required")
	}

	identity := func(tx *gorm.DB) *gorm.DB {
		if userID != "" {
			return tx.Where("wish_id = ? AND user_id = ?", wishID, userID)
		}
		return tx.Where("wish_id = ? AND ip_address = ?", wishID, ipAddress)
	}

	var result LikeResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var wishCount int64
		if err := tx.Model(&WallWish{}).Where("id = ? AND wall_id = ? AND is_active = ?", wishID, wallID, true).Count(&wishCount).Error; err != nil {
			return err
		}
		if wishCount == 0 {
			return gorm.ErrRecordNotFound
		}

		deleted := identity(tx).Delete(&WallWishLike{})
		if deleted.Error != nil {
			return deleted.Error
		}
		if deleted.RowsAffected > 0 {
			result.Liked = false
			return tx.Model(&WallWish{}).Where("id = ?", wishID).
				UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
		}

		like := WallWishLike{WishID: wishID}
		if userID != "" {
			like.UserID = &userID
		} else {
			like.IPAddress = &ipAddress
		}
		if err := tx.Create(&like).Error; err != nil {
			return err
		}
		result.Liked = true
		return tx.Model(&WallWish{}).Where("id = ?", wishID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		return LikeResult{}, err
	}
	return result, nil
}

type CreateWallWishReplyInput struct {
	WishID     string
	WallID     string
	AuthorName string
	Content    string
	UserID     *string
}

// CreateWallWishReply inserts a one-level reply under a wish and bumps the
// wish's reply_count in the same transaction. The wish must be an active wish
// of the given wall. Replies cannot be replied to.
func CreateWallWishReply(input CreateWallWishReplyInput) (*WallWishReply, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, errors.New("reply content cannot be empty")
	}
	if len(input.Content) > constants.MAX_REPLY_LENGTH {
		return nil, errors.New("reply content is too long")
	}

	reply := WallWishReply{
		WishID:     input.WishID,
		AuthorName: input.AuthorName,
		Content:    input.Content,
		UserID:     input.UserID,
		IsActive:   true,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		var wishCount int64
		if err := tx.Model(&WallWish{}).Where("id = ? AND wall_id = ? AND is_active = ?", input.WishID, input.WallID, true).Count(&wishCount).Error; err != nil {
			return err
		}
		if wishCount == 0 {
			return errors.New("wish not found")
		}
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&WallWish{}).Where("id = ?", input.WishID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func GetWishReplies(wishID string) ([]WallWishReply, error) {
	var replies []WallWishReply
	err := db.Where("wish_id = ? AND is_active = ?", wishID, true).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}
