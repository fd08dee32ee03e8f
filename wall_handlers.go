package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"blessyou/constants"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// fetchVisibleWall resolves a wall slug for a request, folding "absent",
// "soft-deleted" and "forbidden" into the same 404 so private walls don't
// leak their existence. Returns nil after writing the response on failure.
func fetchVisibleWall(w http.ResponseWriter, r *http.Request) *WishWall {
	slug := chi.URLParam(r, "slug")
	wall, err := GetWishWallBySlug(slug, signedInUserID(r))
	if err != nil || !wall.IsActive {
		http.Error(w, "Wish wall not found", http.StatusNotFound)
		return nil
	}
	return wall
}

// WishWallDirectory lists public walls newest-first, paginated.
func WishWallDirectory(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	walls, err := GetPublicWishWalls(constants.WALL_PAGE_SIZE, (page-1)*constants.WALL_PAGE_SIZE)
	if err != nil {
		http.Error(w, "Error fetching wish walls", http.StatusInternalServerError)
		return
	}

	renderPage(w, r, "wall_directory", struct {
		Walls    []WishWall
		Page     int
		NextPage int
	}{walls, page, page + 1})
}

// WishWallPage renders one wall with its wishes. View counts are best-effort
// and bumped on every render.
func WishWallPage(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}

	matchedOrigin, allowed := checkOriginAllowed(r, wall.AllowedOrigins)
	if !allowed {
		http.Error(w, "This wall cannot be embedded from your site", http.StatusForbidden)
		return
	}
	setOriginHeaders(w, wall.AllowedOrigins, matchedOrigin, true)

	IncrementWallViewCount(wall.ID)

	wishes, err := GetWallWishes(wall.ID, signedInUserID(r))
	if err != nil {
		http.Error(w, "Error fetching wishes", http.StatusInternalServerError)
		return
	}
	catalogCache.SetWishCount(wall.ID, int64(len(wishes)))

	user := getSignedInUserOrNil(r)
	isOwner := user != nil && wall.UserID != nil && *wall.UserID == user.ID

	renderPage(w, r, "wall", struct {
		Wall      *WishWall
		Style     ThemeStyle
		Wishes    []WallWish
		IsOwner   bool
		ShareURLs ShareURLs
	}{wall, WallTheme(wall.Theme).Style(), wishes, isOwner, BuildWallShareURLs(wall)})
}

func GetCreateWishWall(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, "create_wall", nil)
}

// PostCreateWishWall handles the wall creation form. The slug is derived
// here (slugify + uniqueness probe) and handed to CreateWishWall
// pre-computed; a concurrent duplicate still dies on the slug index and the
// storage error is surfaced verbatim.
func PostCreateWishWall(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.FormValue("title"))
	creatorName := strings.TrimSpace(r.FormValue("creator_name"))
	if title == "" || creatorName == "" {
		http.Error(w, "Title and your name are required", http.StatusBadRequest)
		return
	}

	baseSlug := Slugify(title)
	if baseSlug == "" {
		http.Error(w, "Title must contain at least one letter or number", http.StatusBadRequest)
		return
	}
	slug, err := GenerateUniqueSlug(baseSlug)
	if err != nil {
		http.Error(w, "Error creating wish wall", http.StatusInternalServerError)
		return
	}

	input := CreateWishWallInput{
		Title:          title,
		Slug:           slug,
		Theme:          r.FormValue("theme"),
		OpeningMessage: r.FormValue("opening_message"),
		Privacy:        r.FormValue("privacy"),
		CreatorName:    creatorName,
	}
	if cover := strings.TrimSpace(r.FormValue("cover_image_url")); cover != "" {
		input.CoverImageURL = &cover
	}
	if signature := strings.TrimSpace(r.FormValue("creator_signature")); signature != "" {
		input.CreatorSignature = &signature
	}
	if user := getSignedInUserOrNil(r); user != nil {
		input.UserID = &user.ID
	}

	wall, err := CreateWishWall(input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/wish/"+wall.Slug, http.StatusSeeOther)
}

// PostWallWish handles wish submission on a wall. Anonymity is enforced
// here, on the client side of the domain layer: when the anonymous box is
// checked the author name is replaced before CreateWallWish ever sees it.
func PostWallWish(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}

	if _, allowed := checkOriginAllowed(r, wall.AllowedOrigins); !allowed {
		http.Error(w, "Submissions are not accepted from your site", http.StatusForbidden)
		return
	}

	if powEnabled() {
		challenge := r.FormValue("pow_challenge")
		nonce := r.FormValue("pow_nonce")
		if !powChallengeStore.VerifyPow(challenge, nonce, wall.ID) {
			http.Error(w, "Invalid proof of work", http.StatusBadRequest)
			return
		}
	}

	authorName := strings.TrimSpace(r.FormValue("author_name"))
	isAnonymous := r.FormValue("is_anonymous") == "on"
	if isAnonymous {
		authorName = constants.ANONYMOUS_AUTHOR_NAME
	}
	if authorName == "" {
		http.Error(w, "Your name is required", http.StatusBadRequest)
		return
	}

	input := CreateWallWishInput{
		WallID:      wall.ID,
		AuthorName:  authorName,
		Content:     r.FormValue("content"),
		IsAnonymous: isAnonymous,
	}
	if imageURL := strings.TrimSpace(r.FormValue("image_url")); imageURL != "" {
		input.ImageURL = &imageURL
	}
	if emoji := strings.TrimSpace(r.FormValue("emoji")); emoji != "" {
		input.Emoji = &emoji
	}
	if user := getSignedInUserOrNil(r); user != nil {
		input.UserID = &user.ID
	}

	wish, err := CreateWallWish(input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogCache.InvalidateWall(wall.ID)
	notifyWallOwner(wall, wish)

	http.Redirect(w, r, "/wish/"+wall.Slug, http.StatusSeeOther)
}

// PostToggleWishLike flips a like and answers JSON. Signed-in users are
// identified by user id, anonymous visitors by client IP.
func PostToggleWishLike(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}
	wishID := chi.URLParam(r, "wishID")

	userID := signedInUserID(r)
	ipAddress := ""
	if userID == "" {
		ipAddress = clientIP(r)
	}

	result, err := ToggleWishLike(wishID, wall.ID, userID, ipAddress)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Wish not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error toggling like", http.StatusInternalServerError)
		return
	}

	var wish WallWish
	likeCount := int64(0)
	if db.First(&wish, "id = ?", wishID).Error == nil {
		likeCount = wish.LikeCount
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"liked":      result.Liked,
		"like_count": likeCount,
	})
}

// WallWishCountHandler serves GET /api/walls/{slug}/wish-count, a small
// payload for embed badges. Counts are served from the catalog cache and
// recomputed on a miss.
func WallWishCountHandler(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}

	count, ok := catalogCache.GetWishCount(wall.ID)
	if !ok {
		err := db.Model(&WallWish{}).Where("wall_id = ? AND is_active = ?", wall.ID, true).Count(&count).Error
		if err != nil {
			http.Error(w, "Error counting wishes", http.StatusInternalServerError)
			return
		}
		catalogCache.SetWishCount(wall.ID, count)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"wish_count": count})
}

func PostWallWishReply(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}
	wishID := chi.URLParam(r, "wishID")

	authorName := strings.TrimSpace(r.FormValue("author_name"))
	if authorName == "" {
		http.Error(w, "Your name is required", http.StatusBadRequest)
		return
	}

	input := CreateWallWishReplyInput{
		WishID:     wishID,
		WallID:     wall.ID,
		AuthorName: authorName,
		Content:    r.FormValue("content"),
	}
	if user := getSignedInUserOrNil(r); user != nil {
		input.UserID = &user.ID
	}

	if _, err := CreateWallWishReply(input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/wish/"+wall.Slug, http.StatusSeeOther)
}

func GetEditWishWall(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}
	user := getSignedInUserOrNil(r)
	if wall.UserID == nil || *wall.UserID != user.ID {
		http.Error(w, "Wish wall not found", http.StatusNotFound)
		return
	}
	renderPage(w, r, "edit_wall", wall)
}

func PostEditWishWall(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	formValue := func(name string) *string {
		if !r.Form.Has(name) {
			return nil
		}
		v := r.FormValue(name)
		return &v
	}

	updates := WishWallUpdates{
		Title:            formValue("title"),
		Theme:            formValue("theme"),
		OpeningMessage:   formValue("opening_message"),
		Privacy:          formValue("privacy"),
		CreatorSignature: formValue("creator_signature"),
		AllowedOrigins:   formValue("allowed_origins"),
	}

	updated, err := UpdateWishWall(wall.ID, signedInUserID(r), updates)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/wish/"+updated.Slug, http.StatusSeeOther)
}

func PostDeleteWishWall(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}

	if err := DeleteWishWall(wall.ID, signedInUserID(r)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	catalogCache.InvalidateWall(wall.ID)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// PostDeleteWallWish lets the wall owner take down a single wish.
func PostDeleteWallWish(w http.ResponseWriter, r *http.Request) {
	wall := fetchVisibleWall(w, r)
	if wall == nil {
		return
	}
	user := getSignedInUserOrNil(r)
	if wall.UserID == nil || user == nil || *wall.UserID != user.ID {
		http.Error(w, "Only the wall owner can remove wishes", http.StatusForbidden)
		return
	}

	wishID := chi.URLParam(r, "wishID")
	if err := DeleteWallWish(wishID, wall.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Wish not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Error removing wish", http.StatusInternalServerError)
		return
	}

	catalogCache.InvalidateWall(wall.ID)
	http.Redirect(w, r, "/wish/"+wall.Slug, http.StatusSeeOther)
}
