package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"blessyou/constants"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

func HomePage(w http.ResponseWriter, r *http.Request) {
	categories, err := GetCategories()
	if err != nil {
		http.Error(w, "Error loading categories", http.StatusInternalServerError)
		return
	}

	featured := true
	featuredFilters := BlessingFilters{IsFeatured: &featured, Limit: constants.DEFAULT_PAGE_SIZE}
	featuredBlessings, ok := catalogCache.GetBlessings(featuredFilters)
	if !ok {
		featuredBlessings = GetBlessings(featuredFilters)
		catalogCache.SetBlessings(featuredFilters, featuredBlessings)
	}

	renderPage(w, r, "home", struct {
		Categories []Category
		Featured   []Blessing
		Trending   []Blessing
	}{categories, featuredBlessings, GetTrendingBlessings(6)})
}

// GetTrendingBlessings lists the most-shared active blessings. Same
// error-swallowing policy as GetBlessings.
func GetTrendingBlessings(limit int) []Blessing {
	var blessings []Blessing
	err := db.Preload("Category").
		Where("is_active = ?", true).
		Order("share_count DESC").
		Limit(limit).
		Find(&blessings).Error
	if err != nil {
		return []Blessing{}
	}
	return blessings
}

func CategoryPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	category, err := GetCategoryBySlug(slug)
	if err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	filters := BlessingFilters{
		CategoryID:  category.ID,
		ContentType: r.URL.Query().Get("type"),
		Limit:       constants.DEFAULT_PAGE_SIZE,
		Offset:      (page - 1) * constants.DEFAULT_PAGE_SIZE,
	}
	blessings, ok := catalogCache.GetBlessings(filters)
	if !ok {
		blessings = GetBlessings(filters)
		catalogCache.SetBlessings(filters, blessings)
	}

	renderPage(w, r, "category", struct {
		Category    *Category
		Subcategory *Subcategory
		Blessings   []Blessing
		Page        int
	}{category, nil, blessings, page})
}

func SubcategoryPage(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "slug")
	subcategorySlug := chi.URLParam(r, "subcategory")

	category, err := GetCategoryBySlug(categorySlug)
	if err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}
	subcategory, err := GetSubcategoryBySlug(categorySlug, subcategorySlug)
	if err != nil {
		http.Error(w, "Subcategory not found", http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	filters := BlessingFilters{
		CategoryID:    category.ID,
		SubcategoryID: subcategory.ID,
		Limit:         constants.DEFAULT_PAGE_SIZE,
		Offset:        (page - 1) * constants.DEFAULT_PAGE_SIZE,
	}

	renderPage(w, r, "category", struct {
		Category    *Category
		Subcategory *Subcategory
		Blessings   []Blessing
		Page        int
	}{category, subcategory, GetBlessings(filters), page})
}

func BlessingPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	blessing, err := GetBlessingBySlug(slug)
	if err != nil {
		http.Error(w, "Blessing not found", http.StatusNotFound)
		return
	}

	IncrementBlessingViewCount(blessing.ID)

	isFavorite := false
	if user := getSignedInUserOrNil(r); user != nil {
		isFavorite = IsFavorite(user.ID, blessing.ID)
	}

	renderPage(w, r, "blessing", struct {
		Blessing   *Blessing
		ShareURLs  ShareURLs
		IsFavorite bool
	}{blessing, BuildShareURLs(blessing), isFavorite})
}

func SearchPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))

	filters := SearchFilters{
		Query:        query.Get("q"),
		CategorySlug: query.Get("category"),
		ContentType:  query.Get("type"),
		Sort:         query.Get("sort"),
		Order:        query.Get("order"),
		Page:         page,
		Limit:        constants.DEFAULT_PAGE_SIZE,
	}

	result, ok := catalogCache.GetSearch(filters)
	if !ok {
		result = SearchBlessings(filters)
		catalogCache.SetSearch(filters, result)
	}

	renderPage(w, r, "search", struct {
		Query  string
		Result SearchResult
		Page   int
	}{filters.Query, result, filters.Page})
}

// BlessingAPIHandler serves GET /api/blessings/{idOrSlug}. The parameter is
// tried as an id first, then as a slug, covering both of the original API
// routes with one pattern.
func BlessingAPIHandler(w http.ResponseWriter, r *http.Request) {
	idOrSlug := chi.URLParam(r, "idOrSlug")

	blessing, err := GetBlessingByID(idOrSlug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		blessing, err = GetBlessingBySlug(idOrSlug)
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "blessing not found"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":           blessing.ID,
		"title":        blessing.Title,
		"slug":         blessing.Slug,
		"content":      blessing.Content,
		"content_type": blessing.ContentType,
		"author":       blessing.Author,
		"view_count":   blessing.ViewCount,
		"share_count":  blessing.ShareCount,
		"created_at":   blessing.CreatedAt,
	})
}

// ShareAPIHandler records a share event: POST /api/share with a JSON body.
func ShareAPIHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BlessingID      string  `json:"blessing_id"`
		Platform        string  `json:"platform"`
		CategorySlug    *string `json:"category_slug"`
		SubcategorySlug *string `json:"subcategory_slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.BlessingID == "" || payload.Platform == "" {
		http.Error(w, "blessing_id and platform are required", http.StatusBadRequest)
		return
	}

	var userAgent, referrer *string
	if ua := r.UserAgent(); ua != "" {
		userAgent = &ua
	}
	if ref := r.Referer(); ref != "" {
		referrer = &ref
	}

	if err := TrackShare(payload.BlessingID, payload.Platform, payload.CategorySlug, payload.SubcategorySlug, userAgent, referrer); err != nil {
		http.Error(w, "Error recording share", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func FavoritesPage(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)
	favorites, err := GetUserFavorites(user.ID)
	if err != nil {
		http.Error(w, "Error fetching favorites", http.StatusInternalServerError)
		return
	}
	renderPage(w, r, "favorites", favorites)
}

func PostAddFavorite(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)
	blessingID := r.FormValue("blessing_id")
	if err := AddFavorite(user.ID, blessingID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/favorites", http.StatusSeeOther)
}

func PostRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)
	blessingID := r.FormValue("blessing_id")
	if err := RemoveFavorite(user.ID, blessingID); err != nil {
		http.Error(w, "Error removing favorite", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/favorites", http.StatusSeeOther)
}

func RobotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\nDisallow: /profile\nDisallow: /favorites\n\nSitemap: %s/sitemap.xml\n", constants.PUBLIC_URL)
}

// SitemapHandler emits a minimal sitemap over categories, blessings and
// public walls.
func SitemapHandler(w http.ResponseWriter, r *http.Request) {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")

	writeURL := func(path string) {
		sb.WriteString("  <url><loc>" + constants.PUBLIC_URL + path + "</loc></url>\n")
	}
	writeURL("/")
	writeURL("/search")
	writeURL("/wish")

	if categories, err := GetCategories(); err == nil {
		for _, category := range categories {
			writeURL("/categories/" + category.Slug)
			for _, subcategory := range category.Subcategories {
				writeURL("/categories/" + category.Slug + "/" + subcategory.Slug)
			}
		}
	}

	var slugs []string
	if err := db.Model(&Blessing{}).Where("is_active = ?", true).Pluck("slug", &slugs).Error; err == nil {
		for _, slug := range slugs {
			writeURL("/blessings/" + slug)
		}
	}

	if walls, err := GetPublicWishWalls(constants.MAX_WISHES_TO_SHOW, 0); err == nil {
		for _, wall := range walls {
			writeURL("/wish/" + wall.Slug)
		}
	}

	sb.WriteString("</urlset>\n")
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(sb.String()))
}
