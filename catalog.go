package main

import (
	"log"
	"math"
	"regexp"
	"strings"

	"blessyou/constants"

	"gorm.io/gorm"
)

// BlessingFilters narrows a catalog listing. Zero values mean "no filter".
type BlessingFilters struct {
	CategoryID    string
	SubcategoryID string
	ContentType   string
	IsFeatured    *bool
	Limit         int
	Offset        int
}

// SearchFilters drives full-text search over blessing content.
type SearchFilters struct {
	Query        string
	CategorySlug string
	ContentType  string
	Sort         string
	Order        string
	Page         int
	Limit        int
}

// SearchResult is the uniform shape returned by SearchBlessings. It is also
// the empty shape returned when the query sanitizes away or the store errors;
// search never propagates failures to its caller.
type SearchResult struct {
	Blessings  []Blessing
	Total      int64
	TotalPages int
}

func GetCategories() ([]Category, error) {
	var categories []Category
	err := db.Preload("Subcategories", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order")
	}).Order("sort_order").Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func GetCategoryBySlug(slug string) (*Category, error) {
	var category Category
	err := db.Preload("Subcategories", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("sort_order")
	}).First(&category, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func GetSubcategoryBySlug(categorySlug, subcategorySlug string) (*Subcategory, error) {
	category, err := GetCategoryBySlug(categorySlug)
	if err != nil {
		return nil, err
	}
	var subcategory Subcategory
	err = db.First(&subcategory, "category_id = ? AND slug = ?", category.ID, subcategorySlug).Error
	if err != nil {
		return nil, err
	}
	return &subcategory, nil
}

// GetBlessings lists active blessings newest-first. Unlike the single-row
// fetches below it swallows query errors into an empty slice; callers render
// an empty grid instead of an error page. Kept that way on purpose, see the
// error-policy notes in DESIGN.md.
func GetBlessings(filters BlessingFilters) []Blessing {
	query := db.Model(&Blessing{}).
		Preload("Category").
		Preload("Subcategory").
		Where("is_active = ?", true)

	if filters.CategoryID != "" {
		query = query.Where("category_id = ?", filters.CategoryID)
	}
	if filters.SubcategoryID != "" {
		query = query.Where("subcategory_id = ?", filters.SubcategoryID)
	}
	if filters.ContentType != "" {
		query = query.Where("content_type = ?", filters.ContentType)
	}
	if filters.IsFeatured != nil {
		query = query.Where("is_featured = ?", *filters.IsFeatured)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset(filters.Offset)
	}

	var blessings []Blessing
	if err := query.Find(&blessings).Error; err != nil {
		log.Printf("Error listing blessings: %v", err)
		return []Blessing{}
	}
	return blessings
}

func GetBlessingBySlug(slug string) (*Blessing, error) {
	var blessing Blessing
	err := db.Preload("Category").Preload("Subcategory").
		First(&blessing, "slug = ? AND is_active = ?", slug, true).Error
	if err != nil {
		return nil, err
	}
	return &blessing, nil
}

func GetBlessingByID(id string) (*Blessing, error) {
	var blessing Blessing
	err := db.Preload("Category").Preload("Subcategory").
		First(&blessing, "id = ? AND is_active = ?", id, true).Error
	if err != nil {
		return nil, err
	}
	return &blessing, nil
}

// IncrementBlessingViewCount bumps the view counter in a single atomic
// UPDATE. Best-effort: failures are logged and never surfaced.
func IncrementBlessingViewCount(blessingID string) {
	err := db.Model(&Blessing{}).Where("id = ?", blessingID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	if err != nil {
		log.Printf("Error incrementing view count for blessing %s: %v", blessingID, err)
	}
}

var searchStripPattern = regexp.MustCompile(`[^\w\s]`)

// sanitizeSearchQuery turns raw user input into a tsquery-safe expression:
// everything outside [A-Za-z0-9_\s] becomes a space, whitespace collapses,
// and the remaining words are joined with the AND operator. Returns "" when
// nothing searchable survives.
func sanitizeSearchQuery(query string) string {
	cleaned := searchStripPattern.ReplaceAllString(query, " ")
	words := strings.Fields(strings.ToLower(cleaned))
	return strings.Join(words, " & ")
}

// applyContentSearch attaches the full-text predicate for the active driver.
// Postgres gets a real tsquery; sqlite (dev/tests) approximates the same
// AND-of-words contract with LIKE.
func applyContentSearch(query *gorm.DB, tsquery string) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return query.Where("to_tsvector('english', content) @@ to_tsquery('english', ?)", tsquery)
	}
	for _, word := range strings.Split(tsquery, " & ") {
		query = query.Where("content LIKE ?", "%"+word+"%")
	}
	return query
}

// Qualified with the table name: the category filter joins categories, which
// carries its own created_at.
var searchSortColumns = map[string]string{
	"created_at":  "blessings.created_at",
	"view_count":  "blessings.view_count",
	"share_count": "blessings.share_count",
}

// SearchBlessings runs a sanitized full-text search plus a separate count
// query for pagination math. An empty sanitized query short-circuits without
// touching the store. Errors degrade: a failed search returns the empty
// shape, a failed count falls back to a single page over the returned rows.
func SearchBlessings(filters SearchFilters) SearchResult {
	sanitized := sanitizeSearchQuery(filters.Query)
	if sanitized == "" {
		return SearchResult{Blessings: []Blessing{}}
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = constants.DEFAULT_PAGE_SIZE
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	base := func() *gorm.DB {
		query := db.Model(&Blessing{}).Where("blessings.is_active = ?", true)
		query = applyContentSearch(query, sanitized)
		if filters.CategorySlug != "" {
			query = query.Joins("JOIN categories ON categories.id = blessings.category_id").
				Where("categories.slug = ?", filters.CategorySlug)
		}
		if filters.ContentType != "" {
			query = query.Where("content_type = ?", filters.ContentType)
		}
		return query
	}

	sort, ok := searchSortColumns[filters.Sort]
	if !ok {
		sort = "blessings.created_at"
	}
	direction := "DESC"
	if filters.Order == "asc" {
		direction = "ASC"
	}

	var blessings []Blessing
	err := base().Preload("Category").Preload("Subcategory").
		Order(sort + " " + direction).
		Limit(limit).Offset((page - 1) * limit).
		Find(&blessings).Error
	if err != nil {
		log.Printf("Search error: %v", err)
		return SearchResult{Blessings: []Blessing{}}
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		log.Printf("Search count error: %v", err)
		return SearchResult{
			Blessings:  blessings,
			Total:      int64(len(blessings)),
			TotalPages: 1,
		}
	}

	return SearchResult{
		Blessings:  blessings,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}
