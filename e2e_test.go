package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testPort    = ":16987"
	testBaseURL = "http://localhost:16987"
	testDBFile  = "test_blessyou.db"
)

var (
	testServer *http.Server
	e2eDB      *gorm.DB
)

// TestMain sets up and tears down the test environment
func TestMain(m *testing.M) {
	if err := setupTestEnvironment(); err != nil {
		log.Fatalf("Failed to setup test environment: %v", err)
	}

	code := m.Run()

	teardownTestEnvironment()
	os.Exit(code)
}

func setupTestEnvironment() error {
	os.Remove(testDBFile)

	var err error
	e2eDB, err = gorm.Open(sqlite.Open("file:"+testDBFile+"?cache=shared&mode=rwc&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to test database: %w", err)
	}
	db = e2eDB

	if err := migrateModels(db); err != nil {
		return fmt.Errorf("failed to migrate test database: %w", err)
	}

	catalogCache, err = NewCatalogCache(1000, 5*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	powChallengeStore = NewChallengeStore()

	loadConfig()

	r := initRouter()
	testServer = &http.Server{
		Addr:    testPort,
		Handler: r,
	}

	go func() {
		if err := testServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	time.Sleep(500 * time.Millisecond)

	return nil
}

func teardownTestEnvironment() {
	if testServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		testServer.Shutdown(ctx)
	}

	if e2eDB != nil {
		sqlDB, _ := e2eDB.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}

	os.Remove(testDBFile)
}

// useE2EDB points the global db back at the e2e database; unit tests swap it
// for their own in-memory stores.
func useE2EDB(t *testing.T) {
	t.Helper()
	db = e2eDB
	catalogCache.Clear()
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func noRedirect(client *http.Client) *http.Client {
	clone := *client
	clone.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &clone
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String()
}

// TestWallEndToEndFlow walks the complete visitor journey: create a wall,
// open it, leave a wish, toggle a like twice, and reply.
func TestWallEndToEndFlow(t *testing.T) {
	useE2EDB(t)
	client := newTestClient(t)

	resp, err := noRedirect(client).PostForm(testBaseURL+"/wish/create", url.Values{
		"title":           {"Congrats Sarah"},
		"creator_name":    {"Maya"},
		"theme":           {"star"},
		"privacy":         {"link_only"},
		"opening_message": {"Leave Sarah your best wishes!"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	resp.Body.Close()
	assert.Equal(t, "/wish/congrats-sarah", location)

	// link_only walls are reachable by anyone holding the link.
	resp, err = client.Get(testBaseURL + location)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Congrats Sarah")
	assert.Contains(t, body, "Leave Sarah your best wishes!")

	resp, err = client.PostForm(testBaseURL+location+"/wishes", url.Values{
		"author_name": {"Visitor"},
		"content":     {"Wishing you all the best!"},
	})
	require.NoError(t, err)
	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Wishing you all the best!")
	assert.Contains(t, body, "Visitor")

	var wish WallWish
	require.NoError(t, db.First(&wish, "content = ?", "Wishing you all the best!").Error)

	likeURL := fmt.Sprintf("%s%s/wishes/%s/like", testBaseURL, location, wish.ID)

	resp, err = client.PostForm(likeURL, url.Values{})
	require.NoError(t, err)
	var likeResp struct {
		Liked     bool  `json:"liked"`
		LikeCount int64 `json:"like_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&likeResp))
	resp.Body.Close()
	assert.True(t, likeResp.Liked)
	assert.EqualValues(t, 1, likeResp.LikeCount)

	resp, err = client.PostForm(likeURL, url.Values{})
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&likeResp))
	resp.Body.Close()
	assert.False(t, likeResp.Liked)
	assert.EqualValues(t, 0, likeResp.LikeCount)

	resp, err = client.PostForm(fmt.Sprintf("%s%s/wishes/%s/replies", testBaseURL, location, wish.ID), url.Values{
		"author_name": {"Sarah"},
		"content":     {"Thank you so much!"},
	})
	require.NoError(t, err)
	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Thank you so much!")

	// The embed badge endpoint reflects the wish count.
	resp, err = client.Get(testBaseURL + "/api/walls/congrats-sarah/wish-count")
	require.NoError(t, err)
	var countResp struct {
		WishCount int64 `json:"wish_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&countResp))
	resp.Body.Close()
	assert.EqualValues(t, 1, countResp.WishCount)
}

func TestAccountFlow(t *testing.T) {
	useE2EDB(t)
	client := newTestClient(t)

	email := fmt.Sprintf("testuser_%d@example.com", time.Now().UnixNano())
	resp, err := client.PostForm(testBaseURL+"/signup", url.Values{
		"email":     {email},
		"full_name": {"Test User"},
		"password":  {"hunter2hunter2"},
	})
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, email)

	// Signed-in pages are reachable.
	resp, err = client.Get(testBaseURL + "/favorites")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Sign out; the profile bounces back to sign-in.
	resp, err = client.Get(testBaseURL + "/logout")
	require.NoError(t, err)
	readBody(t, resp)

	resp, err = noRedirect(client).Get(testBaseURL + "/profile")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/signin", resp.Header.Get("Location"))
}

func TestPrivateWallHiddenOverHTTP(t *testing.T) {
	useE2EDB(t)
	client := newTestClient(t)

	ownerID := "private-owner"
	wall := WishWall{
		Title: "Private Party", Slug: "private-party", Theme: "gift",
		Privacy: "private", CreatorName: "Owner", UserID: &ownerID, IsActive: true,
	}
	require.NoError(t, db.Create(&wall).Error)

	// Forbidden is indistinguishable from absent.
	resp, err := client.Get(testBaseURL + "/wish/private-party")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Get(testBaseURL + "/wish/no-such-wall")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBlessingAPIAndShare(t *testing.T) {
	useE2EDB(t)
	client := newTestClient(t)

	category := Category{Name: "Birthday", Slug: fmt.Sprintf("birthday-%d", time.Now().UnixNano())}
	require.NoError(t, db.Create(&category).Error)
	blessing := Blessing{
		CategoryID: category.ID, Title: "API Blessing", Slug: "api-blessing",
		Content: "May your endpoints always return 200.", ContentType: "short",
		LanguageStyle: "casual", IsActive: true,
	}
	require.NoError(t, db.Create(&blessing).Error)

	// Fetch by slug.
	resp, err := client.Get(testBaseURL + "/api/blessings/api-blessing")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Equal(t, "API Blessing", payload["title"])

	// Fetch by id through the same route.
	resp, err = client.Get(testBaseURL + "/api/blessings/" + blessing.ID)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	assert.Equal(t, "api-blessing", payload["slug"])

	resp, err = client.Get(testBaseURL + "/api/blessings/definitely-missing")
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Record a share.
	shareBody := strings.NewReader(fmt.Sprintf(`{"blessing_id":%q,"platform":"twitter"}`, blessing.ID))
	resp, err = client.Post(testBaseURL+"/api/share", "application/json", shareBody)
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var refreshed Blessing
	require.NoError(t, db.First(&refreshed, "id = ?", blessing.ID).Error)
	assert.EqualValues(t, 1, refreshed.ShareCount)
}

func TestRobotsAndSitemap(t *testing.T) {
	useE2EDB(t)
	client := newTestClient(t)

	resp, err := client.Get(testBaseURL + "/robots.txt")
	require.NoError(t, err)
	body := readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sitemap:")

	resp, err = client.Get(testBaseURL + "/sitemap.xml")
	require.NoError(t, err)
	body = readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<urlset")
}

// TestWallWishActionsScopedToWall verifies a wish can only be acted on
// through its own wall's URL. Owning an unrelated wall grants nothing, and a
// public wall's slug is not a side door to a private wall's wishes.
func TestWallWishActionsScopedToWall(t *testing.T) {
	useE2EDB(t)
	client := newTestClient(t)

	email := fmt.Sprintf("mallory_%d@example.com", time.Now().UnixNano())
	resp, err := client.PostForm(testBaseURL+"/signup", url.Values{
		"email":    {email},
		"password": {"correct horse"},
	})
	require.NoError(t, err)
	readBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = noRedirect(client).PostForm(testBaseURL+"/wish/create", url.Values{
		"title":        {"Attacker Scope Wall"},
		"creator_name": {"Mallory"},
		"theme":        {"gift"},
		"privacy":      {"public"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	attackerSlug := resp.Header.Get("Location")

	victimOwner := "scope-victim-owner"
	victimWall := WishWall{
		Title: "Scope Victim Wall", Slug: "scope-victim-wall", Theme: "flower",
		Privacy: "private", CreatorName: "Victim", UserID: &victimOwner, IsActive: true,
	}
	require.NoError(t, db.Create(&victimWall).Error)
	wish, err := CreateWallWish(CreateWallWishInput{
		WallID: victimWall.ID, AuthorName: "Friend", Content: "only for the owner",
	})
	require.NoError(t, err)

	// Delete through the attacker's own wall: 404, wish untouched.
	resp, err = noRedirect(client).PostForm(
		fmt.Sprintf("%s%s/wishes/%s/delete", testBaseURL, attackerSlug, wish.ID), url.Values{})
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var refreshed WallWish
	require.NoError(t, db.First(&refreshed, "id = ?", wish.ID).Error)
	assert.True(t, refreshed.IsActive)

	// Like and reply through the public wall's slug: 404 and 400, no rows.
	resp, err = client.PostForm(
		fmt.Sprintf("%s%s/wishes/%s/like", testBaseURL, attackerSlug, wish.ID), url.Values{})
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.PostForm(
		fmt.Sprintf("%s%s/wishes/%s/replies", testBaseURL, attackerSlug, wish.ID), url.Values{
			"author_name": {"Mallory"},
			"content":     {"sneaking in"},
		})
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	replies, err := GetWishReplies(wish.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
}
