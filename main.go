package main

import (
	"log"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
)

var db *gorm.DB

func main() {
	loadConfig()
	initDatabase()

	var err error
	catalogCache, err = NewCatalogCache(
		viper.GetInt("cache.size"),
		time.Duration(viper.GetInt("cache.ttl_minutes"))*time.Minute,
	)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}

	powChallengeStore = NewChallengeStore()
	powChallengeStore.StartCleanupLoop()

	r := initRouter()

	portNum := ":" + viper.GetString("server.port")
	color.Green("BlessYou.Today running on http://localhost%s", portNum)
	log.Fatal(http.ListenAndServe(portNum, r))
}

func loadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", "6235")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "blessyou.db")
	viper.SetDefault("cache.size", 1000)
	viper.SetDefault("cache.ttl_minutes", 5)
	viper.SetDefault("pow.enabled", false)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("failed to read config: %v", err)
		}
	}
}

func initDatabase() {
	var dialector gorm.Dialector
	dsn := viper.GetString("database.dsn")
	switch viper.GetString("database.driver") {
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	var err error
	db, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := migrateModels(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
}

func migrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Category{},
		&Subcategory{},
		&Blessing{},
		&ShareAnalytic{},
		&User{},
		&LoginAttempt{},
		&UserFavorite{},
		&WishWall{},
		&WallWish{},
		&WallWishLike{},
		&WallWishReply{},
	)
}

func initRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(UserContextMiddleware)

	r.Get("/", HomePage)
	r.Get("/robots.txt", RobotsHandler)
	r.Get("/sitemap.xml", SitemapHandler)

	r.Get("/categories/{slug}", CategoryPage)
	r.Get("/categories/{slug}/{subcategory}", SubcategoryPage)
	r.Get("/blessings/{slug}", BlessingPage)
	r.Get("/search", SearchPage)

	r.Get("/signin", GetSignIn)
	r.With(httprate.LimitByIP(5, time.Minute)).Post("/signin", PostSignIn)
	r.Get("/signup", GetSignUp)
	r.Post("/signup", PostSignUp)
	r.Get("/logout", Logout)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/profile", ProfilePage)
		r.Post("/profile", PostProfileSettings)
		r.Get("/favorites", FavoritesPage)
		r.Post("/favorites/add", PostAddFavorite)
		r.Post("/favorites/remove", PostRemoveFavorite)
	})

	r.Route("/wish", func(r chi.Router) {
		r.Get("/", WishWallDirectory)
		r.Get("/create", GetCreateWishWall)
		r.Post("/create", PostCreateWishWall)

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", WishWallPage)
			r.With(RequireAuth).Get("/edit", GetEditWishWall)
			r.With(RequireAuth).Post("/edit", PostEditWishWall)
			r.With(RequireAuth).Post("/delete", PostDeleteWishWall)
			r.With(RequireAuth).Post("/wishes/{wishID}/delete", PostDeleteWallWish)

			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(20, time.Minute))
				r.Post("/wishes", PostWallWish)
				r.Post("/wishes/{wishID}/like", PostToggleWishLike)
				r.Post("/wishes/{wishID}/replies", PostWallWishReply)
			})
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/blessings/{idOrSlug}", BlessingAPIHandler)
		r.With(httprate.LimitByIP(30, time.Minute)).Post("/share", ShareAPIHandler)
		r.Get("/walls/{slug}/wish-count", WallWishCountHandler)
		r.Get("/pow-challenge/{slug}", PowChallengeHandler)
	})

	return r
}
