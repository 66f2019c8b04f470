package router

import (
	"net/http"

	areasvc "estate-backend/internal/application/areas"
	listsvc "estate-backend/internal/application/listings"
	"estate-backend/internal/config"
	"estate-backend/internal/infrastructure/cache"
	"estate-backend/internal/infrastructure/database"
	areahandler "estate-backend/internal/interfaces/handlers/areas"
	healthhandler "estate-backend/internal/interfaces/handlers/health"
	listhandler "estate-backend/internal/interfaces/handlers/listings"
	"estate-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// areaKeyPrefix namespaces cached lookups in a shared Redis.
const areaKeyPrefix = "area:"

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Deps are the collaborators New wires into routes. Rdb is optional.
type Deps struct {
	DB          *gorm.DB
	Rdb         *redis.Client
	AreaCache   cache.Cache
	AreaGateway areasvc.Gateway
	Config      *config.Config
}

// CreateApp opens the database and optional Redis from cfg, migrates the
// listings table and returns the wired app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}

	var rdb *redis.Client
	var areaCache cache.Cache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
		areaCache = &cache.Redis{Rdb: rdb, Prefix: areaKeyPrefix}
	} else {
		log.Info().Msg("REDIS_URL not set, using in-process area cache")
		areaCache = cache.NewMemory(nil)
	}

	app := New(Deps{
		DB:          db,
		Rdb:         rdb,
		AreaCache:   areaCache,
		AreaGateway: areasvc.NewHTTPGateway(cfg.DataEndpoint, cfg.UpstreamTimeout),
		Config:      cfg,
	})
	return app, db, rdb, nil
}

// New registers middleware and routes on a fresh app.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	if d.Rdb != nil {
		app.Use(middleware.HealthMarker(d.Rdb))
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Hello from backend!"})
	})

	hh := &healthhandler.Handlers{
		Rdb:                d.Rdb,
		HealthAdminKey:     cfg.HealthAdminKey,
		UpstreamConfigured: cfg.DataEndpoint != "",
	}
	if d.DB != nil {
		hh.DB = &gormDBPinger{db: d.DB}
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	api := app.Group("/api")

	lh := &listhandler.Handlers{Service: &listsvc.Service{DB: d.DB}}
	api.Post("/create-listing", lh.CreateListing)
	api.Get("/listings", lh.ListListings)
	api.Get("/schemas/listing", lh.Schema)

	ah := &areahandler.Handlers{Service: &areasvc.Service{
		Cache:   d.AreaCache,
		Gateway: d.AreaGateway,
		TTL:     cfg.AreaCacheTTL,
	}}
	api.Get("/fetch", ah.Fetch)

	return app
}

// Handler adapts the app for net/http hosts (serverless functions).
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
