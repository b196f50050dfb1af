package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"waterstore-backend/internal/config"
	infraCache "waterstore-backend/internal/infrastructure/cache"
	"waterstore-backend/internal/infrastructure/database"
	"waterstore-backend/pkg/cache"
	pkgdb "waterstore-backend/pkg/database"
	"waterstore-backend/pkg/jwt"

	campaignHandler "waterstore-backend/internal/domains/campaign/handler"
	campaignRepo "waterstore-backend/internal/domains/campaign/repository"
	campaignService "waterstore-backend/internal/domains/campaign/service"
	catalogRepo "waterstore-backend/internal/domains/catalog/repository"
	depositHandler "waterstore-backend/internal/domains/deposit/handler"
	depositRepo "waterstore-backend/internal/domains/deposit/repository"
	depositService "waterstore-backend/internal/domains/deposit/service"
	orderRepo "waterstore-backend/internal/domains/order/repository"
	pricingHandler "waterstore-backend/internal/domains/pricing/handler"
	pricingService "waterstore-backend/internal/domains/pricing/service"
	promoHandler "waterstore-backend/internal/domains/promo/handler"
	promoRepo "waterstore-backend/internal/domains/promo/repository"
	promoService "waterstore-backend/internal/domains/promo/service"
	userRepo "waterstore-backend/internal/domains/user/repository"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every dependency of the application. It is the root
// of the dependency graph; everything in it is a singleton.
type Container struct {
	// Infrastructure layer
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager
	TxRunner   pkgdb.Runner

	// Repository layer
	CatalogRepo  catalogRepo.ProductReader
	UserRepo     userRepo.UserReader
	OrderRepo    orderRepo.OrderDetailRepository
	LedgerRepo   depositRepo.LedgerRepository
	PromoRepo    promoRepo.PromoRepository
	CampaignRepo campaignRepo.CampaignRepository

	// Service layer
	DepositService  depositService.ServiceInterface
	PromoService    promoService.ServiceInterface
	CampaignService campaignService.ServiceInterface
	PricingService  pricingService.ServiceInterface

	// Handler layer
	PromoHandler    *promoHandler.Handler
	CampaignHandler *campaignHandler.Handler
	PricingHandler  *pricingHandler.Handler
	DepositHandler  *depositHandler.Handler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer initializes the whole dependency graph.
//
// Initialization order matters:
// 1. Config (depends on nothing)
// 2. Infrastructure (DB, cache) - depends on config
// 3. Repositories - depend on infrastructure
// 4. Services - depend on repositories
// 5. Handlers - depend on services
func NewContainer() (*Container, error) {
	log.Println("🔧 Initializing DI container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("✅ Config loaded (environment: %s)", cfg.App.Environment)

	// ========================================
	// STEP 2: INITIALIZE DATABASE
	// ========================================
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	c.DB = db
	c.TxRunner = pkgdb.NewPoolRunner(db.Pool)
	log.Println("✅ Database connected")

	// ========================================
	// STEP 3: INITIALIZE CACHE
	// ========================================
	redisCache := infraCache.NewRedisCache(
		cfg.Redis.Host,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)

	// Redis staying down is not fatal: the promo and campaign caches
	// degrade to database reads.
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Printf("⚠️  Redis connection failed (non-critical): %v", err)
	} else {
		log.Println("✅ Redis connected")
	}
	c.Cache = redisCache

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// ========================================
	// STEP 4: INITIALIZE REPOSITORIES
	// ========================================
	c.initRepositories()

	// ========================================
	// STEP 5: INITIALIZE SERVICES
	// ========================================
	c.initServices()

	// ========================================
	// STEP 6: INITIALIZE HANDLERS
	// ========================================
	c.initHandlers()

	log.Println("🎉 DI container initialized")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.CatalogRepo = catalogRepo.NewPostgresRepository(pool)
	c.UserRepo = userRepo.NewPostgresRepository(pool)
	c.OrderRepo = orderRepo.NewPostgresRepository(pool)
	c.LedgerRepo = depositRepo.NewPostgresRepository(pool)
	c.PromoRepo = promoRepo.NewPostgresRepository(pool)
	c.CampaignRepo = campaignRepo.NewPostgresRepository(pool)
}

func (c *Container) initServices() {
	c.DepositService = depositService.NewDepositService(
		c.LedgerRepo,
		c.CatalogRepo,
		c.OrderRepo,
		c.TxRunner,
	)

	c.PromoService = promoService.NewPromoService(
		c.PromoRepo,
		c.TxRunner,
		c.Cache,
	)

	c.CampaignService = campaignService.NewCampaignService(
		c.CampaignRepo,
		c.CatalogRepo,
		c.UserRepo,
		c.TxRunner,
		c.Cache,
	)

	// Pricing composes the other three evaluators.
	c.PricingService = pricingService.NewPricingService(
		c.CatalogRepo,
		c.DepositService,
		c.PromoService,
		c.CampaignService,
	)
}

func (c *Container) initHandlers() {
	c.PromoHandler = promoHandler.NewHandler(c.PromoService)
	c.CampaignHandler = campaignHandler.NewHandler(c.CampaignService)
	c.PricingHandler = pricingHandler.NewHandler(c.PricingService)
	c.DepositHandler = depositHandler.NewHandler(c.DepositService, c.OrderRepo)
}

// ========================================
// CLEANUP
// ========================================

// Cleanup releases infrastructure resources on shutdown
func (c *Container) Cleanup() {
	if c.DB != nil {
		c.DB.Close()
		log.Println("🗄️  Database connection closed")
	}
	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			log.Printf("⚠️  Redis close failed: %v", err)
		} else {
			log.Println("🔴 Redis connection closed")
		}
	}
}
