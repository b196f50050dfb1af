package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"waterstore-backend/internal/shared/middleware"
	"waterstore-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", healthCheckHandler(c))

		setupCartRoutes(v1, c)
		setupPromoRoutes(v1, c)
		setupCampaignRoutes(v1, c)
		setupDeliveryRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

// ========================================
// CART ROUTES
// ========================================
func setupCartRoutes(v1 *gin.RouterGroup, c *container.Container) {
	cart := v1.Group("/cart")
	cart.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		cart.POST("/calculate", c.PricingHandler.Calculate)
	}
}

// ========================================
// PROMO ROUTES
// ========================================
func setupPromoRoutes(v1 *gin.RouterGroup, c *container.Container) {
	promos := v1.Group("/promos")
	promos.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		promos.POST("/validate", c.PromoHandler.Validate)
		promos.POST("/apply", c.PromoHandler.Apply)
	}
}

// ========================================
// CAMPAIGN ROUTES
// ========================================
func setupCampaignRoutes(v1 *gin.RouterGroup, c *container.Container) {
	campaigns := v1.Group("/campaigns")
	campaigns.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		campaigns.POST("/validate", c.CampaignHandler.Validate)
		campaigns.POST("/eligible", c.CampaignHandler.Eligible)
		campaigns.POST("/apply", c.CampaignHandler.Apply)
	}
}

// ========================================
// DELIVERY ROUTES (DRIVER)
// ========================================
func setupDeliveryRoutes(v1 *gin.RouterGroup, c *container.Container) {
	deliveries := v1.Group("/deliveries")
	deliveries.Use(
		middleware.AuthMiddleware(c.JWTManager),
		middleware.RequireRole("driver"),
	)
	{
		deliveries.POST("/collect", c.DepositHandler.Collect)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(c.JWTManager),
		middleware.RequireRole("operator"),
	)
	{
		admin.POST("/promos", c.PromoHandler.Create)
		admin.PATCH("/promos/:id/status", c.PromoHandler.UpdateStatus)
		admin.POST("/campaigns", c.CampaignHandler.Create)
		admin.PATCH("/campaigns/:id/status", c.CampaignHandler.UpdateStatus)
	}
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"services":  gin.H{},
		}

		// Check database
		dbStatus := "ok"
		if appCtx.DB == nil || appCtx.DB.Pool == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.DB.HealthCheck(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			}
		}

		// Check cache
		cacheStatus := "ok"
		if appCtx.Cache == nil {
			cacheStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Cache.Ping(ctx); err != nil {
				// Cache outage degrades reads but does not break pricing
				cacheStatus = fmt.Sprintf("error: %v", err)
			}
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"cache":    cacheStatus,
		}

		status := 200
		if health["status"] != "ok" {
			status = 503
		}
		c.JSON(status, health)
	}
}
