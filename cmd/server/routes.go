package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/activities"
	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/collectives"
	"github.com/fundhub/backend/internal/members"
	"github.com/fundhub/backend/internal/middleware"
	"github.com/fundhub/backend/internal/notifications"
	"github.com/fundhub/backend/internal/orders"
	"github.com/fundhub/backend/internal/paymentmethods"
	"github.com/fundhub/backend/internal/payments"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/response"
)

// deps are the collaborators the HTTP surface is built from.
type deps struct {
	store              store.Store
	jwt                *auth.JWTService
	gateway            payments.Gateway
	enqueuer           notifications.Enqueuer
	publisher          activities.Publisher
	platformName       string
	nativeService      string
	platformFeePercent int
	corsOrigins        string
	health             func(c *gin.Context) map[string]string
}

func newRouter(d deps, logger *zap.Logger) *gin.Engine {
	identity := auth.NewIdentityResolver(d.store, logger)
	executor := payments.NewExecutor(d.store, d.gateway, d.platformFeePercent, logger)
	recorder := activities.NewRecorder(d.store, d.publisher, logger)
	notifier := notifications.NewService(d.enqueuer, d.platformName, logger)
	resolver := paymentmethods.NewResolver(d.store, d.nativeService, logger)

	authHandler := auth.NewHandler(d.store, identity, d.jwt, logger)
	collectiveHandler := collectives.NewHandler(collectives.NewService(d.store, logger), logger)
	orderHandler := orders.NewHandler(orders.NewService(d.store, identity, resolver, executor, recorder, notifier, logger), logger)
	memberHandler := members.NewHandler(members.NewService(d.store, identity, logger), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.corsOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		status := map[string]string{"status": "ok"}
		if d.health != nil {
			for k, v := range d.health(c) {
				status[k] = v
			}
		}
		response.OK(c, status)
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Mutations accept anonymous callers; each one decides what they may do.
	api := router.Group("")
	api.Use(middleware.OptionalJWT(d.jwt), middleware.Actor(d.store, logger))
	{
		api.POST("/collectives", collectiveHandler.Create)
		api.GET("/collectives/:id", collectiveHandler.Get)
		api.PUT("/collectives/:id", collectiveHandler.Edit)
		api.DELETE("/collectives/:id", collectiveHandler.Delete)
		api.PUT("/collectives/:id/tiers", collectiveHandler.EditTiers)

		api.POST("/orders", orderHandler.Create)

		api.POST("/members", memberHandler.Create)
		api.POST("/members/remove", memberHandler.Remove)
	}
	return router
}
