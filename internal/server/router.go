package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/perkloop/backend/internal/accounts"
	"github.com/perkloop/backend/internal/config"
	"github.com/perkloop/backend/internal/coupons"
	"github.com/perkloop/backend/internal/customers"
	"github.com/perkloop/backend/internal/identity"
	"github.com/perkloop/backend/internal/infra"
	"github.com/perkloop/backend/internal/phone"
	"github.com/perkloop/backend/internal/reconcile"
	"github.com/perkloop/backend/internal/security"
	"github.com/perkloop/backend/internal/server/handlers"
	"github.com/perkloop/backend/internal/server/mw"
	"github.com/perkloop/backend/internal/server/resp"
	"github.com/perkloop/backend/internal/store"
)

func NewRouter(cfg *config.Config, deps *infra.Infra, logger *zap.Logger) http.Handler {
	if cfg.AppEnv == "local" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.RequestLogger(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"*"},
	}))

	r.GET("/health", func(c *gin.Context) {
		resp.OK(c, gin.H{"status": "ok"})
	})

	accountsRepo := accounts.NewRepo(deps.PG)
	customersRepo := customers.NewRepo(deps.PG)
	couponsRepo := coupons.NewRepo(deps.PG)
	jwtm := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.AccessTTL, cfg.Security.RefreshTTL)

	resolutionCache := store.NewResolutionCache(deps.Redis, cfg.Cache.ResolutionTTL)
	reportStore := store.NewReconcileReportStore(deps.Redis, cfg.Cache.ReportTTL)

	matcher := phone.NewMatcher(cfg.Phone.AllowContainment, cfg.Phone.MinContainmentDigits, logger)
	resolver := identity.NewResolver(customersRepo, matcher, resolutionCache, logger)
	linker := identity.NewLinker(accountsRepo, customersRepo, resolver, resolutionCache, logger)
	reconciler := reconcile.New(couponsRepo, logger)

	authH := handlers.NewAuthHandler(logger, accountsRepo, jwtm)
	accountH := handlers.NewAccountHandler(logger, accountsRepo, linker)
	identityH := handlers.NewIdentityHandler(logger, resolver)
	customerH := handlers.NewCustomerHandler(logger, accountsRepo, customersRepo, linker)
	couponH := handlers.NewCouponHandler(logger, accountsRepo, couponsRepo, customersRepo)
	reconcileH := handlers.NewReconcileHandler(logger, accountsRepo, reconciler, reportStore)

	v1 := r.Group("/v1")

	v1.POST("/auth/token", authH.Token)
	v1.POST("/auth/refresh", authH.Refresh)
	v1.POST("/accounts", accountH.Create)

	authed := v1.Group("")
	authed.Use(mw.RequireAccount(jwtm))
	authed.GET("/me", accountH.Me)
	authed.PUT("/me/phone", accountH.UpdatePhone)

	business := authed.Group("")
	business.Use(mw.RequireRole(accounts.RoleBusiness))
	business.POST("/identity/resolve", identityH.Resolve)
	business.POST("/customers", customerH.Create)
	business.GET("/customers/:id", customerH.Get)
	business.PUT("/customers/:id/phone", customerH.UpdatePhone)
	business.POST("/coupons", couponH.Create)
	business.POST("/coupons/:id/redeem", couponH.Redeem)
	business.POST("/reconcile", reconcileH.Run)
	business.GET("/reconcile/last", reconcileH.Last)

	return r
}
