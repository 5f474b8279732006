package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/cielo/internal/audit"
	auditdomain "github.com/smallbiznis/cielo/internal/audit/domain"
	"github.com/smallbiznis/cielo/internal/auth"
	authdomain "github.com/smallbiznis/cielo/internal/auth/domain"
	"github.com/smallbiznis/cielo/internal/auth/session"
	"github.com/smallbiznis/cielo/internal/authorization"
	"github.com/smallbiznis/cielo/internal/catalog"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	"github.com/smallbiznis/cielo/internal/config"
	"github.com/smallbiznis/cielo/internal/identity"
	"github.com/smallbiznis/cielo/internal/invoice"
	invoicedomain "github.com/smallbiznis/cielo/internal/invoice/domain"
	"github.com/smallbiznis/cielo/internal/observability"
	obsmetrics "github.com/smallbiznis/cielo/internal/observability/metrics"
	"github.com/smallbiznis/cielo/internal/ocr"
	ocrdomain "github.com/smallbiznis/cielo/internal/ocr/domain"
	"github.com/smallbiznis/cielo/internal/points"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	"github.com/smallbiznis/cielo/internal/ratelimit"
	"github.com/smallbiznis/cielo/internal/reward"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	"github.com/smallbiznis/cielo/internal/scheduler"
	"github.com/smallbiznis/cielo/internal/store"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	"github.com/smallbiznis/cielo/internal/user"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	observability.Module,
	ratelimit.Module,
	authorization.Module,
	audit.Module,
	identity.Module,
	user.Module,
	auth.Module,
	store.Module,
	catalog.Module,
	points.Module,
	invoice.Module,
	reward.Module,
	ocr.Module,
	scheduler.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	genID      *snowflake.Node
	limiter    *ratelimit.TokenBucket
	sessions   *session.Manager
	authSvc    authdomain.Service
	authzSvc   authorization.Service
	auditSvc   auditdomain.Service
	userSvc    userdomain.Service
	storeSvc   storedomain.Service
	catalogSvc catalogdomain.Service
	pointsSvc  pointsdomain.Service
	invoiceSvc invoicedomain.Service
	rewardSvc  rewarddomain.Service
	ocrSvc     ocrdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	GenID      *snowflake.Node
	Limiter    *ratelimit.TokenBucket
	Sessions   *session.Manager
	AuthSvc    authdomain.Service
	AuthzSvc   authorization.Service
	AuditSvc   auditdomain.Service
	UserSvc    userdomain.Service
	StoreSvc   storedomain.Service
	CatalogSvc catalogdomain.Service
	PointsSvc  pointsdomain.Service
	InvoiceSvc invoicedomain.Service
	RewardSvc  rewarddomain.Service
	OcrSvc     ocrdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		db:         p.DB,
		genID:      p.GenID,
		limiter:    p.Limiter,
		sessions:   p.Sessions,
		authSvc:    p.AuthSvc,
		authzSvc:   p.AuthzSvc,
		auditSvc:   p.AuditSvc,
		userSvc:    p.UserSvc,
		storeSvc:   p.StoreSvc,
		catalogSvc: p.CatalogSvc,
		pointsSvc:  p.PointsSvc,
		invoiceSvc: p.InvoiceSvc,
		rewardSvc:  p.RewardSvc,
		ocrSvc:     p.OcrSvc,
	}

	s.registerPublicRoutes()
	s.registerAuthRoutes()
	s.registerAPIRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	s.engine.POST("/register", s.rateLimit("register"), s.RegisterStore)
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")
	authGroup.POST("/login", s.rateLimit("login"), s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())

	api.POST("/ocr/recognize", s.RecognizeInvoice)

	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.ConfirmInvoice)
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoice)
	api.POST("/invoices/:id/decision", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceDecide), s.DecideInvoice)
	api.DELETE("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceDelete), s.DeleteInvoice)

	api.POST("/rewards/:id/claim", s.authorize(authorization.ObjectRewardClaim, authorization.ActionClaimCreate), s.ClaimReward)
	api.GET("/rewards", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogView), s.ListRewards)
	api.GET("/claims", s.authorize(authorization.ObjectRewardClaim, authorization.ActionClaimView), s.ListClaims)
	api.GET("/claims/:id", s.authorize(authorization.ObjectRewardClaim, authorization.ActionClaimView), s.GetClaim)
	api.PATCH("/claims/:id/status", s.authorize(authorization.ObjectRewardClaim, authorization.ActionClaimTransition), s.UpdateClaimStatus)
	api.POST("/claims/:id/rating", s.RateClaim)

	api.GET("/stock", s.authorize(authorization.ObjectRewardStock, authorization.ActionStockView), s.ListStock)
	api.PUT("/stock", s.authorize(authorization.ObjectRewardStock, authorization.ActionStockManage), s.UpsertStock)

	api.GET("/points/transactions", s.ListPointTransactions)
	api.DELETE("/points/transactions/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceDelete), s.DeletePointTransaction)

	api.GET("/catalog/products", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogView), s.ListProducts)
	api.PUT("/catalog/products/global", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.UpsertGlobalProduct)
	api.PUT("/catalog/products/country", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.UpsertCountryProduct)
	api.POST("/catalog/rewards/global", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.CreateGlobalReward)
	api.POST("/catalog/rewards/country", s.authorize(authorization.ObjectCatalog, authorization.ActionCatalogManage), s.CreateCountryReward)

	api.POST("/store-codes", s.authorize(authorization.ObjectStoreCode, authorization.ActionStoreCodeManage), s.CreateStoreCode)
	api.GET("/store-codes", s.authorize(authorization.ObjectStoreCode, authorization.ActionStoreCodeManage), s.ListStoreCodes)
	api.GET("/stores", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListStores)
	api.GET("/stores/me", s.MyStore)

	api.POST("/users/distributors", s.authorize(authorization.ObjectUser, authorization.ActionUserManageDistributor), s.CreateDistributor)
	api.POST("/users/admins", s.authorize(authorization.ObjectUser, authorization.ActionUserManageAdmin), s.AssignCountryAdmin)
	api.DELETE("/users/admins/:id", s.authorize(authorization.ObjectUser, authorization.ActionUserManageAdmin), s.DeleteCountryAdmin)
	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionUserManageDistributor), s.ListUsers)

	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
