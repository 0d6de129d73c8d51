package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/audit"
	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/authorization"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/client"
	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/config"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/lineitem"
	lineitemdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/lineitem/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/observability"
	obsmiddleware "github.com/stefanratchev/Veda-Legal-sub000/internal/observability/logger"
	obsmetrics "github.com/stefanratchev/Veda-Legal-sub000/internal/observability/metrics"
	obstracing "github.com/stefanratchev/Veda-Legal-sub000/internal/observability/tracing"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	client.Module,
	timeentry.Module,
	servicedesc.Module,
	lineitem.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node

	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	clientSvc      clientdomain.Service
	timeEntrySvc   timeentrydomain.Service
	serviceDescSvc sddomain.Service
	lineItemSvc    lineitemdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	ClientSvc      clientdomain.Service
	TimeEntrySvc   timeentrydomain.Service
	ServiceDescSvc sddomain.Service
	LineItemSvc    lineitemdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,

		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		clientSvc:      p.ClientSvc,
		timeEntrySvc:   p.TimeEntrySvc,
		serviceDescSvc: p.ServiceDescSvc,
		lineItemSvc:    p.LineItemSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.ActorContext())

	clients := api.Group("/clients")
	{
		clients.GET("", s.requireAuthz(authorization.ObjectClient, authorization.ActionView), s.ListClients)
		clients.POST("", s.requireAuthz(authorization.ObjectClient, authorization.ActionCreate), s.CreateClient)
		clients.GET("/:id", s.requireAuthz(authorization.ObjectClient, authorization.ActionView), s.GetClient)
	}

	entries := api.Group("/time-entries")
	{
		entries.GET("", s.requireAuthz(authorization.ObjectTimeEntry, authorization.ActionView), s.ListTimeEntries)
		entries.POST("", s.requireAuthz(authorization.ObjectTimeEntry, authorization.ActionCreate), s.CreateTimeEntry)
		entries.GET("/:id", s.requireAuthz(authorization.ObjectTimeEntry, authorization.ActionView), s.GetTimeEntry)
	}

	docs := api.Group("/service-descriptions")
	{
		docs.GET("", s.requireAuthz(authorization.ObjectServiceDescription, authorization.ActionView), s.ListServiceDescriptions)
		docs.POST("", s.requireAuthz(authorization.ObjectServiceDescription, authorization.ActionCreate), s.CreateServiceDescription)
		docs.GET("/:id", s.requireAuthz(authorization.ObjectServiceDescription, authorization.ActionView), s.GetServiceDescription)
		docs.DELETE("/:id", s.requireAuthz(authorization.ObjectServiceDescription, authorization.ActionDelete), s.DeleteServiceDescription)

		// Status picks finalize vs unlock authorization after binding.
		docs.PATCH("/:id/status", s.UpdateServiceDescriptionStatus)
		docs.PATCH("/:id/discount", s.requireAuthz(authorization.ObjectServiceDescription, authorization.ActionDiscount), s.UpdateServiceDescriptionDiscount)
		docs.PATCH("/:id/retainer", s.requireAuthz(authorization.ObjectServiceDescription, authorization.ActionUpdate), s.UpdateServiceDescriptionRetainer)

		docs.POST("/:id/topics", s.requireAuthz(authorization.ObjectTopic, authorization.ActionCreate), s.AddTopic)
		docs.PATCH("/:id/topics/:topicId", s.requireAuthz(authorization.ObjectTopic, authorization.ActionUpdate), s.UpdateTopic)
		docs.DELETE("/:id/topics/:topicId", s.requireAuthz(authorization.ObjectTopic, authorization.ActionDelete), s.DeleteTopic)
		docs.PUT("/:id/topic-order", s.requireAuthz(authorization.ObjectTopic, authorization.ActionUpdate), s.ReorderTopics)

		docs.POST("/:id/line-items", s.requireAuthz(authorization.ObjectLineItem, authorization.ActionCreate), s.AddLineItem)
		docs.PATCH("/:id/line-items/:itemId", s.requireAuthz(authorization.ObjectLineItem, authorization.ActionUpdate), s.UpdateLineItem)
		docs.PUT("/:id/line-items/:itemId/waive", s.requireAuthz(authorization.ObjectLineItem, authorization.ActionWaive), s.WaiveLineItem)
		docs.DELETE("/:id/line-items/:itemId", s.requireAuthz(authorization.ObjectLineItem, authorization.ActionDelete), s.DeleteLineItem)
		docs.PUT("/:id/topics/:topicId/item-order", s.requireAuthz(authorization.ObjectLineItem, authorization.ActionUpdate), s.ReorderLineItems)
	}

	api.GET("/audit-logs", s.requireAuthz(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
