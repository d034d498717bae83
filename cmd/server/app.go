package main

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"encantar/internal/audit"
	authhandler "encantar/internal/auth/handler"
	authmetrics "encantar/internal/auth/metrics"
	authservice "encantar/internal/auth/service"
	authstore "encantar/internal/auth/store"
	"encantar/internal/auth/token"
	beneficiaryhandler "encantar/internal/beneficiary/handler"
	beneficiarymetrics "encantar/internal/beneficiary/metrics"
	beneficiaryservice "encantar/internal/beneficiary/service"
	beneficiarystore "encantar/internal/beneficiary/store"
	dashboardhandler "encantar/internal/dashboard/handler"
	dashboardservice "encantar/internal/dashboard/service"
	dashboardstore "encantar/internal/dashboard/store"
	deliveryhandler "encantar/internal/delivery/handler"
	deliverymetrics "encantar/internal/delivery/metrics"
	deliveryservice "encantar/internal/delivery/service"
	deliverystore "encantar/internal/delivery/store"
	templatehandler "encantar/internal/deliverytemplate/handler"
	templatemetrics "encantar/internal/deliverytemplate/metrics"
	templateservice "encantar/internal/deliverytemplate/service"
	templatestore "encantar/internal/deliverytemplate/store"
	dochandler "encantar/internal/doctemplate/handler"
	docmetrics "encantar/internal/doctemplate/metrics"
	docservice "encantar/internal/doctemplate/service"
	docstore "encantar/internal/doctemplate/store"
	httpapi "encantar/internal/http"
	itemhandler "encantar/internal/item/handler"
	itemmetrics "encantar/internal/item/metrics"
	itemservice "encantar/internal/item/service"
	itemstore "encantar/internal/item/store"
	"encantar/internal/platform/cache"
	"encantar/internal/platform/config"
	"encantar/internal/platform/middleware"
	routehandler "encantar/internal/route/handler"
	routemetrics "encantar/internal/route/metrics"
	routeservice "encantar/internal/route/service"
	routestore "encantar/internal/route/store"
	authmw "encantar/pkg/platform/middleware/auth"
	"encantar/pkg/platform/tx"
)

// modules holds the services the serve and seed commands need after wiring.
type modules struct {
	auth        *authservice.Service
	docTemplate *docservice.Service
	handlers    []httpapi.Registrar
}

// moduleDeps are the shared collaborators every module receives.
type moduleDeps struct {
	cfg       config.Config
	db        *sqlx.DB
	logger    *slog.Logger
	registry  prometheus.Registerer
	audit     *audit.Publisher
	responses *cache.ResponseCache
	authLimit middleware.Func
}

func buildModules(d moduleDeps) *modules {
	runner := tx.NewRunner(d.db)

	admins := authstore.NewAdminStore(d.db)
	tokens := token.New(d.cfg.Auth.JWTSecret, d.cfg.Auth.JWTRefreshSecret,
		d.cfg.Auth.AccessTTL, d.cfg.Auth.RefreshTTL, d.cfg.Auth.Issuer)
	authSvc := authservice.New(admins, authstore.NewInviteStore(d.db), tokens, runner,
		authservice.WithInviteTTL(d.cfg.Auth.InviteTTL),
		authservice.WithFrontendURL(d.cfg.FrontendURL),
		authservice.WithMetrics(authmetrics.New(d.registry)),
		authservice.WithAuditPublisher(d.audit),
		authservice.WithLogger(d.logger),
	)

	guards := middleware.Guards{
		Auth:        authmw.RequireAuth(tokens, authSvc, d.logger),
		CacheShort:  d.responses.Middleware(d.cfg.Cache.ShortTTL),
		CacheMedium: d.responses.Middleware(d.cfg.Cache.MediumTTL),
	}

	itemStore := itemstore.New(d.db)
	itemSvc := itemservice.New(itemStore,
		itemservice.WithLogger(d.logger),
		itemservice.WithAuditPublisher(d.audit),
		itemservice.WithMetrics(itemmetrics.New(d.registry)),
		itemservice.WithCache(d.responses),
	)

	beneficiarySvc := beneficiaryservice.New(beneficiarystore.New(d.db),
		beneficiaryservice.WithLogger(d.logger),
		beneficiaryservice.WithAuditPublisher(d.audit),
		beneficiaryservice.WithMetrics(beneficiarymetrics.New(d.registry)),
		beneficiaryservice.WithCache(d.responses),
	)

	docSvc := docservice.New(docstore.New(d.db),
		docservice.WithLogger(d.logger),
		docservice.WithAuditPublisher(d.audit),
		docservice.WithMetrics(docmetrics.New(d.registry)),
		docservice.WithCache(d.responses),
	)

	routeSvc := routeservice.New(routestore.New(d.db),
		routeservice.WithLogger(d.logger),
		routeservice.WithAuditPublisher(d.audit),
		routeservice.WithMetrics(routemetrics.New(d.registry)),
		routeservice.WithCache(d.responses),
		routeservice.WithRenderer(docSvc),
	)

	deliverySvc := deliveryservice.New(deliverystore.New(d.db), itemStore,
		deliveryservice.WithTxRunner(runner),
		deliveryservice.WithSearch(beneficiarySvc, itemSvc),
		deliveryservice.WithLogger(d.logger),
		deliveryservice.WithAuditPublisher(d.audit),
		deliveryservice.WithMetrics(deliverymetrics.New(d.registry)),
		deliveryservice.WithCache(d.responses),
	)

	templateSvc := templateservice.New(templatestore.New(d.db), itemStore,
		templateservice.WithTxRunner(runner),
		templateservice.WithLogger(d.logger),
		templateservice.WithAuditPublisher(d.audit),
		templateservice.WithMetrics(templatemetrics.New(d.registry)),
		templateservice.WithCache(d.responses),
	)

	dashboardSvc := dashboardservice.New(dashboardstore.New(d.db))

	return &modules{
		auth:        authSvc,
		docTemplate: docSvc,
		handlers: []httpapi.Registrar{
			authhandler.New(authSvc, d.logger, guards.Auth, d.authLimit),
			itemhandler.New(itemSvc, d.logger, guards),
			beneficiaryhandler.New(beneficiarySvc, d.logger, guards),
			routehandler.New(routeSvc, d.logger, guards),
			dochandler.New(docSvc, d.logger, guards),
			deliveryhandler.New(deliverySvc, d.logger, guards),
			templatehandler.New(templateSvc, d.logger, guards),
			dashboardhandler.New(dashboardSvc, d.logger, guards),
		},
	}
}
