// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/shgledger/internal/app/features/auditlog"
	banksfeature "github.com/dalemusser/shgledger/internal/app/features/banks"
	fdsfeature "github.com/dalemusser/shgledger/internal/app/features/fds"
	groupsfeature "github.com/dalemusser/shgledger/internal/app/features/groups"
	healthfeature "github.com/dalemusser/shgledger/internal/app/features/health"
	loansfeature "github.com/dalemusser/shgledger/internal/app/features/loans"
	membersfeature "github.com/dalemusser/shgledger/internal/app/features/members"
	paymentsfeature "github.com/dalemusser/shgledger/internal/app/features/payments"
	recoveriesfeature "github.com/dalemusser/shgledger/internal/app/features/recoveries"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Every feature is a JSON API mounted
// under its resource path; group-scoped resources nest under
// /groups/{id}, where {id} may be the group's id, code or name.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	r := chi.NewRouter()
	r.Use(deps.Metrics.Middleware)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", deps.Metrics.Handler())

	// Groups and their nested resources
	groupsHandler := groupsfeature.NewHandler(db, deps.Audit, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler))

	membersHandler := membersfeature.NewHandler(db, deps.Audit, logger)
	r.Mount("/groups/{id}/members", membersfeature.GroupRoutes(membersHandler))
	r.Mount("/members", membersfeature.Routes(membersHandler))

	banksHandler := banksfeature.NewHandler(db, deps.Audit, logger)
	r.Mount("/groups/{id}/banks", banksfeature.Routes(banksHandler))

	// Recovery sessions: the meeting ledger
	recoveriesHandler := recoveriesfeature.NewHandler(deps.Recovery, deps.Audit, logger)
	r.Mount("/groups/{id}/recoveries", recoveriesfeature.Routes(recoveriesHandler))

	auditHandler := auditlogfeature.NewHandler(db, deps.Location, logger)
	r.Mount("/groups/{id}/audit", auditlogfeature.Routes(auditHandler))

	// Loans, fixed deposits and payouts
	loansHandler := loansfeature.NewHandler(db, deps.Location, deps.Audit, logger)
	r.Mount("/members/{memberID}/loans", loansfeature.Routes(loansHandler))

	fdsHandler := fdsfeature.NewHandler(db, deps.Location, deps.Audit, logger)
	r.Mount("/fds", fdsfeature.Routes(fdsHandler))

	paymentsHandler := paymentsfeature.NewHandler(db, deps.Audit, logger)
	r.Mount("/payments", paymentsfeature.Routes(paymentsHandler))

	return r, nil
}
