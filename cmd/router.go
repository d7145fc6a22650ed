package main

import (
	"net/http"

	"github.com/angeloszaimis/migration-gateway/config"
	"github.com/angeloszaimis/migration-gateway/internal/handler"
	"github.com/angeloszaimis/migration-gateway/internal/httpserver"
	"github.com/angeloszaimis/migration-gateway/pkg/metrics"
)

func setupRouter(gatewayHandler *handler.GatewayHandler, adminHandler *handler.AdminHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("GET /admin/status", adminHandler.Status)
	mux.HandleFunc("GET /admin/compare", adminHandler.Compare)
	mux.HandleFunc("PUT /admin/features/{name}", adminHandler.SetFeatureMode)
	mux.HandleFunc("POST /admin/rollback/reset", adminHandler.ResetRollback)

	mux.Handle("/", gatewayHandler)

	return mux
}

func httpServer(cfg *config.Config, gatewayHandler *handler.GatewayHandler, adminHandler *handler.AdminHandler) (*httpserver.Server, error) {
	return httpserver.New(cfg.Server.Address, setupRouter(gatewayHandler, adminHandler))
}
