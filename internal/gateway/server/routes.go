package server

import (
	"net/http"

	"savedanalysis/internal/gateway/handler"
	"savedanalysis/internal/gateway/handler/rpc"
	"savedanalysis/internal/gateway/middleware"
)

func NewMux(
	analysisHandler *handler.AnalysisHandler,
	schemaHandler *rpc.SchemaHandler,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	mux.Handle(rpc.NewSchemaServiceHandler(schemaHandler))
	mux.HandleFunc("GET /v1/upgrade/ws", rpc.HandleUpgradeWS)

	// Stored analyses
	mux.HandleFunc("GET /v1/analyses", analysisHandler.HandleList)
	mux.HandleFunc("POST /v1/analyses/migrate", analysisHandler.HandleMigrateAll)
	mux.HandleFunc("GET /v1/analyses/{id}", analysisHandler.HandleGet)
	mux.HandleFunc("PUT /v1/analyses/{id}", analysisHandler.HandlePut)
	mux.HandleFunc("POST /v1/analyses/{id}/migrate", analysisHandler.HandleMigrate)

	mux.HandleFunc("GET /healthz", handler.HandleHealth)

	// Middleware
	return middleware.CORS(mux)
}
