package main

import (
	"net/http"

	httpHelpers "github.com/Luzifer/go_helpers/v2/http"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *App) router() http.Handler {
	api := mux.NewRouter()
	api.HandleFunc("/", app.rootHandler).Methods(http.MethodGet)
	api.HandleFunc("/health", app.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/live", app.liveStatusHandler).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", app.createSuggestionHandler).Methods(http.MethodPost)
	api.HandleFunc("/suggestions", app.listSuggestionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/subscribe", app.subscribeHandler).Methods(http.MethodPost)
	api.HandleFunc("/admin/notify", app.adminNotifyHandler).Methods(http.MethodPost)
	api.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var h http.Handler = api
	h = app.corsHandler(h)
	h = httpHelpers.NewHTTPLogHandler(h)

	// The feed bypasses the logging wrapper, upgrades need to hijack the
	// original ResponseWriter.
	r := mux.NewRouter()
	r.HandleFunc("/live/ws", app.liveFeedHandler).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(h)

	return r
}

func (app *App) corsHandler(h http.Handler) http.Handler {
	origins := []string{"*"}
	if app.config.FrontendURL != "" && app.config.FrontendURL != "*" {
		origins = []string{extractOrigin(app.config.FrontendURL)}
	}

	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", initDataHeader, initDataHeaderHyphen}),
		handlers.AllowCredentials(),
	)(h)
}
