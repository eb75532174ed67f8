package server

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"volley/domain"
	"volley/server/handler"
)

func Route(pubsub domain.PubSub) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pubsub))
	mux.Handle("/healthz", handler.NewHealthHandler())
	return otelhttp.NewHandler(mux, "relay")
}
