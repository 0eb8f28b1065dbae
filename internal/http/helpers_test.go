package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func withSession(r *http.Request, sessionID string) *http.Request {
	ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
	return r.WithContext(ctx)
}

func withUser(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
