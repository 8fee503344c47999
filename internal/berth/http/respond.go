package http

import (
	"errors"
	"net/http"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

// writeServiceError maps service-layer errors onto HTTP statuses. Upstream
// cluster errors pass their message through verbatim with a 502 so the
// operator sees what the controller actually said; everything unrecognized
// is a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *cluster.Error
	switch {
	case errors.Is(err, domain.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrBadCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		httpx.WriteError(w, http.StatusForbidden, "container quota exceeded")
	case errors.As(err, &ce):
		slogx.FromContext(r.Context()).Warn("cluster api error", "op", ce.Op, "err", ce.Message)
		httpx.WriteError(w, http.StatusBadGateway, ce.Message)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
