package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usos-inventory/server/pkg/httputil"
	"github.com/usos-inventory/server/pkg/observability"
)

// UserHandlers exposes the administrative principal endpoints. All of
// them sit behind the staff gate; regular principals never see other
// accounts through this surface.
type UserHandlers struct {
	store *PrincipalStore
}

// NewUserHandlers creates the administrative principal handlers
func NewUserHandlers(store *PrincipalStore) *UserHandlers {
	return &UserHandlers{store: store}
}

// RegisterRoutes registers the admin endpoints on a staff-gated router
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/", h.List).Methods("GET")
	router.HandleFunc("/users/{id}/", h.Get).Methods("GET")
	router.HandleFunc("/users/{id}/", h.Delete).Methods("DELETE")
}

// List returns all principals
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	principals, err := h.store.List(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to list principals")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, principals)
}

// Get returns a single principal by id
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid user id")
		return
	}

	principal, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("failed to load principal")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, principal)
}

// Delete removes a principal. Dependent rows (tokens, inventories,
// items) go with it through the schema's cascading references.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid user id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("failed to delete principal")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
