package inventory

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usos-inventory/server/pkg/apperr"
	"github.com/usos-inventory/server/pkg/auth"
	"github.com/usos-inventory/server/pkg/httputil"
	"github.com/usos-inventory/server/pkg/observability"
)

// Handlers exposes the inventory and item CRUD endpoints
type Handlers struct {
	service *Service
}

// NewHandlers creates the inventory handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the CRUD endpoints on an authenticated router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/inventories/", h.ListInventories).Methods("GET")
	router.HandleFunc("/inventories/", h.CreateInventory).Methods("POST")
	router.HandleFunc("/inventories/{id}/", h.GetInventory).Methods("GET")
	router.HandleFunc("/inventories/{id}/", h.UpdateInventory).Methods("PUT")
	router.HandleFunc("/inventories/{id}/", h.DeleteInventory).Methods("DELETE")

	router.HandleFunc("/items/", h.ListItems).Methods("GET")
	router.HandleFunc("/items/", h.CreateItems).Methods("POST")
	router.HandleFunc("/items/{id}/", h.GetItem).Methods("GET")
	router.HandleFunc("/items/{id}/", h.UpdateItem).Methods("PUT")
	router.HandleFunc("/items/{id}/", h.DeleteItem).Methods("DELETE")
}

// ListInventories returns the caller's inventories. The optional
// user_id filter can only ever match the caller, so any other value
// yields an empty set.
func (h *Handlers) ListInventories(w http.ResponseWriter, r *http.Request) {
	principal := auth.GetPrincipal(r)

	userID, present, err := httputil.ParseQueryInt64(r, "user_id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid user_id filter")
		return
	}
	if present && (principal == nil || userID != principal.ID) {
		httputil.WriteSuccess(w, []*Inventory{})
		return
	}

	inventories, err := h.service.ListInventories(r.Context(), principal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inventories)
}

// CreateInventory creates an inventory owned by the caller. A supplied
// user_id in the payload is ignored.
func (h *Handlers) CreateInventory(w http.ResponseWriter, r *http.Request) {
	req := &InventoryRequest{}
	if err := httputil.ParseJSON(r, req); err != nil {
		httputil.WriteValidationError(w, "invalid JSON payload")
		return
	}

	inv, err := h.service.CreateInventory(r.Context(), auth.GetPrincipal(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, inv)
}

// GetInventory returns a single inventory in the caller's scope
func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid inventory id")
		return
	}

	inv, err := h.service.GetInventory(r.Context(), auth.GetPrincipal(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

// UpdateInventory rewrites name and date of one of the caller's inventories
func (h *Handlers) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid inventory id")
		return
	}
	req := &InventoryRequest{}
	if err := httputil.ParseJSON(r, req); err != nil {
		httputil.WriteValidationError(w, "invalid JSON payload")
		return
	}

	inv, err := h.service.UpdateInventory(r.Context(), auth.GetPrincipal(r), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

// DeleteInventory removes one of the caller's inventories
func (h *Handlers) DeleteInventory(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid inventory id")
		return
	}

	if err := h.service.DeleteInventory(r.Context(), auth.GetPrincipal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// ListItems returns the caller's items, optionally filtered by inventory
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	var filter *int64
	inventoryID, present, err := httputil.ParseQueryInt64(r, "inventory_id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid inventory_id filter")
		return
	}
	if present {
		filter = &inventoryID
	}

	items, err := h.service.ListItems(r.Context(), auth.GetPrincipal(r), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// CreateItems accepts either a single item object or an array of items.
// Arrays go through bulk intake: the whole batch lands or none of it.
func (h *Handlers) CreateItems(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteValidationError(w, "failed to read request body")
		return
	}

	principal := auth.GetPrincipal(r)
	if isJSONArray(body) {
		var items []*Item
		if err := json.Unmarshal(body, &items); err != nil {
			httputil.WriteValidationError(w, "invalid JSON payload")
			return
		}
		created, err := h.service.BulkCreateItems(r.Context(), principal, items)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		httputil.WriteCreated(w, created)
		return
	}

	item := &Item{}
	if err := json.Unmarshal(body, item); err != nil {
		httputil.WriteValidationError(w, "invalid JSON payload")
		return
	}
	created, err := h.service.CreateItem(r.Context(), principal, item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, created)
}

// GetItem returns a single item in the caller's scope
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid item id")
		return
	}

	item, err := h.service.GetItem(r.Context(), auth.GetPrincipal(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, item)
}

// UpdateItem rewrites one of the caller's items
func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid item id")
		return
	}
	item := &Item{}
	if err := httputil.ParseJSON(r, item); err != nil {
		httputil.WriteValidationError(w, "invalid JSON payload")
		return
	}

	updated, err := h.service.UpdateItem(r.Context(), auth.GetPrincipal(r), id, item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// DeleteItem removes one of the caller's items
func (h *Handlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteValidationError(w, "invalid item id")
		return
	}

	if err := h.service.DeleteItem(r.Context(), auth.GetPrincipal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if httputil.StatusFor(apperr.KindOf(err)) >= http.StatusInternalServerError {
		observability.FromContext(r.Context()).WithError(err).Error("inventory operation failed")
	}
	httputil.WriteAppError(w, err)
}

// isJSONArray reports whether the payload's first token opens an array
func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
