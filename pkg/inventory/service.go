package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/usos-inventory/server/pkg/apperr"
	"github.com/usos-inventory/server/pkg/auth"
)

// Service applies ownership scoping on top of the store. Every
// operation takes the calling principal; reads outside the caller's
// scope surface as absence, writes outside it as explicit rejections.
type Service struct {
	store *Store
}

// NewService creates a new inventory service
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// ListInventories returns the caller's inventories. An absent principal
// sees the empty set even if the access layer failed to reject it.
func (s *Service) ListInventories(ctx context.Context, principal *auth.Principal) ([]*Inventory, error) {
	if principal == nil {
		return []*Inventory{}, nil
	}
	return s.store.ListInventories(ctx, principal.ID)
}

// CreateInventory creates an inventory owned by the caller. There is no
// code path where the owner comes from the request.
func (s *Service) CreateInventory(ctx context.Context, principal *auth.Principal, req *InventoryRequest) (*Inventory, error) {
	if principal == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv := &Inventory{Name: req.Name, Date: req.Date, UserID: principal.ID}
	if err := s.store.CreateInventory(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetInventory retrieves one of the caller's inventories. A foreign
// inventory is indistinguishable from a missing one.
func (s *Service) GetInventory(ctx context.Context, principal *auth.Principal, id int64) (*Inventory, error) {
	inv, err := s.ownedInventory(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateInventory rewrites name and date of one of the caller's
// inventories. The owner is immutable.
func (s *Service) UpdateInventory(ctx context.Context, principal *auth.Principal, id int64, req *InventoryRequest) (*Inventory, error) {
	inv, err := s.ownedInventory(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv.Name = req.Name
	inv.Date = req.Date
	if err := s.store.UpdateInventory(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// DeleteInventory removes one of the caller's inventories and its items
func (s *Service) DeleteInventory(ctx context.Context, principal *auth.Principal, id int64) error {
	if _, err := s.ownedInventory(ctx, principal, id); err != nil {
		return err
	}
	return s.store.DeleteInventory(ctx, id)
}

// ownedInventory loads an inventory and hides it unless the caller owns
// it. Used by the read-style scoping paths where violations degrade to
// NotFound.
func (s *Service) ownedInventory(ctx context.Context, principal *auth.Principal, id int64) (*Inventory, error) {
	if principal == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	inv, err := s.store.GetInventory(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "inventory not found")
		}
		return nil, err
	}
	if inv.UserID != principal.ID {
		return nil, apperr.New(apperr.KindNotFound, "inventory not found")
	}
	return inv, nil
}

// ListItems returns the caller's items, optionally narrowed to one
// inventory. A filter naming a foreign inventory yields an empty set,
// not an error.
func (s *Service) ListItems(ctx context.Context, principal *auth.Principal, inventoryID *int64) ([]*Item, error) {
	if principal == nil {
		return []*Item{}, nil
	}
	return s.store.ListItems(ctx, principal.ID, inventoryID)
}

// GetItem retrieves one of the caller's items
func (s *Service) GetItem(ctx context.Context, principal *auth.Principal, id int64) (*Item, error) {
	if principal == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	item, ownerID, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "item not found")
		}
		return nil, err
	}
	if ownerID != principal.ID {
		return nil, apperr.New(apperr.KindNotFound, "item not found")
	}
	return item, nil
}

// CreateItem creates a single item after checking that the caller owns
// the target inventory. A cross-tenant write is a security violation,
// not a filtering concern, so it fails loudly.
func (s *Service) CreateItem(ctx context.Context, principal *auth.Principal, item *Item) (*Item, error) {
	if principal == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkInventoryWritable(ctx, principal, item.InventoryID); err != nil {
		return nil, err
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// BulkCreateItems creates a batch of items as a unit. Structural
// validation of the whole batch runs first, then per-element ownership;
// any failure rejects the entire batch before a single row lands.
func (s *Service) BulkCreateItems(ctx context.Context, principal *auth.Principal, items []*Item) ([]*Item, error) {
	if principal == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if len(items) == 0 {
		return []*Item{}, nil
	}

	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, apperr.New(apperr.KindValidationError,
				"item %d: %s", i, apperr.MessageOf(err))
		}
	}

	// Owner lookups are cached per batch so a hundred items into the
	// same inventory cost one query.
	checked := map[int64]bool{}
	for _, item := range items {
		if checked[item.InventoryID] {
			continue
		}
		if err := s.checkInventoryWritable(ctx, principal, item.InventoryID); err != nil {
			return nil, err
		}
		checked[item.InventoryID] = true
	}

	if err := s.store.CreateItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateItem rewrites one of the caller's items. Moving an item to a
// different inventory re-checks ownership of the new target.
func (s *Service) UpdateItem(ctx context.Context, principal *auth.Principal, id int64, updated *Item) (*Item, error) {
	if principal == nil {
		return nil, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	existing, ownerID, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "item not found")
		}
		return nil, err
	}
	if ownerID != principal.ID {
		return nil, apperr.New(apperr.KindForbidden,
			"inventory %d is not owned by the caller", existing.InventoryID)
	}
	if updated.InventoryID != existing.InventoryID {
		if err := s.checkInventoryWritable(ctx, principal, updated.InventoryID); err != nil {
			return nil, err
		}
	}

	updated.ID = id
	if err := s.store.UpdateItem(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes one of the caller's items
func (s *Service) DeleteItem(ctx context.Context, principal *auth.Principal, id int64) error {
	if principal == nil {
		return apperr.New(apperr.KindUnauthorized, "authentication required")
	}

	item, ownerID, err := s.store.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "item not found")
		}
		return err
	}
	if ownerID != principal.ID {
		return apperr.New(apperr.KindForbidden,
			"inventory %d is not owned by the caller", item.InventoryID)
	}
	return s.store.DeleteItem(ctx, id)
}

// checkInventoryWritable verifies that the caller owns the target
// inventory. A nonexistent target is a payload error; an existing
// foreign target is Forbidden.
func (s *Service) checkInventoryWritable(ctx context.Context, principal *auth.Principal, inventoryID int64) error {
	inv, err := s.store.GetInventory(ctx, inventoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindValidationError,
				"inventory %d does not exist", inventoryID)
		}
		return err
	}
	if inv.UserID != principal.ID {
		return apperr.New(apperr.KindForbidden,
			"inventory %d is not owned by the caller", inventoryID)
	}
	return nil
}
