package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists inventories and items in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new inventory store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `id, inventory_id, department, asset_group, category, inventory_number,
	asset_component, sub_number, acquisition_date, asset_description, quantity,
	initial_value, last_inventory_room, current_room, scanned`

func mustDate(value string) time.Time {
	t, _ := time.Parse(DateFormat, value)
	return t
}

// ListInventories returns the inventories owned by a principal
func (s *Store) ListInventories(ctx context.Context, ownerID int64) ([]*Inventory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, user_id FROM inventories WHERE user_id = $1 ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventories: %w", err)
	}
	defer rows.Close()

	inventories := []*Inventory{}
	for rows.Next() {
		inv := &Inventory{}
		var date time.Time
		if err := rows.Scan(&inv.ID, &inv.Name, &date, &inv.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		inv.Date = date.Format(DateFormat)
		inventories = append(inventories, inv)
	}
	return inventories, rows.Err()
}

// GetInventory retrieves an inventory by id regardless of owner. The
// service layer decides whether the caller may see it.
func (s *Store) GetInventory(ctx context.Context, id int64) (*Inventory, error) {
	inv := &Inventory{}
	var date time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, date, user_id FROM inventories WHERE id = $1
	`, id).Scan(&inv.ID, &inv.Name, &date, &inv.UserID)
	if err != nil {
		return nil, err
	}
	inv.Date = date.Format(DateFormat)
	return inv, nil
}

// CreateInventory inserts a new inventory
func (s *Store) CreateInventory(ctx context.Context, inv *Inventory) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventories (name, date, user_id) VALUES ($1, $2, $3) RETURNING id
	`, inv.Name, mustDate(inv.Date), inv.UserID).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create inventory: %w", err)
	}
	return nil
}

// UpdateInventory rewrites an inventory's mutable fields
func (s *Store) UpdateInventory(ctx context.Context, inv *Inventory) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inventories SET name = $1, date = $2 WHERE id = $3
	`, inv.Name, mustDate(inv.Date), inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	return nil
}

// DeleteInventory removes an inventory; its items cascade
func (s *Store) DeleteInventory(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inventories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete inventory: %w", err)
	}
	return nil
}

// ListItems returns the items visible to a principal, optionally
// narrowed to one inventory. Scoping happens in the join: a filter
// naming a foreign inventory simply matches nothing.
func (s *Store) ListItems(ctx context.Context, ownerID int64, inventoryID *int64) ([]*Item, error) {
	query := `
		SELECT i.id, i.inventory_id, i.department, i.asset_group, i.category, i.inventory_number,
			i.asset_component, i.sub_number, i.acquisition_date, i.asset_description, i.quantity,
			i.initial_value, i.last_inventory_room, i.current_room, i.scanned
		FROM inventory_items i
		JOIN inventories inv ON inv.id = i.inventory_id
		WHERE inv.user_id = $1`
	args := []interface{}{ownerID}
	if inventoryID != nil {
		query += ` AND i.inventory_id = $2`
		args = append(args, *inventoryID)
	}
	query += ` ORDER BY i.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	item := &Item{}
	var acquisitionDate time.Time
	err := row.Scan(&item.ID, &item.InventoryID, &item.Department, &item.AssetGroup,
		&item.Category, &item.InventoryNumber, &item.AssetComponent, &item.SubNumber,
		&acquisitionDate, &item.AssetDescription, &item.Quantity, &item.InitialValue,
		&item.LastInventoryRoom, &item.CurrentRoom, &item.Scanned)
	if err != nil {
		return nil, err
	}
	item.AcquisitionDate = acquisitionDate.Format(DateFormat)
	return item, nil
}

// GetItem retrieves an item together with its effective owner
func (s *Store) GetItem(ctx context.Context, id int64) (*Item, int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.inventory_id, i.department, i.asset_group, i.category, i.inventory_number,
			i.asset_component, i.sub_number, i.acquisition_date, i.asset_description, i.quantity,
			i.initial_value, i.last_inventory_room, i.current_room, i.scanned,
			inv.user_id
		FROM inventory_items i
		JOIN inventories inv ON inv.id = i.inventory_id
		WHERE i.id = $1
	`, id)

	item := &Item{}
	var acquisitionDate time.Time
	var ownerID int64
	err := row.Scan(&item.ID, &item.InventoryID, &item.Department, &item.AssetGroup,
		&item.Category, &item.InventoryNumber, &item.AssetComponent, &item.SubNumber,
		&acquisitionDate, &item.AssetDescription, &item.Quantity, &item.InitialValue,
		&item.LastInventoryRoom, &item.CurrentRoom, &item.Scanned, &ownerID)
	if err != nil {
		return nil, 0, err
	}
	item.AcquisitionDate = acquisitionDate.Format(DateFormat)
	return item, ownerID, nil
}

const insertItemQuery = `
	INSERT INTO inventory_items (inventory_id, department, asset_group, category,
		inventory_number, asset_component, sub_number, acquisition_date,
		asset_description, quantity, initial_value, last_inventory_room,
		current_room, scanned)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	RETURNING id`

func itemArgs(item *Item) []interface{} {
	return []interface{}{
		item.InventoryID, item.Department, item.AssetGroup, item.Category,
		item.InventoryNumber, item.AssetComponent, item.SubNumber,
		mustDate(item.AcquisitionDate), item.AssetDescription, item.Quantity,
		item.InitialValue, item.LastInventoryRoom, item.CurrentRoom, item.Scanned,
	}
}

// CreateItem inserts a single item
func (s *Store) CreateItem(ctx context.Context, item *Item) error {
	if err := s.db.QueryRowContext(ctx, insertItemQuery, itemArgs(item)...).Scan(&item.ID); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// CreateItems inserts a batch of items in one transaction. Either every
// row lands or none does.
func (s *Store) CreateItems(ctx context.Context, items []*Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := tx.QueryRowContext(ctx, insertItemQuery, itemArgs(item)...).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item batch: %w", err)
	}
	return nil
}

// UpdateItem rewrites an item's attributes
func (s *Store) UpdateItem(ctx context.Context, item *Item) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inventory_items SET inventory_id = $1, department = $2, asset_group = $3,
			category = $4, inventory_number = $5, asset_component = $6, sub_number = $7,
			acquisition_date = $8, asset_description = $9, quantity = $10,
			initial_value = $11, last_inventory_room = $12, current_room = $13, scanned = $14
		WHERE id = $15
	`, item.InventoryID, item.Department, item.AssetGroup, item.Category,
		item.InventoryNumber, item.AssetComponent, item.SubNumber,
		mustDate(item.AcquisitionDate), item.AssetDescription, item.Quantity,
		item.InitialValue, item.LastInventoryRoom, item.CurrentRoom, item.Scanned,
		item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// DeleteItem removes an item
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}
