package inventory

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usos-inventory/server/pkg/apperr"
	"github.com/usos-inventory/server/pkg/auth"
)

var (
	owner    = &auth.Principal{ID: 7, Username: "usos_7", IsActive: true}
	intruder = &auth.Principal{ID: 8, Username: "usos_8", IsActive: true}
)

func testService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(NewStore(db)), mock
}

func expectInventoryRow(mock sqlmock.Sqlmock, id, ownerID int64) {
	mock.ExpectQuery(`SELECT id, name, date, user_id FROM inventories WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "user_id"}).
			AddRow(id, "lab", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), ownerID))
}

func validItem(inventoryID int64) *Item {
	return &Item{
		InventoryID:       inventoryID,
		Department:        10,
		AssetGroup:        4,
		Category:          "hardware",
		InventoryNumber:   "INV-001",
		AssetComponent:    100200,
		SubNumber:         1,
		AcquisitionDate:   "2024-05-01",
		AssetDescription:  "oscilloscope",
		Quantity:          1,
		InitialValue:      "1999.99",
		LastInventoryRoom: "A-101",
	}
}

func TestListInventoriesScopedToOwner(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery(`FROM inventories WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "user_id"}).
			AddRow(int64(1), "lab", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), int64(7)))

	inventories, err := service.ListInventories(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, inventories, 1)
	assert.Equal(t, "2026-01-15", inventories[0].Date)
}

func TestListInventoriesAnonymousSeesNothing(t *testing.T) {
	service, mock := testService(t)

	// No query expected: an absent principal sees the empty set without
	// touching storage.
	inventories, err := service.ListInventories(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, inventories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInventoryForcesOwner(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery(`INSERT INTO inventories`).
		WithArgs("lab", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	inv, err := service.CreateInventory(context.Background(), owner,
		&InventoryRequest{Name: "lab", Date: "2026-01-15"})
	require.NoError(t, err)

	assert.Equal(t, int64(7), inv.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInventoryValidation(t *testing.T) {
	service, _ := testService(t)

	tests := []struct {
		name string
		req  *InventoryRequest
	}{
		{"missing name", &InventoryRequest{Date: "2026-01-15"}},
		{"bad date", &InventoryRequest{Name: "lab", Date: "15.01.2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateInventory(context.Background(), owner, tt.req)
			assert.Equal(t, apperr.KindValidationError, apperr.KindOf(err))
		})
	}
}

func TestGetInventoryHidesForeignInventory(t *testing.T) {
	service, mock := testService(t)
	expectInventoryRow(mock, 3, owner.ID)

	// A foreign inventory reads as absent, not as forbidden.
	_, err := service.GetInventory(context.Background(), intruder, 3)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCreateItemForeignInventoryIsForbidden(t *testing.T) {
	service, mock := testService(t)
	expectInventoryRow(mock, 3, owner.ID)

	// Writes are explicit rejections, unlike the silent-empty read path.
	_, err := service.CreateItem(context.Background(), intruder, validItem(3))
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "inventory 3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemNonexistentInventory(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery(`SELECT id, name, date, user_id FROM inventories WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := service.CreateItem(context.Background(), owner, validItem(99))
	assert.Equal(t, apperr.KindValidationError, apperr.KindOf(err))
}

func TestCreateItem(t *testing.T) {
	service, mock := testService(t)
	expectInventoryRow(mock, 3, owner.ID)

	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	item, err := service.CreateItem(context.Background(), owner, validItem(3))
	require.NoError(t, err)
	assert.Equal(t, int64(11), item.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateEmptyBatch(t *testing.T) {
	service, mock := testService(t)

	created, err := service.BulkCreateItems(context.Background(), owner, nil)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateStructuralErrorRejectsWholeBatch(t *testing.T) {
	service, mock := testService(t)

	bad := validItem(3)
	bad.InitialValue = "not-a-number"

	// Structural validation runs before any ownership query.
	_, err := service.BulkCreateItems(context.Background(), owner, []*Item{validItem(3), bad})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidationError, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "item 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateOwnershipViolationPersistsNothing(t *testing.T) {
	service, mock := testService(t)
	expectInventoryRow(mock, 3, owner.ID)
	expectInventoryRow(mock, 4, intruder.ID)

	// No transaction is expected: the batch is rejected before a single
	// row lands.
	_, err := service.BulkCreateItems(context.Background(), owner,
		[]*Item{validItem(3), validItem(4)})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "inventory 4")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateCommitsAsUnit(t *testing.T) {
	service, mock := testService(t)
	expectInventoryRow(mock, 3, owner.ID)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	created, err := service.BulkCreateItems(context.Background(), owner,
		[]*Item{validItem(3), validItem(3)})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, int64(11), created[0].ID)
	assert.Equal(t, int64(12), created[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCreateRollsBackOnInsertFailure(t *testing.T) {
	service, mock := testService(t)
	expectInventoryRow(mock, 3, owner.ID)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := service.BulkCreateItems(context.Background(), owner,
		[]*Item{validItem(3), validItem(3)})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemForeignIsForbidden(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery(`FROM inventory_items i\s+JOIN inventories inv`).
		WithArgs(int64(11)).
		WillReturnRows(itemRowsWithOwner(11, 3, owner.ID))

	err := service.DeleteItem(context.Background(), intruder, 11)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateItemRechecksTargetInventory(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery(`FROM inventory_items i\s+JOIN inventories inv`).
		WithArgs(int64(11)).
		WillReturnRows(itemRowsWithOwner(11, 3, owner.ID))
	// Moving the item to inventory 4 requires owning inventory 4 too.
	expectInventoryRow(mock, 4, intruder.ID)

	_, err := service.UpdateItem(context.Background(), owner, 11, validItem(4))
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func itemRowsWithOwner(id, inventoryID, ownerID int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "inventory_id", "department", "asset_group", "category", "inventory_number",
		"asset_component", "sub_number", "acquisition_date", "asset_description", "quantity",
		"initial_value", "last_inventory_room", "current_room", "scanned", "user_id",
	}).AddRow(id, inventoryID, 10, 4, "hardware", "INV-001", int64(100200), 1,
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), "oscilloscope", 1,
		"1999.99", "A-101", nil, nil, ownerID)
}
