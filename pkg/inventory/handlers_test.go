package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usos-inventory/server/pkg/auth"
	"github.com/usos-inventory/server/pkg/contextkeys"
)

// testRouter builds the CRUD routes with a fixed principal injected
// ahead of the handlers, standing in for the auth middleware.
func testRouter(t *testing.T, principal *auth.Principal) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal != nil {
				r = r.WithContext(contextkeys.WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	})
	NewHandlers(NewService(NewStore(db))).RegisterRoutes(router)
	return router, mock
}

func TestIsJSONArray(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`[]`, true},
		{"  \n\t[{\"a\":1}]", true},
		{`{"a":1}`, false},
		{``, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isJSONArray([]byte(tt.body)), "body: %q", tt.body)
	}
}

func TestListInventoriesForeignUserFilterYieldsEmpty(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	// No query expected: the filter can only ever match the caller.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventories/?user_id=8", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInventoryIgnoresClientSuppliedOwner(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	mock.ExpectQuery(`INSERT INTO inventories`).
		WithArgs("lab", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	payload := `{"name":"lab","date":"2026-01-15","user_id":999}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventories/", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var inv Inventory
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&inv))
	assert.Equal(t, int64(7), inv.UserID, "owner must come from the session, not the payload")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemsSingleObject(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	mock.ExpectQuery(`SELECT id, name, date, user_id FROM inventories WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "user_id"}).
			AddRow(int64(3), "lab", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), int64(7)))
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	payload := `{"inventory_id":3,"department":10,"asset_group":4,"category":"hardware",
		"inventory_number":"INV-001","asset_component":100200,"sub_number":1,
		"acquisition_date":"2024-05-01","asset_description":"oscilloscope","quantity":1,
		"initial_value":"1999.99","last_inventory_room":"A-101"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var item Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, int64(11), item.ID)
}

func TestCreateItemsArrayGoesThroughBulkIntake(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	mock.ExpectQuery(`SELECT id, name, date, user_id FROM inventories WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date", "user_id"}).
			AddRow(int64(3), "lab", time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), int64(7)))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(`INSERT INTO inventory_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectCommit()

	element := `{"inventory_id":3,"department":10,"asset_group":4,"category":"hardware",
		"inventory_number":"INV-001","asset_component":100200,"sub_number":1,
		"acquisition_date":"2024-05-01","asset_description":"oscilloscope","quantity":1,
		"initial_value":"1999.99","last_inventory_room":"A-101"}`
	payload := "[" + element + "," + element + "]"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var items []Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	assert.Len(t, items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemsEmptyArray(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/", strings.NewReader(`[]`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsForeignInventoryFilterYieldsEmpty(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	// The scoping join matches nothing for a foreign inventory.
	mock.ExpectQuery(`FROM inventory_items i\s+JOIN inventories inv ON inv.id = i.inventory_id\s+WHERE inv.user_id = \$1 AND i.inventory_id = \$2`).
		WithArgs(int64(7), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "inventory_id", "department", "asset_group", "category", "inventory_number",
			"asset_component", "sub_number", "acquisition_date", "asset_description", "quantity",
			"initial_value", "last_inventory_room", "current_room", "scanned",
		}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/?inventory_id=4", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItemDateWireFormat(t *testing.T) {
	router, mock := testRouter(t, &auth.Principal{ID: 7, IsActive: true})

	mock.ExpectQuery(`FROM inventory_items i\s+JOIN inventories inv`).
		WithArgs(int64(11)).
		WillReturnRows(itemRowsWithOwner(11, 3, 7))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/11/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var item Item
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&item))
	assert.Equal(t, "2024-05-01", item.AcquisitionDate)
	assert.Nil(t, item.CurrentRoom)
	assert.Nil(t, item.Scanned)
}
