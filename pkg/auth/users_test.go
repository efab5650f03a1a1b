package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userAdminRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	router := mux.NewRouter()
	NewUserHandlers(NewPrincipalStore(db)).RegisterRoutes(router)
	return router, mock
}

func TestUserList(t *testing.T) {
	router, mock := userAdminRouter(t)

	mock.ExpectQuery(`SELECT (.+) FROM principals ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "first_name", "last_name", "email",
			"is_active", "is_staff", "created_at", "updated_at",
		}).
			AddRow(int64(1), "usos_1", "A", "B", "", true, false, time.Now(), time.Now()).
			AddRow(int64(2), "usos_2", "C", "D", "", true, true, time.Now(), time.Now()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var users []Principal
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&users))
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetNotFound(t *testing.T) {
	router, mock := userAdminRouter(t)

	mock.ExpectQuery(`SELECT (.+) FROM principals WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestUserDelete(t *testing.T) {
	router, mock := userAdminRouter(t)

	mock.ExpectExec(`DELETE FROM principals WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/7/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
