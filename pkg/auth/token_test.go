package auth

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTokenKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key, err := GenerateTokenKey()
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(key, TokenPrefix))
		// 32 bytes base64url without padding is 43 characters.
		assert.Len(t, key, len(TokenPrefix)+43)
		assert.False(t, seen[key], "token keys must not repeat")
		seen[key] = true
	}
}

func TestGetOrCreateReusesExistingToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A second login must return the stored value, not rotate it.
	mock.ExpectQuery(`SELECT id, user_id, token, created_at FROM auth_tokens WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "created_at"}).
			AddRow(int64(1), int64(7), "inv_existing", time.Now()))

	store := NewTokenStore(db)
	token, err := store.GetOrCreate(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "inv_existing", token.Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateIssuesTokenOnFirstUse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, user_id, token, created_at FROM auth_tokens WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO auth_tokens \(user_id, token\)`).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	store := NewTokenStore(db)
	token, err := store.GetOrCreate(context.Background(), 7)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token.Key, TokenPrefix))
	assert.Equal(t, int64(7), token.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPrincipalByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM principals p\s+JOIN auth_tokens t ON t.user_id = p.id\s+WHERE t.token = \$1`).
		WithArgs("inv_key").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "first_name", "last_name", "email",
			"is_active", "is_staff", "created_at", "updated_at",
		}).AddRow(int64(7), "usos_123456", "Jan", "Kowalski", "", true, false, time.Now(), time.Now()))

	store := NewTokenStore(db)
	principal, err := store.GetPrincipalByKey(context.Background(), "inv_key")
	require.NoError(t, err)

	assert.Equal(t, "usos_123456", principal.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
