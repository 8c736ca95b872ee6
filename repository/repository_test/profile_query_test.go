package repository_test_test

import (
	"testing"

	"passkey_auth_ms/repository/query_repository"
	"passkey_auth_ms/repository/repository_test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGetByEmail_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "email", "active"}).
		AddRow(1, "player@example.com", true)

	// Email matching is case-insensitive on both sides.
	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE LOWER\(email\) = LOWER\(\$1\) ORDER BY "profiles"\."id" LIMIT \$2`).
		WithArgs("Player@Example.com", 1).
		WillReturnRows(rows)

	repo := query_repository.NewProfileQueryRepository()
	profile, err := repo.GetByEmail(conn, "Player@Example.com")

	assert.NoError(t, err)
	assert.NotNil(t, profile)
	assert.Equal(t, "player@example.com", profile.Email)
	assert.True(t, profile.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail_NotFound(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE LOWER\(email\) = LOWER\(\$1\) ORDER BY "profiles"\."id" LIMIT \$2`).
		WithArgs("nobody@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	repo := query_repository.NewProfileQueryRepository()
	profile, err := repo.GetByEmail(conn, "nobody@example.com")

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, profile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "email", "active"}).
		AddRow(42, "player@example.com", true)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE "profiles"\."id" = \$1 ORDER BY "profiles"\."id" LIMIT \$2`).
		WithArgs(42, 1).
		WillReturnRows(rows)

	repo := query_repository.NewProfileQueryRepository()
	profile, err := repo.GetByID(conn, 42)

	assert.NoError(t, err)
	assert.Equal(t, uint(42), profile.Id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
