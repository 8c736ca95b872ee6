package repository_test_test

import (
	"testing"
	"time"

	"passkey_auth_ms/repository/command_repository"
	"passkey_auth_ms/repository/repository_test"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestRevoke_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "passkey_credentials" SET .+ WHERE user_id = \$\d+ AND credential_id = \$\d+ AND revoked_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := command_repository.NewCredentialCommandRepository()
	rows, err := repo.Revoke(conn, 42, "Y3JlZC0x", time.Now())

	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevoke_AlreadyRevokedTouchesNothing(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "passkey_credentials" SET .+ WHERE user_id = \$\d+ AND credential_id = \$\d+ AND revoked_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	repo := command_repository.NewCredentialCommandRepository()
	rows, err := repo.Revoke(conn, 42, "Y3JlZC0x", time.Now())

	assert.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAfterLogin_SQLMock(t *testing.T) {
	conn, mock := repository_test.SetupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "passkey_credentials" SET .+ WHERE credential_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := command_repository.NewCredentialCommandRepository()
	err := repo.UpdateAfterLogin(conn, "Y3JlZC0x", 8, time.Now())

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
