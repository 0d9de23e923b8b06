// internal/auth/service_test.go
package auth

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	stderrors "errors"

	"agribot/internal/common/errors"
	"agribot/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	existsQuery = "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)"
	hashQuery   = "SELECT password_hash FROM users WHERE username = $1"
	insertQuery = "INSERT INTO users (username, password_hash) VALUES ($1, $2)"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger.NewTestLogger(t)), mock
}

func TestRegisterNewUser(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("ramesh").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("ramesh", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := service.Register(context.Background(), "ramesh", "secret123")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUser(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(existsQuery)).
		WithArgs("ramesh").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := service.Register(context.Background(), "ramesh", "secret123")

	require.Error(t, err)
	var stdErr *errors.StandardError
	require.True(t, stderrors.As(err, &stdErr))
	assert.Equal(t, errors.ErrCodeDuplicateUser, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsEmptyCredentials(t *testing.T) {
	service, _ := newMockService(t)

	assert.Error(t, service.Register(context.Background(), "", "secret"))
	assert.Error(t, service.Register(context.Background(), "ramesh", ""))
}

func TestLoginSuccess(t *testing.T) {
	service, mock := newMockService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(hashQuery)).
		WithArgs("ramesh").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))

	ok, err := service.Login(context.Background(), "ramesh", "secret123")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginWrongPassword(t *testing.T) {
	service, mock := newMockService(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(hashQuery)).
		WithArgs("ramesh").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow(string(hash)))

	ok, err := service.Login(context.Background(), "ramesh", "wrong")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginUnknownUser(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(hashQuery)).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))

	ok, err := service.Login(context.Background(), "nobody", "whatever")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginDatabaseError(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta(hashQuery)).
		WithArgs("ramesh").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := service.Login(context.Background(), "ramesh", "secret123")

	assert.Error(t, err)
}
