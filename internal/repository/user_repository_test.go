package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BladexZN/dashboard-c/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func strPtr(v string) *string { return &v }

var userColumns = []string{"id", "email", "password_hash", "full_name", "role", "active", "avatar_url", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userColumns).
		AddRow("1", "ana@example.com", "hash", "Ana", string(models.RoleProducer), true, nil, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Ana@Example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, models.RoleProducer, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveByRoles(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userColumns).
		AddRow("p1", "p@example.com", "", "Pablo", string(models.RoleProducer), true, nil, nil, now, now).
		AddRow("d1", "d@example.com", "", "Diana", string(models.RoleDirector), true, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = TRUE AND role = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	users, err := repo.ListActiveByRoles(context.Background(), models.ProductionRoles)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveByRolesEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	users, err := NewUserRepository(db).ListActiveByRoles(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "new@example.com", FullName: "Nuevo", Role: models.RoleDesigner, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersWithFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows(userColumns).
		AddRow("u1", "ana@example.com", "", "Ana", string(models.RoleAdvisor), true, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 AND active = $2 AND (full_name ILIKE $3 OR email ILIKE $4) ORDER BY full_name ASC")).
		WithArgs(string(models.RoleAdvisor), true, "%an%", "%an%").
		WillReturnRows(rows)

	users, err := NewUserRepository(db).List(context.Background(), models.UserFilter{Role: models.RoleAdvisor, ActiveOnly: true, Search: "an"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana", users[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveMissingUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active = $2")).
		WithArgs("ghost", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewUserRepository(db).SetActive(context.Background(), "ghost", false)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
