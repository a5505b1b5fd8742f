package main

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

type memoryUsers struct {
	byEmail map[string]*models.User
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	user.ID = "su-1"
	m.byEmail[user.Email] = user
	return nil
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
		}
	}
	return nil
}

func TestSeedSuperuserCreatesThenResets(t *testing.T) {
	store := &memoryUsers{byEmail: map[string]*models.User{}}

	res, err := seedSuperuser(context.Background(), store, " Root ", "Root@Example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "root@example.com", res.User.Email)
	assert.Equal(t, models.RoleSuperuser, res.User.Role)

	res, err = seedSuperuser(context.Background(), store, "Root", "root@example.com", "secret2")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(store.byEmail["root@example.com"].PasswordHash), []byte("secret2")))
}

func TestSeedSuperuserRefusesOtherRoles(t *testing.T) {
	store := &memoryUsers{byEmail: map[string]*models.User{
		"lead@example.com": {ID: "u-1", Email: "lead@example.com", Role: models.RoleLeader},
	}}

	_, err := seedSuperuser(context.Background(), store, "Lead", "lead@example.com", "secret1")
	assert.ErrorContains(t, err, "leader account")
}

func TestSeedSuperuserValidatesInput(t *testing.T) {
	store := &memoryUsers{byEmail: map[string]*models.User{}}

	_, err := seedSuperuser(context.Background(), store, "Root", "root@example.com", "123")
	assert.Error(t, err)
	_, err = seedSuperuser(context.Background(), store, "", "root@example.com", "secret1")
	assert.Error(t, err)
}
