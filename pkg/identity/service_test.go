package identity

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := New(Config{
		Database: DatabaseConfig{
			Type:   DatabaseTypeSQLite,
			SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "identity.db")},
		},
		Token:      TokenConfig{Secret: testSecret, TTL: time.Hour},
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func demoUser() NewUser {
	return NewUser{
		Email:       "test@example.com",
		Password:    "password",
		DisplayName: "Test User",
	}
}

func TestSignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateUser(ctx, demoUser())
	require.NoError(t, err)
	assert.Equal(t, "https://i.pravatar.cc/150?u=test%40example.com", created.PhotoURL)

	t.Run("valid credentials", func(t *testing.T) {
		session, err := svc.SignIn(ctx, Credentials{Email: " Test@Example.com ", Password: "password"})
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, "Bearer", session.TokenType)
		assert.Equal(t, created.ID, session.User.ID)
		assert.NotNil(t, session.User.LastLogin)
		assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, Credentials{Email: "test@example.com", Password: "nope-nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, Credentials{Email: "who@example.com", Password: "password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		_, err := svc.SignIn(ctx, Credentials{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.CreateUser(ctx, demoUser())
	require.NoError(t, err)
	session, err := svc.SignIn(ctx, Credentials{Email: "test@example.com", Password: "password"})
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		user, err := svc.CurrentUser(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("garbage token", func(t *testing.T) {
		user, err := svc.CurrentUser(ctx, "not-a-token")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("valid token", func(t *testing.T) {
		user, err := svc.CurrentUser(ctx, session.Token)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, created.ID, user.ID)
		assert.Equal(t, "Test User", user.DisplayName)
	})

	t.Run("token from another secret", func(t *testing.T) {
		other, err := NewTokenService(TokenConfig{Secret: "another-secret-that-is-also-32-characters"})
		require.NoError(t, err)
		forged, _, err := other.Issue(created)
		require.NoError(t, err)

		user, err := svc.CurrentUser(ctx, forged)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, demoUser())
	require.NoError(t, err)

	first, err := svc.SignIn(ctx, Credentials{Email: "test@example.com", Password: "password"})
	require.NoError(t, err)
	second, err := svc.SignIn(ctx, Credentials{Email: "test@example.com", Password: "password"})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, first.Token))

	user, err := svc.CurrentUser(ctx, first.Token)
	require.NoError(t, err)
	assert.Nil(t, user, "signed out token must not resolve")

	user, err = svc.CurrentUser(ctx, second.Token)
	require.NoError(t, err)
	assert.NotNil(t, user, "other sessions stay valid")

	assert.NoError(t, svc.SignOut(ctx, first.Token), "signing out twice is not an error")
	assert.NoError(t, svc.SignOut(ctx, "garbage"))
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, demoUser())
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, NewUser{Email: "TEST@example.com", Password: "password"})
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = svc.CreateUser(ctx, NewUser{Email: "short@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = svc.CreateUser(ctx, NewUser{Email: " ", Password: "password"})
	assert.Error(t, err)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "test@example.com", users[0].Email)
}

func TestSetPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateUser(ctx, demoUser())
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(ctx, "test@example.com", "new-password"))

	_, err = svc.SignIn(ctx, Credentials{Email: "test@example.com", Password: "password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, Credentials{Email: "test@example.com", Password: "new-password"})
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.SetPassword(ctx, "who@example.com", "new-password"), ErrUserNotFound)
}

func TestEnsureUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.EnsureUser(ctx, demoUser())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureUser(ctx, demoUser())
	require.NoError(t, err)
	assert.False(t, created)

	// Concurrent starts must not fail on the unique email.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.EnsureUser(ctx, NewUser{Email: "race@example.com", Password: "password"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	assert.NoError(t, svc.Healthcheck(context.Background()))
}

func TestSignInUpgradesStaleHash(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)
	svc.passwords = hasher{cost: bcrypt.MinCost + 1}

	u, err := svc.CreateUser(ctx, demoUser())
	require.NoError(t, err)

	weak, err := hasher{cost: bcrypt.MinCost}.hash("password")
	require.NoError(t, err)
	require.NoError(t, svc.db.Model(&User{}).Where("id = ?", u.ID).Update("password_hash", weak).Error)

	_, err = svc.SignIn(ctx, Credentials{Email: u.Email, Password: "password"})
	require.NoError(t, err)

	stored, err := svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	_, err = svc.SignIn(ctx, Credentials{Email: u.Email, Password: "password"})
	assert.NoError(t, err)
}
