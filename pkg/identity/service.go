package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when the email is already registered.
	ErrDuplicateUser = errors.New("user already exists")
)

// Config configures a Service.
type Config struct {
	Database DatabaseConfig
	Token    TokenConfig

	// CallTimeout bounds each database call.
	// Default: 5 seconds.
	CallTimeout time.Duration

	// BcryptCost is the cost used for new password hashes.
	// Default: DefaultBcryptCost.
	BcryptCost int
}

// Service implements Provider over a GORM database and signed tokens.
type Service struct {
	db          *gorm.DB
	tokens      *TokenService
	callTimeout time.Duration
	passwords   hasher
}

var _ Provider = (*Service)(nil)

// New opens the user database, migrates it and returns a Service.
func New(config Config) (*Service, error) {
	config.Database.ApplyDefaults()
	if err := config.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid identity database configuration: %w", err)
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 5 * time.Second
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultBcryptCost
	}

	tokens, err := NewTokenService(config.Token)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(config.Database)
	if err != nil {
		return nil, err
	}

	logger.Debug("Identity database opened", logger.KeyStoreType, string(config.Database.Type))

	return &Service{
		db:          db,
		tokens:      tokens,
		callTimeout: config.CallTimeout,
		passwords:   hasher{cost: config.BcryptCost},
	}, nil
}

// withTimeout returns a database handle bound to a bounded context.
func (s *Service) withTimeout(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	return s.db.WithContext(ctx), cancel
}

// upstream wraps unexpected database failures.
func upstream(op string, err error) error {
	return drerrors.NewUpstreamError("identity "+op, err)
}

// ============================================================================
// Provider
// ============================================================================

// SignIn checks the email/password pair and issues a session token.
func (s *Service) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	email := NormalizeEmail(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.passwords.matches(creds.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]any{"last_login": now}
	if s.passwords.stale(user.PasswordHash) {
		if hash, err := s.passwords.hash(creds.Password); err == nil {
			updates["password_hash"] = hash
		}
	}

	db, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := db.Model(&User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		// The session is valid without it.
		logger.WarnCtx(ctx, "Failed to update last login", logger.KeyUserID, user.ID, logger.Err(err))
	} else {
		user.LastLogin = &now
		if hash, ok := updates["password_hash"].(string); ok {
			user.PasswordHash = hash
			logger.DebugCtx(ctx, "Password hash upgraded", logger.KeyUserID, user.ID)
		}
	}

	logger.InfoCtx(ctx, "User signed in", logger.KeyUserID, user.ID)

	return &Session{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

// CurrentUser resolves token to its user. Tokens that are invalid, expired
// or revoked resolve to nil without error.
func (s *Service) CurrentUser(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		logger.DebugCtx(ctx, "Session token rejected", logger.KeyError, err)
		return nil, nil
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, nil
	}

	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// SignOut revokes token until it would have expired. Expired revocations are
// pruned on the way.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}

	db, cancel := s.withTimeout(ctx)
	defer cancel()

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&RevokedToken{
			JTI:       claims.ID,
			UserID:    claims.UserID,
			ExpiresAt: claims.ExpiresAt.Time.UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Where("expires_at < ?", time.Now().UTC()).Delete(&RevokedToken{}).Error
	})
	if err != nil {
		return upstream("sign out", err)
	}

	logger.InfoCtx(ctx, "User signed out", logger.KeyUserID, claims.UserID)
	return nil
}

func (s *Service) isRevoked(ctx context.Context, jti string) (bool, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&RevokedToken{}).Where("jti = ?", jti).Count(&count).Error; err != nil {
		return false, upstream("revocation lookup", err)
	}
	return count > 0, nil
}

// ============================================================================
// User management
// ============================================================================

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := firstWhere[User](db, "id", id, ErrUserNotFound)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, upstream("get user", err)
	}
	return user, err
}

// GetUserByEmail returns the user registered with email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := firstWhere[User](db, "email", NormalizeEmail(email), ErrUserNotFound)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, upstream("get user", err)
	}
	return user, err
}

// ListUsers returns every user ordered by email.
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	db, cancel := s.withTimeout(ctx)
	defer cancel()

	var users []*User
	if err := db.Order("email").Find(&users).Error; err != nil {
		return nil, upstream("list users", err)
	}
	return users, nil
}

// NewUser describes an account to create.
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
}

// CreateUser registers a new account. An empty PhotoURL gets a generated
// avatar.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	email := NormalizeEmail(nu.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	hash, err := s.passwords.hash(nu.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  nu.DisplayName,
		PhotoURL:     nu.PhotoURL,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if user.PhotoURL == "" {
		user.PhotoURL = DefaultPhotoURL(email)
	}

	db, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := db.Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateUser
		}
		return nil, upstream("create user", err)
	}

	logger.InfoCtx(ctx, "User created", logger.KeyUserID, user.ID, logger.KeyEmail, email)
	return user, nil
}

// SetPassword replaces a user's password. Existing sessions stay valid.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	hash, err := s.passwords.hash(password)
	if err != nil {
		return err
	}

	db, cancel := s.withTimeout(ctx)
	defer cancel()

	result := db.Model(&User{}).
		Where("email = ?", NormalizeEmail(email)).
		Update("password_hash", hash)
	if result.Error != nil {
		return upstream("set password", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// EnsureUser creates nu unless a user with the same email exists. It
// reports whether a user was created.
func (s *Service) EnsureUser(ctx context.Context, nu NewUser) (bool, error) {
	_, err := s.GetUserByEmail(ctx, nu.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	if _, err := s.CreateUser(ctx, nu); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create initial user: %w", err)
	}
	return true, nil
}

// Healthcheck pings the database.
func (s *Service) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return upstream("healthcheck", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return upstream("healthcheck", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
