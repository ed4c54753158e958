// Package auth signs users in against the remote identity service and falls
// back to the cached profile when the remote cannot be reached.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/remote"
	"github.com/vempat/vempat/internal/store"
)

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrOfflineUnavailable is returned offline when no usable cached
	// profile exists for the email.
	ErrOfflineUnavailable = errors.New("offline login unavailable: sign in online once first")
	// ErrUnreachable marks provider failures caused by the network.
	ErrUnreachable = errors.New("identity service unreachable")
)

// Identity is a user as the remote identity service knows it.
type Identity struct {
	UID   string
	Email string
	Name  string
	Role  string
}

// IdentityProvider verifies credentials remotely. Implementations wrap
// network failures with ErrUnreachable and rejected credentials with
// ErrInvalidCredentials.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
}

// Session is the result of a successful login.
type Session struct {
	Profile models.CachedProfile
	Offline bool
}

// Options configures a Service.
type Options struct {
	// AllowUnverified lets a cached profile without a stored password
	// verifier sign in offline on email alone.
	AllowUnverified bool
	Now             func() time.Time
}

// Service logs users in and maintains the profile cache.
type Service struct {
	provider        IdentityProvider
	profiles        store.Profiles
	allowUnverified bool
	now             func() time.Time
}

// NewService returns a login service.
func NewService(provider IdentityProvider, profiles store.Profiles, opts Options) *Service {
	s := &Service{
		provider:        provider,
		profiles:        profiles,
		allowUnverified: opts.AllowUnverified,
		now:             opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Login signs in remotely and caches the profile. If the remote is
// unreachable it signs in from the cache instead.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	id, err := s.provider.SignIn(ctx, email, password)
	switch {
	case err == nil:
		p, err := s.cacheIdentity(ctx, id, password)
		if err != nil {
			return nil, err
		}
		return &Session{Profile: *p}, nil
	case errors.Is(err, ErrUnreachable):
		slog.Info("auth: remote unreachable, trying offline login", "email", email, "err", err)
		return s.offlineLogin(ctx, email, password)
	case errors.Is(err, ErrInvalidCredentials):
		return nil, err
	default:
		return nil, fmt.Errorf("sign in: %w", err)
	}
}

func (s *Service) cacheIdentity(ctx context.Context, id *Identity, password string) (*models.CachedProfile, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	p := models.CachedProfile{
		UID:          id.UID,
		Email:        id.Email,
		Name:         id.Name,
		Role:         models.ParseRole(id.Role),
		PasswordHash: hash,
		CachedAt:     s.now().UTC(),
	}
	if err := s.CacheProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CacheProfile stores p for later offline login.
func (s *Service) CacheProfile(ctx context.Context, p models.CachedProfile) error {
	if err := s.profiles.PutProfile(ctx, p); err != nil {
		return fmt.Errorf("cache profile: %w", err)
	}
	return nil
}

// Profile returns the cached profile for uid.
func (s *Service) Profile(ctx context.Context, uid string) (*models.CachedProfile, error) {
	return s.profiles.ProfileByID(ctx, uid)
}

func (s *Service) offlineLogin(ctx context.Context, email, password string) (*Session, error) {
	p, err := s.profiles.ProfileByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOfflineUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("read cached profile: %w", err)
	}

	if p.PasswordHash == "" {
		if !s.allowUnverified {
			return nil, ErrOfflineUnavailable
		}
		slog.Warn("auth: offline login without password verifier", "uid", p.UID)
		return &Session{Profile: *p, Offline: true}, nil
	}

	ok, err := VerifyPassword(p.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify cached password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &Session{Profile: *p, Offline: true}, nil
}

// RemoteProvider signs in through the vempat-remote server.
type RemoteProvider struct {
	Client *remote.Client
}

// SignIn implements IdentityProvider.
func (p RemoteProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	u, err := p.Client.SignIn(ctx, email, password)
	switch {
	case err == nil:
		return &Identity{UID: u.UID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
	case remote.IsNetworkError(err):
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	case errors.Is(err, remote.ErrUnauthorized), errors.Is(err, remote.ErrNotFound):
		return nil, ErrInvalidCredentials
	default:
		return nil, err
	}
}

// OfflineProvider always reports the remote as unreachable, forcing
// cached logins.
type OfflineProvider struct{}

func (OfflineProvider) SignIn(context.Context, string, string) (*Identity, error) {
	return nil, ErrUnreachable
}
