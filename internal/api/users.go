package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vempat/vempat/internal/auth"
	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/remote"
)

// Reserved collections holding accounts. The document routes reject
// names starting with "_", so these are never served directly.
const (
	usersCollection      = "_users"
	userEmailsCollection = "_user_emails"
)

var errEmailTaken = errors.New("email already registered")

var validate = validator.New(validator.WithRequiredStructEnabled())

// userDoc is the stored account.
type userDoc struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash"`
}

func (u *userDoc) response() remote.UserResponse {
	return remote.UserResponse{UID: u.UID, Email: u.Email, Name: u.Name, Role: u.Role}
}

type newUser struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Name     string
	Role     string
}

// userStore keeps accounts in the document store: one document per user
// keyed by uid and an email -> uid index document.
type userStore struct {
	docs remote.DocStore
	mu   sync.Mutex // serializes create's check-then-write
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (us *userStore) byEmail(ctx context.Context, email string) (*userDoc, error) {
	idx, err := us.docs.Get(ctx, userEmailsCollection, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	uid, _ := idx["uid"].(string)
	if uid == "" {
		return nil, remote.ErrNotFound
	}
	f, err := us.docs.Get(ctx, usersCollection, uid)
	if err != nil {
		return nil, err
	}
	var u userDoc
	if err := f.Decode(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return &u, nil
}

func (us *userStore) create(ctx context.Context, nu newUser) (*userDoc, error) {
	nu.Email = normalizeEmail(nu.Email)
	if err := validate.Struct(nu); err != nil {
		return nil, err
	}

	us.mu.Lock()
	defer us.mu.Unlock()

	if _, err := us.byEmail(ctx, nu.Email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, remote.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return nil, err
	}
	u := &userDoc{
		UID:          uuid.NewString(),
		Email:        nu.Email,
		Name:         nu.Name,
		Role:         string(models.ParseRole(nu.Role)),
		PasswordHash: hash,
	}
	fields, err := remote.ToFields(u)
	if err != nil {
		return nil, err
	}
	if err := us.docs.Merge(ctx, usersCollection, u.UID, fields); err != nil {
		return nil, fmt.Errorf("write user: %w", err)
	}
	if err := us.docs.Merge(ctx, userEmailsCollection, u.Email, remote.Fields{"uid": u.UID}); err != nil {
		return nil, fmt.Errorf("write email index: %w", err)
	}
	return u, nil
}

// authenticate returns the user when password matches.
func (us *userStore) authenticate(ctx context.Context, email, password string) (*userDoc, error) {
	u, err := us.byEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, auth.ErrInvalidCredentials
	}
	return u, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := s.users.authenticate(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, remote.ErrNotFound), errors.Is(err, auth.ErrInvalidCredentials):
		s.metrics.recordLogin("rejected")
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	default:
		s.metrics.recordLogin("error")
		logFor(r.Context()).Error("login", "err", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	s.metrics.recordLogin("ok")
	logFor(r.Context()).Info("login", "uid", u.UID)
	writeJSON(w, http.StatusOK, u.response())
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req remote.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := s.users.create(r.Context(), newUser{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, verrs.Error())
		return
	case errors.Is(err, errEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		logFor(r.Context()).Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	logFor(r.Context()).Info("user created", "uid", u.UID, "role", u.Role)
	writeJSON(w, http.StatusCreated, u.response())
}
