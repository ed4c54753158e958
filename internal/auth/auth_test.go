package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vempat/vempat/internal/memstore"
	"github.com/vempat/vempat/internal/models"
	"github.com/vempat/vempat/internal/remote"
)

// fakeProvider answers from a fixed user table, or fails with err
type fakeProvider struct {
	users map[string]string // email -> password
	err   error
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	if pw, ok := f.users[email]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	return &Identity{UID: "uid-" + email, Email: email, Name: "Ada", Role: "Admin"}, nil
}

func TestHashAndVerify(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(h, "argon2id$v=19$") {
		t.Errorf("unexpected encoding: %s", h)
	}

	ok, err := VerifyPassword(h, "s3cret")
	if err != nil || !ok {
		t.Errorf("verify correct password: ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword(h, "wrong")
	if err != nil || ok {
		t.Errorf("verify wrong password: ok=%v err=%v", ok, err)
	}

	h2, _ := HashPassword("s3cret")
	if h == h2 {
		t.Error("hashes should be salted")
	}

	if _, err := VerifyPassword("plain", "x"); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestOnlineLoginCachesProfile(t *testing.T) {
	ms := memstore.New()
	p := &fakeProvider{users: map[string]string{"ada@shop.ng": "pw"}}
	svc := NewService(p, ms, Options{})
	ctx := context.Background()

	sess, err := svc.Login(ctx, " ada@shop.ng ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.Offline || sess.Profile.Role != models.RoleAdmin {
		t.Errorf("session = %+v", sess)
	}

	cached, err := ms.ProfileByEmail(ctx, "ada@shop.ng")
	if err != nil {
		t.Fatalf("cached profile: %v", err)
	}
	if cached.UID != "uid-ada@shop.ng" || cached.PasswordHash == "" {
		t.Errorf("cached = %+v", cached)
	}

	if _, err := svc.Login(ctx, "ada@shop.ng", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password online: %v", err)
	}
}

func TestOfflineLoginFallsBackToCache(t *testing.T) {
	ms := memstore.New()
	p := &fakeProvider{users: map[string]string{"ada@shop.ng": "pw"}}
	svc := NewService(p, ms, Options{})
	ctx := context.Background()

	if _, err := svc.Login(ctx, "ada@shop.ng", "pw"); err != nil {
		t.Fatalf("online login: %v", err)
	}

	p.err = ErrUnreachable
	sess, err := svc.Login(ctx, "ADA@shop.ng", "pw")
	if err != nil {
		t.Fatalf("offline login: %v", err)
	}
	if !sess.Offline || sess.Profile.UID != "uid-ada@shop.ng" {
		t.Errorf("session = %+v", sess)
	}

	if _, err := svc.Login(ctx, "ada@shop.ng", "guess"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong offline password: %v", err)
	}
	if _, err := svc.Login(ctx, "bola@shop.ng", "pw"); !errors.Is(err, ErrOfflineUnavailable) {
		t.Errorf("unknown offline user: %v", err)
	}
}

func TestOfflineLoginWithoutVerifier(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()
	ms.PutProfile(ctx, models.CachedProfile{UID: "u1", Email: "sales@shop.ng", Role: models.RoleSales})

	strict := NewService(OfflineProvider{}, ms, Options{})
	if _, err := strict.Login(ctx, "sales@shop.ng", "anything"); !errors.Is(err, ErrOfflineUnavailable) {
		t.Errorf("strict: %v", err)
	}

	lax := NewService(OfflineProvider{}, ms, Options{AllowUnverified: true})
	sess, err := lax.Login(ctx, "sales@shop.ng", "anything")
	if err != nil {
		t.Fatalf("lax: %v", err)
	}
	if sess.Profile.UID != "u1" || !sess.Offline {
		t.Errorf("session = %+v", sess)
	}
}

func TestOtherProviderErrorsAreNotOffline(t *testing.T) {
	ms := memstore.New()
	svc := NewService(&fakeProvider{err: errors.New("HTTP 500")}, ms, Options{})
	_, err := svc.Login(context.Background(), "ada@shop.ng", "pw")
	if err == nil || errors.Is(err, ErrOfflineUnavailable) {
		t.Errorf("err = %v, want server error surfaced", err)
	}
}

func TestRemoteProvider(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req remote.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"unauthorized","message":"bad credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(remote.UserResponse{UID: "u9", Email: req.Email, Role: "Manager"})
	})
	srv := httptest.NewServer(mux)
	p := RemoteProvider{Client: remote.NewClient(srv.URL, "")}
	ctx := context.Background()

	id, err := p.SignIn(ctx, "m@shop.ng", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if id.UID != "u9" || id.Role != "Manager" {
		t.Errorf("identity = %+v", id)
	}

	if _, err := p.SignIn(ctx, "m@shop.ng", "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: %v", err)
	}

	srv.Close()
	if _, err := p.SignIn(ctx, "m@shop.ng", "pw"); !errors.Is(err, ErrUnreachable) {
		t.Errorf("closed server: %v", err)
	}
}
