package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dveraz/carbontrack/internal/model"
)

func TestLogin_SeededAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := NewAuth(s).Login(ctx, "admin", "admin")
	if err != nil {
		t.Fatalf("Login(admin) failed: %v", err)
	}
	if u.ID != 1 {
		t.Errorf("admin id = %d, want 1", u.ID)
	}
	if u.Role.Name != "ADMINISTRADOR" {
		t.Errorf("admin role = %q, want ADMINISTRADOR", u.Role.Name)
	}
	if !u.Active {
		t.Error("seeded admin is not active")
	}
}

func TestLogin_GenericFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	auth := NewAuth(s)

	// Unknown user and wrong password must be indistinguishable.
	_, errUnknown := auth.Login(ctx, "nobody", "admin")
	_, errWrongPw := auth.Login(ctx, "admin", "wrong")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("failure messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLogin_BlockedAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	users := NewUsers(s)
	if err := users.Create(ctx, "carla", "1234", "Carla Ruiz", model.Role{ID: 2, Name: "USUARIO"}, nil); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	auth := NewAuth(s)
	u, err := auth.Login(ctx, "carla", "1234")
	if err != nil {
		t.Fatalf("Login before block failed: %v", err)
	}

	if err := users.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive(false) failed: %v", err)
	}

	// Correct credentials, blocked account.
	if _, err := auth.Login(ctx, "carla", "1234"); !errors.Is(err, ErrAccountBlocked) {
		t.Errorf("blocked login: got %v, want ErrAccountBlocked", err)
	}

	// Wrong password on a blocked account must not reveal the block.
	if _, err := auth.Login(ctx, "carla", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("blocked + wrong password: got %v, want ErrInvalidCredentials", err)
	}

	if err := users.SetActive(ctx, u.ID, true); err != nil {
		t.Fatalf("SetActive(true) failed: %v", err)
	}
	if _, err := auth.Login(ctx, "carla", "1234"); err != nil {
		t.Errorf("login after unblock failed: %v", err)
	}
}

func TestHashPassword_StableDigest(t *testing.T) {
	// Digest of "admin", as written by the seeder.
	const want = "8c6976e5b5410415bde908bd4dee15dfb167a9c873fc4bb8a81f6f2ab448a918"
	if got := HashPassword("admin"); got != want {
		t.Errorf("HashPassword(admin) = %q, want %q", got, want)
	}
	if HashPassword("") == "" {
		t.Error("empty password must still hash")
	}
}
