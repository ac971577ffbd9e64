package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"papertrader/internal/models"
	"papertrader/internal/trading"
)

type stubStore struct {
	users  map[uint64]*models.User
	nextID uint64
}

func newStubStore() *stubStore {
	return &stubStore{users: map[uint64]*models.User{}, nextID: 1}
}

func (s *stubStore) InsertUser(ctx context.Context, item *models.User) error {
	item.ID = s.nextID
	s.nextID++
	c := *item
	s.users[item.ID] = &c
	return nil
}

func (s *stubStore) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	return s.users[id], nil
}

func (s *stubStore) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Login, login) {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func newService() *Service {
	return &Service{
		Store: newStubStore(),
		JWT:   JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterParams{
		Login: "alice_1", Password: "s3cret", Email: "Alice@Example.com",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email=%s want lowercased", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordSalt == "" {
		t.Fatalf("password hash or salt missing")
	}
	if user.PasswordHash == "s3cret" {
		t.Fatalf("password stored in the clear")
	}

	token, expiresAt, logged, err := svc.Login(ctx, "alice_1", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("logged in as %d want %d", logged.ID, user.ID)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("token already expired: %s", expiresAt)
	}

	claims, err := svc.JWT.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != user.ID || claims.Login != "alice_1" {
		t.Fatalf("claims=%+v", claims)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	cases := []RegisterParams{
		{Login: "ab", Password: "s3cret", Email: "a@b.co"},
		{Login: "bad login", Password: "s3cret", Email: "a@b.co"},
		{Login: "verylong" + strings.Repeat("x", 50), Password: "s3cret", Email: "a@b.co"},
		{Login: "alice", Password: "abc", Email: "a@b.co"},
		{Login: "alice", Password: "s3cret", Email: "not-an-email"},
	}
	for i, params := range cases {
		if _, err := svc.Register(ctx, params); !errors.Is(err, trading.ErrValidation) {
			t.Fatalf("case %d: err=%v want ErrValidation", i, err)
		}
	}
}

func TestRegister_DuplicateLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Login: "alice", Password: "s3cret", Email: "a@b.co"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterParams{Login: "Alice", Password: "s3cret", Email: "c@d.co"})
	if !errors.Is(err, trading.ErrValidation) {
		t.Fatalf("err=%v want ErrValidation", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Login: "alice", Password: "s3cret", Email: "a@b.co"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, trading.ErrValidation) {
		t.Fatalf("wrong password: err=%v want ErrValidation", err)
	}
	if _, _, _, err := svc.Login(ctx, "nobody", "s3cret"); !errors.Is(err, trading.ErrValidation) {
		t.Fatalf("unknown login: err=%v want ErrValidation", err)
	}
}

func TestJWT_RejectsTamperedToken(t *testing.T) {
	j := JWT{Secret: []byte("test-secret"), TokenTTL: time.Hour}
	token, _, err := j.Sign(Claims{UserID: 1, Login: "alice"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	other := JWT{Secret: []byte("other-secret"), TokenTTL: time.Hour}
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("token verified with the wrong secret")
	}
}

func TestValidateSymbolAndCurrency(t *testing.T) {
	for _, sym := range []string{"AAPL", "BRK.B", "msft", "A1"} {
		if err := ValidateSymbol(sym); err != nil {
			t.Fatalf("symbol %q rejected: %v", sym, err)
		}
	}
	for _, sym := range []string{"", "TOO LONG SYMBOL NAME HERE", "BAD$"} {
		if err := ValidateSymbol(sym); !errors.Is(err, trading.ErrValidation) {
			t.Fatalf("symbol %q accepted", sym)
		}
	}
	if err := ValidateCurrency("USD"); err != nil {
		t.Fatalf("USD rejected: %v", err)
	}
	for _, cur := range []string{"US", "USDX", "U$D"} {
		if err := ValidateCurrency(cur); !errors.Is(err, trading.ErrValidation) {
			t.Fatalf("currency %q accepted", cur)
		}
	}
}
