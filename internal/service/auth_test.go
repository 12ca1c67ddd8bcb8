package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/conduit/internal/domain"
	"github.com/msomdec/conduit/internal/repository/sqldb"
	"github.com/msomdec/conduit/internal/service"
)

// Cost 4 keeps bcrypt fast in tests.
const testBcryptCost = 4

func newTestDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.New(filepath.Join(t.TempDir(), "test.db"), sqldb.Options{})
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthService(t *testing.T) (*service.AuthService, *sqldb.DB) {
	t.Helper()
	db := newTestDB(t)
	return service.NewAuthService(db.Users(), testBcryptCost, 0), db
}

func register(t *testing.T, auth *service.AuthService, username string) (*domain.User, string) {
	t.Helper()
	user, token, err := auth.Register(context.Background(), username, username+"@example.com", "password123")
	if err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	return user, token
}

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %T: %v", err, err)
	}
	return verr.Fields
}

func TestAuthService_Register_Success(t *testing.T) {
	auth, _ := newTestAuthService(t)

	user, token, err := auth.Register(context.Background(), "jake", "jake@jake.jake", "jakejake")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected user ID to be set")
	}
	if user.PasswordHash == "jakejake" || user.PasswordHash == "" {
		t.Fatal("expected password to be hashed")
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
}

func TestAuthService_Register_AccumulatesErrors(t *testing.T) {
	auth, _ := newTestAuthService(t)

	_, _, err := auth.Register(context.Background(), "ab", "not-an-email", "short")
	fields := validationFields(t, err)

	for _, f := range []string{"username", "email", "password"} {
		if len(fields[f]) == 0 {
			t.Errorf("expected an error for %s, got %v", f, fields)
		}
	}
}

func TestAuthService_Register_BlankFields(t *testing.T) {
	auth, _ := newTestAuthService(t)

	_, _, err := auth.Register(context.Background(), "  ", "", "")
	fields := validationFields(t, err)

	if got := fields["username"]; len(got) != 1 || got[0] != "can't be blank" {
		t.Fatalf("unexpected username errors: %v", got)
	}
	if got := fields["email"]; len(got) != 1 || got[0] != "can't be blank" {
		t.Fatalf("unexpected email errors: %v", got)
	}
}

func TestAuthService_Register_Taken(t *testing.T) {
	auth, _ := newTestAuthService(t)
	register(t, auth, "jake")

	_, _, err := auth.Register(context.Background(), "jake", "jake@example.com", "password123")
	fields := validationFields(t, err)

	if got := fields["username"]; len(got) != 1 || got[0] != "has already been taken" {
		t.Fatalf("unexpected username errors: %v", got)
	}
	if got := fields["email"]; len(got) != 1 || got[0] != "has already been taken" {
		t.Fatalf("unexpected email errors: %v", got)
	}
}

func TestAuthService_Login(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()
	registered, _ := register(t, auth, "jake")

	user, token, err := auth.Login(ctx, "jake@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected user %d, got %d", registered.ID, user.ID)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
}

func TestAuthService_Login_Rejected(t *testing.T) {
	auth, _ := newTestAuthService(t)
	register(t, auth, "jake")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "jake@example.com", "wrongpassword"},
		{"unknown email", "nobody@example.com", "password123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := auth.Login(context.Background(), tc.email, tc.password)
			fields := validationFields(t, err)
			if got := fields["password"]; len(got) != 1 || got[0] != "invalid email or password" {
				t.Fatalf("unexpected errors: %v", fields)
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	auth, _ := newTestAuthService(t)
	registered, token := register(t, auth, "jake")

	user, err := auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != registered.ID || user.Email != registered.Email {
		t.Fatalf("expected user %+v, got %+v", registered, user)
	}
}

func TestAuthService_Authenticate_TokenClaims(t *testing.T) {
	auth, _ := newTestAuthService(t)
	registered, token := register(t, auth, "jake")

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims.Issuer != registered.Email {
		t.Fatalf("expected iss %q, got %q", registered.Email, claims.Issuer)
	}
	if claims.Subject == "" {
		t.Fatal("expected sub claim")
	}
	if claims.ExpiresAt != nil {
		t.Fatal("expected no exp claim without a TTL")
	}
}

func TestAuthService_Authenticate_Rejects(t *testing.T) {
	auth, db := newTestAuthService(t)
	user, token := register(t, auth, "jake")
	_, annaToken := register(t, auth, "anna")
	sub := strconv.FormatInt(user.ID, 10)

	signWith := func(claims jwt.Claims, key string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	// A user that does not exist in the store.
	ghost := &domain.User{ID: 999, Email: "ghost@example.com", PasswordHash: "whatever"}
	ghostToken, err := auth.IssueToken(ghost)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	stored, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer: user.Email, Subject: sub,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-valid-jwt"},
		{"tampered payload", tamper(token, annaToken)},
		{"wrong key", signWith(jwt.RegisteredClaims{Issuer: user.Email, Subject: sub}, "some-other-key")},
		{"missing issuer", signWith(jwt.RegisteredClaims{Subject: sub}, stored.PasswordHash)},
		{"missing subject", signWith(jwt.RegisteredClaims{Issuer: user.Email}, stored.PasswordHash)},
		{"non numeric subject", signWith(jwt.RegisteredClaims{Issuer: user.Email, Subject: "jake"}, stored.PasswordHash)},
		{"mismatched email", signWith(jwt.RegisteredClaims{Issuer: "other@example.com", Subject: sub}, stored.PasswordHash)},
		{"unknown subject", ghostToken},
		{"alg none", noneToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(context.Background(), tc.token)
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

// tamper returns token with its payload replaced by the payload of other,
// keeping the original header and signature.
func tamper(token, other string) string {
	parts := strings.Split(token, ".")
	parts[1] = strings.Split(other, ".")[1]
	return strings.Join(parts, ".")
}

func TestAuthService_Authenticate_Expired(t *testing.T) {
	db := newTestDB(t)
	auth := service.NewAuthService(db.Users(), testBcryptCost, time.Hour)
	user, token := register(t, auth, "jake")
	sub := strconv.FormatInt(user.ID, 10)

	if _, err := auth.Authenticate(context.Background(), token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	stored, err := db.Users().GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    user.Email,
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte(stored.PasswordHash))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := auth.Authenticate(context.Background(), expired); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestAuthService_PasswordChangeInvalidatesTokens(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()
	user, oldToken := register(t, auth, "jake")

	newPassword := "a-new-password"
	updated, newToken, err := auth.Update(ctx, user, domain.UserPatch{Password: &newPassword})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PasswordHash == user.PasswordHash {
		t.Fatal("expected password hash to change")
	}

	if _, err := auth.Authenticate(ctx, oldToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected old token to be rejected, got %v", err)
	}
	if _, err := auth.Authenticate(ctx, newToken); err != nil {
		t.Fatalf("expected new token to be accepted: %v", err)
	}
	if _, _, err := auth.Login(ctx, user.Email, newPassword); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAuthService_Update_Partial(t *testing.T) {
	auth, db := newTestAuthService(t)
	ctx := context.Background()
	user, _ := register(t, auth, "jake")

	bio := "I work at statefarm"
	updated, _, err := auth.Update(ctx, user, domain.UserPatch{Bio: &bio})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Username != "jake" || updated.Email != user.Email {
		t.Fatalf("expected untouched fields to be preserved, got %+v", updated)
	}
	if updated.Bio == nil || *updated.Bio != bio {
		t.Fatalf("expected bio %q, got %v", bio, updated.Bio)
	}

	empty := ""
	cleared, _, err := auth.Update(ctx, updated, domain.UserPatch{Bio: &empty})
	if err != nil {
		t.Fatalf("Update clear bio: %v", err)
	}
	if cleared.Bio != nil {
		t.Fatalf("expected bio to be cleared, got %q", *cleared.Bio)
	}

	stored, err := db.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Bio != nil {
		t.Fatal("expected cleared bio to be persisted")
	}
}

func TestAuthService_Update_Validation(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()
	user, _ := register(t, auth, "jake")
	register(t, auth, "anna")

	empty := ""
	taken := "anna"
	badEmail := "nope"

	_, _, err := auth.Update(ctx, user, domain.UserPatch{Username: &taken, Email: &badEmail, Password: &empty})
	fields := validationFields(t, err)

	if got := fields["username"]; len(got) != 1 || got[0] != "has already been taken" {
		t.Fatalf("unexpected username errors: %v", got)
	}
	if got := fields["email"]; len(got) != 1 || got[0] != "is invalid" {
		t.Fatalf("unexpected email errors: %v", got)
	}
	if got := fields["password"]; len(got) != 1 || got[0] != "can't be blank" {
		t.Fatalf("unexpected password errors: %v", got)
	}

	_, _, err = auth.Update(ctx, user, domain.UserPatch{Username: &empty})
	fields = validationFields(t, err)
	if !strings.Contains(strings.Join(fields["username"], ","), "blank") {
		t.Fatalf("expected blank username error, got %v", fields)
	}
}

func TestAuthService_Update_KeepOwnUsername(t *testing.T) {
	auth, _ := newTestAuthService(t)
	user, _ := register(t, auth, "jake")

	same := "jake"
	sameEmail := user.Email
	if _, _, err := auth.Update(context.Background(), user, domain.UserPatch{Username: &same, Email: &sameEmail}); err != nil {
		t.Fatalf("expected resubmitting own username and email to succeed: %v", err)
	}
}

func TestAuthService_Update_EmailChangeRotatesToken(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()
	user, oldToken := register(t, auth, "jake")

	email := "jacob@example.com"
	_, newToken, err := auth.Update(ctx, user, domain.UserPatch{Email: &email})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// The issuer claim no longer matches the stored email.
	if _, err := auth.Authenticate(ctx, oldToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected old token to be rejected, got %v", err)
	}
	got, err := auth.Authenticate(ctx, newToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.Email != email {
		t.Fatalf("expected email %q, got %q", email, got.Email)
	}
}
