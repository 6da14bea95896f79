package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"newssense/internal/domain/entity"
	"newssense/internal/infra/adapter/persistence/sqlite"
	"newssense/internal/infra/db"
)

const testSecret = "0123456789abcdef0123456789abcdef"

/* ────────────────────────────  ヘルパ  ──────────────────────────── */

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Options{Driver: db.DriverSQLite, DSN: ":memory:", Pool: db.DefaultConnectionConfig()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.MigrateUp(ctx, conn, db.DriverSQLite))

	return &Service{
		Users:  sqlite.NewUserRepo(conn),
		Tokens: NewTokenIssuer(testSecret, time.Hour),
		Cost:   bcrypt.MinCost,
	}
}

/* ────────────────────────────  Register / Login  ──────────────────────────── */

func TestService_RegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Email: " Reader@Example.com ", Password: "hunter2hunter2", Name: " Reader "})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "reader@example.com", sess.User.Email)
	assert.Equal(t, "Reader", sess.User.Name)
	assert.NotEqual(t, "hunter2hunter2", sess.User.PasswordHash)
	assert.True(t, sess.User.Preferences.IsEmpty())

	login, err := svc.Login(ctx, "READER@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	got, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.ID)
}

func TestService_Register_Validation(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Password: "longenough"}},
		{"display name email", RegisterInput{Email: "Bob <bob@example.com>", Password: "longenough"}},
		{"short password", RegisterInput{Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, entity.ErrInvalidInput)
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "A@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_UnknownUser(t *testing.T) {
	svc := newService(t)
	token, err := svc.Tokens.Issue("8f2b1d8e-5a52-4d0c-9f0e-3c1a2b3c4d5e")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

/* ────────────────────────────  TokenIssuer  ──────────────────────────── */

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 0)
	assert.Equal(t, DefaultTokenTTL, issuer.ttl)

	id := "8f2b1d8e-5a52-4d0c-9f0e-3c1a2b3c4d5e"
	token, err := issuer.Issue(id)
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	id := "8f2b1d8e-5a52-4d0c-9f0e-3c1a2b3c4d5e"
	issuer := NewTokenIssuer(testSecret, time.Hour)

	expired := NewTokenIssuer(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(id)
	require.NoError(t, err)

	otherSecret, err := NewTokenIssuer(strings.Repeat("x", 32), time.Hour).Issue(id)
	require.NoError(t, err)

	badSubject, err := issuer.Issue("not-a-uuid")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   id,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: id}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "abc.def.ghi",
		"expired":      expiredToken,
		"wrong secret": otherSecret,
		"bad subject":  badSubject,
		"none alg":     noneAlg,
		"missing exp":  noExp,
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Parse(token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr string
	}{
		{"ok", testSecret, ""},
		{"empty", "", "must be set"},
		{"short", "too-short", "at least 32"},
		{"repeated weak word", strings.Repeat("secret", 6), "weak"},
		{"repeated weak word mixed case", strings.Repeat("PassWord", 4), "weak"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.secret)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
