package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/construplaza/construplaza-backend/pkg/auth"
	"github.com/construplaza/construplaza-backend/pkg/auth/session"
	"github.com/construplaza/construplaza-backend/pkg/config"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
	"github.com/construplaza/construplaza-backend/pkg/logger"
	"github.com/construplaza/construplaza-backend/pkg/security"
)

// Anchored to the real clock so tokens signed at the frozen instant are
// still within their TTL when ParseAccessToken validates with time.Now.
var testNow = time.Now().UTC().Truncate(time.Second)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "construplaza-test",
		ExpirationMinutes:      30,
		RefreshTokenTTLMinutes: 43200,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKiB:    8192,
		ArgonTime:         1,
		ArgonParallelism:  1,
		ArgonSaltLength:   16,
		ArgonKeyLength:    32,
		MinPasswordLength: 8,
	}
}

type stubRepo struct {
	users map[uuid.UUID]*models.User
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[uuid.UUID]*models.User{}}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubRepo) CreateUser(ctx context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}
func (s *stubRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}
func (s *stubRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return user, nil
}

// stubSessions mirrors the redis-backed manager with an in-memory map.
type stubSessions struct {
	tokens  map[string]string
	revoked []string
	counter int
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: map[string]string{}}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.counter++
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	s.counter++
	newAccessID := uuid.NewString()
	newToken := "refresh-" + newAccessID
	s.tokens[newAccessID] = newToken
	return newAccessID, newToken, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubSuppliers struct {
	supplier *models.Supplier
}

func (s *stubSuppliers) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Supplier, error) {
	return s.supplier, nil
}

type fixture struct {
	svc       *Service
	repo      *stubRepo
	sessions  *stubSessions
	suppliers *stubSuppliers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubRepo()
	sessions := newStubSessions()
	suppliers := &stubSuppliers{}
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Sessions:  sessions,
		Suppliers: suppliers,
		JWT:       testJWTConfig(),
		Password:  testPasswordConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "auth-test"}),
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return &fixture{svc: svc, repo: repo, sessions: sessions, suppliers: suppliers}
}

func (f *fixture) registerBuyer(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.svc.RegisterBuyer(context.Background(), RegisterBuyerInput{
		Email:    email,
		Password: "ClaveSegura2026",
		FullName: "María Núñez",
	})
	if err != nil {
		t.Fatalf("registering buyer: %v", err)
	}
	return user
}

func TestRegisterBuyerHashesPassword(t *testing.T) {
	f := newFixture(t)
	user := f.registerBuyer(t, "maria@obras.do")

	if user.Role != enums.UserRoleBuyer {
		t.Fatalf("role = %s, want buyer", user.Role)
	}
	if user.PasswordHash == "ClaveSegura2026" {
		t.Fatal("password stored in clear")
	}
	ok, err := security.VerifyPassword("ClaveSegura2026", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}
}

func TestRegisterBuyerRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.registerBuyer(t, "maria@obras.do")

	_, err := f.svc.RegisterBuyer(context.Background(), RegisterBuyerInput{
		Email:    "maria@obras.do",
		Password: "OtraClave2026",
		FullName: "Otra María",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterBuyerRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RegisterBuyer(context.Background(), RegisterBuyerInput{
		Email:    "corto@obras.do",
		Password: "corta",
		FullName: "Clave Corta",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture(t)
	user := f.registerBuyer(t, "maria@obras.do")

	pair, err := f.svc.Login(context.Background(), "maria@obras.do", "ClaveSegura2026")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.RefreshToken == "" {
		t.Fatal("refresh token not issued")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parsing access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != enums.UserRoleBuyer {
		t.Fatalf("claims role = %s, want buyer", claims.Role)
	}
	if claims.SupplierID != nil {
		t.Fatal("buyer token should not carry a supplier id")
	}
	if _, ok := f.sessions.tokens[claims.ID]; !ok {
		t.Fatal("refresh session not stored under jti")
	}
}

func TestLoginAttachesSupplierIDForSupplierRole(t *testing.T) {
	f := newFixture(t)
	supplierID := uuid.New()
	user := f.registerBuyer(t, "ferreteria@central.do")
	user.Role = enums.UserRoleSupplier
	f.suppliers.supplier = &models.Supplier{ID: supplierID, UserID: user.ID}

	pair, err := f.svc.Login(context.Background(), "ferreteria@central.do", "ClaveSegura2026")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parsing access token: %v", err)
	}
	if claims.SupplierID == nil || *claims.SupplierID != supplierID {
		t.Fatalf("claims supplier = %v, want %s", claims.SupplierID, supplierID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.registerBuyer(t, "maria@obras.do")

	_, err := f.svc.Login(context.Background(), "maria@obras.do", "ClaveIncorrecta")
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Login(context.Background(), "nadie@obras.do", "ClaveSegura2026")
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newFixture(t)
	f.registerBuyer(t, "maria@obras.do")
	pair, err := f.svc.Login(context.Background(), "maria@obras.do", "ClaveSegura2026")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := f.svc.Refresh(context.Background(), pair.AccessToken, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The consumed refresh token must not work a second time.
	_, err = f.svc.Refresh(context.Background(), pair.AccessToken, pair.RefreshToken)
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on replay, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	f.registerBuyer(t, "maria@obras.do")
	pair, err := f.svc.Login(context.Background(), "maria@obras.do", "ClaveSegura2026")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parsing access token: %v", err)
	}

	if err := f.svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := f.sessions.tokens[claims.ID]; ok {
		t.Fatal("session still present after logout")
	}

	_, err = f.svc.Refresh(context.Background(), pair.AccessToken, pair.RefreshToken)
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}
