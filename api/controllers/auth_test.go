package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/construplaza/construplaza-backend/internal/auth"
	"github.com/construplaza/construplaza-backend/pkg/db/models"
	"github.com/construplaza/construplaza-backend/pkg/enums"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
)

type stubAuthService struct {
	user *models.User
	pair *authsvc.TokenPair
	err  error

	loggedOut []string
}

func (s *stubAuthService) RegisterBuyer(ctx context.Context, input authsvc.RegisterBuyerInput) (*models.User, error) {
	return s.user, s.err
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*authsvc.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*authsvc.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOut = append(s.loggedOut, accessID)
	return s.err
}

func testBuyer() *models.User {
	return &models.User{
		ID:        uuid.New(),
		Email:     "comprador@example.do",
		FullName:  "Rafael Peña",
		Role:      enums.UserRoleBuyer,
		CreatedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestAuthRegisterSuccess(t *testing.T) {
	user := testBuyer()
	handler := AuthRegister(&stubAuthService{user: user}, testLogger(t))

	body := []byte(`{"email":"comprador@example.do","password":"ClaveSegura2026","full_name":"Rafael Peña"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data userResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Email != user.Email {
		t.Fatalf("expected email %s got %s", user.Email, envelope.Data.Email)
	}
	if envelope.Data.Role != "buyer" {
		t.Fatalf("expected role buyer got %s", envelope.Data.Role)
	}
}

func TestAuthRegisterInvalidPayload(t *testing.T) {
	handler := AuthRegister(&stubAuthService{}, testLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(`{"password":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginSuccess(t *testing.T) {
	user := testBuyer()
	handler := AuthLogin(&stubAuthService{pair: &authsvc.TokenPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User:         user,
	}}, testLogger(t))

	body := []byte(`{"email":"comprador@example.do","password":"ClaveSegura2026"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data tokenPairResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "access-token" || envelope.Data.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected token pair %+v", envelope.Data)
	}
	if envelope.Data.User.Email != user.Email {
		t.Fatalf("expected user in payload got %+v", envelope.Data.User)
	}
}

func TestAuthLoginBadCredentials(t *testing.T) {
	handler := AuthLogin(&stubAuthService{
		err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"),
	}, testLogger(t))

	body := []byte(`{"email":"comprador@example.do","password":"incorrecta"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "invalid credentials" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestAuthRefreshReadsBearerHeader(t *testing.T) {
	user := testBuyer()
	handler := AuthRefresh(&stubAuthService{pair: &authsvc.TokenPair{
		AccessToken:  "rotated-access",
		RefreshToken: "rotated-refresh",
		User:         user,
	}}, testLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader([]byte(`{"refresh_token":"refresh-token"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := httptest.NewRecorder()

	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data tokenPairResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "rotated-access" {
		t.Fatalf("expected rotated pair got %+v", envelope.Data)
	}
}
