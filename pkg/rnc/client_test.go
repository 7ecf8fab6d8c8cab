package rnc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
)

func TestValidateReturnsVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate/131234567" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid":true,"companyName":"Ferretería El Progreso SRL"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Validate(context.Background(), "131234567")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected valid verdict")
	}
	if result.CompanyName != "Ferretería El Progreso SRL" {
		t.Fatalf("unexpected company name %q", result.CompanyName)
	}
}

func TestValidateServerErrorIsDependencyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, time.Second)
	_, err := client.Validate(context.Background(), "131234567")
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestValidateRejectsMalformedRNC(t *testing.T) {
	client, _ := NewClient("https://validator.test", time.Second)
	_, err := client.Validate(context.Background(), "12AB")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIsWellFormed(t *testing.T) {
	cases := map[string]bool{
		"131234567":   true,
		"13123456789": true,
		"1312345":     false,
		"131234567a":  false,
		"":            false,
	}
	for input, want := range cases {
		if got := IsWellFormed(input); got != want {
			t.Fatalf("IsWellFormed(%q) = %v, want %v", input, got, want)
		}
	}
}
