package embeddings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/construplaza/construplaza-backend/pkg/config"
	pkgerrors "github.com/construplaza/construplaza-backend/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client, err := NewClient(config.EmbeddingsConfig{
		BaseURL: server.URL,
		Model:   "sentence-transformers/all-MiniLM-L6-v2",
		APIKey:  "hf_test",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, server.Close
}

func TestEmbedFlatVector(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Write([]byte(`[0.1, 0.2, 0.3]`))
	})
	defer done()

	vec, err := client.Embed(context.Background(), "cemento gris")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestEmbedNestedVectorTakesFirst(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1, 0, 0], [0, 1, 0]]`))
	})
	defer done()

	vec, err := client.Embed(context.Background(), "varilla corrugada")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 1 {
		t.Fatalf("expected first nested row, got %v", vec)
	}
}

func TestEmbedServiceErrorSurfacesAsDependency(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer done()

	_, err := client.Embed(context.Background(), "bloques de hormigón")
	if err == nil {
		t.Fatal("expected error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	defer done()

	if _, err := client.Embed(context.Background(), "   "); err == nil {
		t.Fatal("expected validation error for empty input")
	}
}

func TestParseVectorRejectsUnknownShape(t *testing.T) {
	if _, err := parseVector([]byte(`{"oops":1}`)); err == nil {
		t.Fatal("expected error for object response")
	}
	if _, err := parseVector([]byte(`[]`)); err == nil {
		t.Fatal("expected error for empty vector")
	}
}
