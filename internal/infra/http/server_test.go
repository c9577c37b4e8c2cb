package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseOperatorTokens(t *testing.T) {
	tokens := ParseOperatorTokens("abc:alice, def:bob ,,broken,:noname")
	if len(tokens) != 2 {
		t.Fatalf("ожидали 2 токена, получили %d", len(tokens))
	}
	if tokens["abc"] != "alice" || tokens["def"] != "bob" {
		t.Fatalf("неожиданное отображение: %v", tokens)
	}
}

func TestOperatorAuthMiddleware(t *testing.T) {
	var seen string
	handler := OperatorAuthMiddleware(map[string]string{"secret": "alice"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = OperatorFromContext(r.Context())
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	req.Header.Set("X-Operator-Token", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if seen != "alice" {
		t.Fatalf("ожидали оператора alice в контексте, получили %q", seen)
	}
}

func TestOperatorAuthMiddlewareRejects(t *testing.T) {
	handler := OperatorAuthMiddleware(map[string]string{"secret": "alice"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("запрос без токена не должен доходить до обработчика")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles", nil)
	req.Header.Set("X-Operator-Token", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", rec.Code)
	}
}

func TestNewServerStartsRouter(t *testing.T) {
	server := NewServer(zerolog.Nop())
	server.Router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
}
