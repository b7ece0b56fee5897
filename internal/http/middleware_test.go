package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireSharedSecret(t *testing.T) {
	t.Parallel()

	newProtected := func(secret string, called *bool) http.Handler {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			w.WriteHeader(http.StatusOK)
		})
		return RequireSharedSecret(secret, nil)(next)
	}

	t.Run("passes matching secrets through", func(t *testing.T) {
		t.Parallel()

		var called bool
		handler := newProtected("s3cr3t", &called)

		req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
		req.Header.Set(SecretHeader, "s3cr3t")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || !called {
			t.Fatalf("expected the request to pass, got %d called=%v", rec.Code, called)
		}
	})

	t.Run("rejects wrong secrets with 403 before the handler runs", func(t *testing.T) {
		t.Parallel()

		var called bool
		handler := newProtected("s3cr3t", &called)

		req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
		req.Header.Set(SecretHeader, "wrong")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if called {
			t.Fatal("expected the handler to stay uncalled")
		}
	})

	t.Run("rejects missing headers", func(t *testing.T) {
		t.Parallel()

		var called bool
		handler := newProtected("s3cr3t", &called)

		req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden || called {
			t.Fatalf("expected 403 without handler call, got %d called=%v", rec.Code, called)
		}
	})

	t.Run("an empty configured secret rejects everything", func(t *testing.T) {
		t.Parallel()

		var called bool
		handler := newProtected("", &called)

		req := httptest.NewRequest(http.MethodGet, "/trigger", nil)
		req.Header.Set(SecretHeader, "")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden || called {
			t.Fatalf("expected 403 without handler call, got %d called=%v", rec.Code, called)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var gotLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	})

	handler := RequestLogger(nil)(next)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !gotLogger {
		t.Fatal("expected a request logger on the context")
	}
}
