package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const (
	testAppOrigin   = "https://app.pulse.example"
	testAdminOrigin = "https://admin.pulse.example"
)

func corsHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))
}

// TestCORS_DisabledWhenNoOrigins verifies an empty allowlist disables CORS
// processing entirely.
func TestCORS_DisabledWhenNoOrigins(t *testing.T) {
	handler := corsHandler(CORSConfig{AllowedOrigins: []string{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Origin", testAppOrigin)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("expected no CORS headers when disabled, got Access-Control-Allow-Origin: %s", origin)
	}
}

// TestCORS_AllowedOrigin verifies allowed origins get origin and credentials
// headers on actual requests, and only those.
func TestCORS_AllowedOrigin(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins:   []string{testAppOrigin, testAdminOrigin},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           3600,
	})

	for _, origin := range []string{testAppOrigin, testAdminOrigin} {
		t.Run(origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
			req.Header.Set("Origin", origin)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != origin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, origin)
			}
			if creds := rr.Header().Get("Access-Control-Allow-Credentials"); creds != "true" {
				t.Errorf("Access-Control-Allow-Credentials = %q, want true", creds)
			}

			// Methods and headers are preflight-only.
			if methods := rr.Header().Get("Access-Control-Allow-Methods"); methods != "" {
				t.Errorf("expected no Access-Control-Allow-Methods on actual request, got: %s", methods)
			}
			if headers := rr.Header().Get("Access-Control-Allow-Headers"); headers != "" {
				t.Errorf("expected no Access-Control-Allow-Headers on actual request, got: %s", headers)
			}
		})
	}
}

// TestCORS_UnauthorizedOrigin verifies unlisted origins get a 403 and no
// CORS headers.
func TestCORS_UnauthorizedOrigin(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{testAppOrigin},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status %d for unauthorized origin, got %d", http.StatusForbidden, rr.Code)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("expected no Access-Control-Allow-Origin for unauthorized origin, got: %s", origin)
	}
}

// TestCORS_NoOriginHeader verifies same-origin requests pass through
// untouched.
func TestCORS_NoOriginHeader(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{testAppOrigin},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/recommendations", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d for same-origin request, got %d", http.StatusOK, rr.Code)
	}
	if body := rr.Body.String(); body != "OK" {
		t.Errorf("expected body 'OK', got: %s", body)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "" {
		t.Errorf("expected no CORS headers for same-origin request, got Access-Control-Allow-Origin: %s", origin)
	}
}

// TestCORS_PreflightRequest verifies preflight OPTIONS responses carry the
// configured methods, headers, and max age without reaching the handler.
func TestCORS_PreflightRequest(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins:   []string{testAppOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           3600,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for preflight OPTIONS request")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/feedback", nil)
	req.Header.Set("Origin", testAppOrigin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("expected status %d for preflight request, got %d", http.StatusNoContent, rr.Code)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != testAppOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", origin, testAppOrigin)
	}
	if methods := rr.Header().Get("Access-Control-Allow-Methods"); methods != "GET, POST, PUT, DELETE" {
		t.Errorf("Access-Control-Allow-Methods = %q", methods)
	}
	if headers := rr.Header().Get("Access-Control-Allow-Headers"); headers != "Content-Type, Authorization, X-Request-ID" {
		t.Errorf("Access-Control-Allow-Headers = %q", headers)
	}
	if creds := rr.Header().Get("Access-Control-Allow-Credentials"); creds != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want true", creds)
	}
	if maxAge := rr.Header().Get("Access-Control-Max-Age"); maxAge != "3600" {
		t.Errorf("Access-Control-Max-Age = %q, want 3600", maxAge)
	}
}

// TestCORS_PreflightDefaults verifies preflight responses fall back to the
// default method and header lists when none are configured.
func TestCORS_PreflightDefaults(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{testAppOrigin},
	})

	req := httptest.NewRequest(http.MethodOptions, "/v1/feed", nil)
	req.Header.Set("Origin", testAppOrigin)
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if methods := rr.Header().Get("Access-Control-Allow-Methods"); methods != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q, want defaults", methods)
	}
	if headers := rr.Header().Get("Access-Control-Allow-Headers"); headers != "Content-Type, Authorization, X-Request-ID" {
		t.Errorf("Access-Control-Allow-Headers = %q, want defaults", headers)
	}
}

// TestCORS_PreflightUnauthorizedOrigin verifies preflights from unlisted
// origins are rejected before reaching the handler.
func TestCORS_PreflightUnauthorizedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		AllowedOrigins: []string{testAppOrigin},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for rejected preflight request")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/feedback", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected status %d for unauthorized preflight, got %d", http.StatusForbidden, rr.Code)
	}
}

// TestCORS_CredentialsDisabled verifies the credentials header is omitted
// when AllowCredentials is false.
func TestCORS_CredentialsDisabled(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins:   []string{testAppOrigin},
		AllowCredentials: false,
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Origin", testAppOrigin)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if creds := rr.Header().Get("Access-Control-Allow-Credentials"); creds != "" {
		t.Errorf("expected no Access-Control-Allow-Credentials header, got: %s", creds)
	}
}

// TestCORS_OriginListNormalization verifies whitespace is trimmed and empty
// entries are dropped from the configured allowlist.
func TestCORS_OriginListNormalization(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{"  " + testAppOrigin + "  ", "", testAdminOrigin},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Origin", testAppOrigin)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != testAppOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", origin, testAppOrigin)
	}
}
