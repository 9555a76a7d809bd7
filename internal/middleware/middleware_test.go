package middleware

import (
	"bytes"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"villa-backend/internal/auth"
	"villa-backend/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	claims *auth.Claims
}

func (s stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return s.claims, nil
}

func protected(m *AuthMiddleware, perm string) http.Handler {
	return m.Authenticate(RequirePermission(perm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetUserIDFromContext(r.Context())
		w.Header().Set("X-User", strconv.Itoa(id))
		w.WriteHeader(http.StatusNoContent)
	})))
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{claims: &auth.Claims{
		UserID:      4,
		Role:        "staff",
		Permissions: []string{auth.PermBookingsRead},
	}})

	tests := []struct {
		name   string
		header string
		perm   string
		want   int
	}{
		{"missing header", "", auth.PermBookingsRead, http.StatusUnauthorized},
		{"wrong scheme", "Basic good", auth.PermBookingsRead, http.StatusUnauthorized},
		{"bad token", "Bearer nope", auth.PermBookingsRead, http.StatusUnauthorized},
		{"granted", "Bearer good", auth.PermBookingsRead, http.StatusNoContent},
		{"lacking permission", "Bearer good", auth.PermLedgerWrite, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookings/calendar", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(m, tt.perm).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "4", rec.Header().Get("X-User"))
			}
		})
	}
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{claims: &auth.Claims{UserID: 1, Role: auth.RoleAdmin}})

	req := httptest.NewRequest(http.MethodDelete, "/api/customers/1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	protected(m, auth.PermCustomersDelete).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "internal server error"}`, rec.Body.String())
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/api/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/customers/{id}", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/customers/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/customers/43", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	assert.Equal(t, "10.0.0.9", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}

func TestAPILogging_RecordsActingStaff(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	m := NewAuthMiddleware(stubValidator{claims: &auth.Claims{
		UserID: 9,
		Email:  "desk@villa.example",
		Role:   "staff",
	}})
	h := m.Authenticate(APILogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/customers/3/payments", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("X-Real-IP", "10.0.0.8")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, "[API] POST /api/customers/3/payments status=201")
	assert.Contains(t, line, "user=9 email=desk@villa.example role=staff ip=10.0.0.8")
}

func TestAPILogging_SkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	h := APILogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())
}

