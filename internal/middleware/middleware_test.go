package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestActor(t *testing.T) {
	var seen string
	handler := Actor(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "teller-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "teller-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "teller-7"})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "teller-7"})
	noSubject := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{})

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedActor  string
	}{
		{name: "valid token", header: "Bearer " + valid, expectedStatus: http.StatusNoContent, expectedActor: "teller-7"},
		{name: "missing header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", expectedStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, expectedStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, expectedStatus: http.StatusUnauthorized},
		{name: "wrong algorithm", header: "Bearer " + wrongAlg, expectedStatus: http.StatusUnauthorized},
		{name: "missing subject", header: "Bearer " + noSubject, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedActor, seen)
		})
	}
}

func TestGatewaySignature(t *testing.T) {
	payload := `{"reference":"GW-1","amount":"50","loan_id":"x"}`

	var received string
	handler := GatewaySignature(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gateway/callback", strings.NewReader(payload))
		req.Header.Set(SignatureHeader, SignPayload(testSecret, []byte(payload)))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, payload, received, "body is replayed to the handler")
	})

	t.Run("tampered body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/gateway/callback", strings.NewReader(payload+" "))
		req.Header.Set(SignatureHeader, SignPayload(testSecret, []byte(payload)))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("disabled without secret", func(t *testing.T) {
		disabled := GatewaySignature("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))
		rec := httptest.NewRecorder()

		disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, http.StatusInternalServerError, entry.Data["status"])
	assert.Equal(t, "/api/v1/loans", entry.Data["path"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
