package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/segyhp/microcredit-engine/pkg/response"
)

const (
	SignatureHeader = "X-Signature"
	maxCallbackBody = 1 << 20
)

// SignPayload returns the hex HMAC-SHA256 of body under secret
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// GatewaySignature rejects callbacks whose X-Signature does not match the
// HMAC of the raw body. An empty secret disables the endpoint.
func GatewaySignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				response.Forbidden(w, "gateway callbacks are not configured")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
			if err != nil {
				response.BadRequest(w, "unable to read request body", err)
				return
			}
			r.Body.Close()

			expected := SignPayload(secret, body)
			provided := r.Header.Get(SignatureHeader)
			if !hmac.Equal([]byte(expected), []byte(provided)) {
				response.Unauthorized(w, "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
