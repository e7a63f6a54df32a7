// AngelaMos | 2026
// requestid_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	cases := []struct {
		name    string
		inbound string
		keep    bool
	}{
		{"missing", "", false},
		{"valid", "req_abc-123", true},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"non ascii", "réq", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set(RequestIDHeader, tc.inbound)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			assert.Equal(t, got, seen)
			if tc.keep {
				assert.Equal(t, tc.inbound, got)
				return
			}
			_, err := uuid.Parse(got)
			require.NoError(t, err)
		})
	}
}
