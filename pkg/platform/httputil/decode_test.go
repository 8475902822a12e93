package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "gatekeeper/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *credentialsRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *credentialsRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password is required")
	}
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	post := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
	}

	t.Run("normalizes and validates", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[credentialsRequest](w, post(`{"email":"  Ada@Example.com ","password":"pw"}`), logger, ctx, "req-1")

		require.True(t, ok)
		assert.Equal(t, "ada@example.com", req.Email)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[credentialsRequest](w, post(`{nope`), logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeError(t, w)["error"])
	})

	t.Run("plain validation errors become validation_error", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[credentialsRequest](w, post(`{"password":"pw"}`), logger, ctx, "req-1")

		assert.False(t, ok)
		body := decodeError(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Contains(t, body["error_description"], "email is required")
	})

	t.Run("domain validation errors keep their code", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[credentialsRequest](w, post(`{"email":"a@b.c"}`), logger, ctx, "req-1")

		assert.False(t, ok)
		assert.Equal(t, "bad_request", decodeError(t, w)["error"])
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rate limited", dErrors.New(dErrors.CodeRateLimited, "slow down"), http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "admin only"), http.StatusForbidden, "forbidden"},
		{"unavailable", dErrors.New(dErrors.CodeUnavailable, "redis down"), http.StatusServiceUnavailable, "service_unavailable"},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w)["error"])
		})
	}

	t.Run("server errors hide their message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeUnavailable, "redis at 10.0.0.5 down"))
		assert.NotContains(t, decodeError(t, w), "error_description")
	})
}
