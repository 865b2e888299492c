package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("month: %w", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("sales: %w", ErrUpstream), http.StatusBadGateway},
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("pdf export: %w", ErrDisabled), http.StatusServiceUnavailable},
		{fmt.Errorf("secret dsn leaked"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
		assert.NotContains(t, problem.Detail, "secret")
	}
}

func TestDecodeJSONLimitsBody(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, 16, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, 1<<10, &target))
	assert.Equal(t, "a", target.Name)
}
