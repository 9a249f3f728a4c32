package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escargot-labs/reviewbot"
	"github.com/escargot-labs/reviewbot/httpapi"
	"github.com/escargot-labs/reviewbot/mock"
)

func newServer(reviewer reviewbot.Reviewer) *httpapi.Server {
	return httpapi.New(":0", reviewer, 1, nil)
}

func postReview(t *testing.T, s *httpapi.Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Review(t *testing.T) {
	t.Parallel()

	var got reviewbot.ReviewRequest
	reviewer := &mock.Reviewer{
		ReviewFn: func(_ context.Context, req reviewbot.ReviewRequest) ([]reviewbot.AnchoredComment, error) {
			got = req
			return []reviewbot.AnchoredComment{{
				Path:     "src/main.cpp",
				Body:     "Possible null dereference.",
				CommitID: req.HeadSHA,
				Line:     42,
				Side:     reviewbot.SideRight,
			}}, nil
		},
	}
	s := newServer(reviewer)

	rec := postReview(t, s, `{"base_sha":"abc123","head_sha":"def456","pull_request_number":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", got.BaseSHA)
	assert.Equal(t, "def456", got.HeadSHA)
	assert.Equal(t, 7, got.PullRequestNumber)

	var resp struct {
		Comments []reviewbot.AnchoredComment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "src/main.cpp", resp.Comments[0].Path)
	assert.Equal(t, 42, resp.Comments[0].Line)
	assert.Equal(t, reviewbot.SideRight, resp.Comments[0].Side)
}

func TestServer_ReviewNoComments(t *testing.T) {
	t.Parallel()

	reviewer := &mock.Reviewer{
		ReviewFn: func(context.Context, reviewbot.ReviewRequest) ([]reviewbot.AnchoredComment, error) {
			return nil, nil
		},
	}
	s := newServer(reviewer)

	rec := postReview(t, s, `{"base_sha":"abc123","head_sha":"def456"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	// A clean review answers with an empty list, never null.
	assert.JSONEq(t, `{"comments":[]}`, rec.Body.String())
}

func TestServer_ReviewBadRequests(t *testing.T) {
	t.Parallel()

	reviewer := &mock.Reviewer{
		ReviewFn: func(context.Context, reviewbot.ReviewRequest) ([]reviewbot.AnchoredComment, error) {
			t.Fatal("reviewer should not be called")
			return nil, nil
		},
	}
	s := newServer(reviewer)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "missing base_sha", body: `{"head_sha":"def456"}`},
		{name: "missing head_sha", body: `{"base_sha":"abc123"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postReview(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_ReviewErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "unknown revision", err: reviewbot.ErrRevisionNotFound, code: http.StatusBadRequest},
		{name: "malformed diff", err: reviewbot.ErrMalformedDiff, code: http.StatusUnprocessableEntity},
		{name: "model timeout", err: reviewbot.ErrTimeout, code: http.StatusBadGateway},
		{name: "model unavailable", err: reviewbot.ErrModelUnavailable, code: http.StatusBadGateway},
		{name: "internal failure", err: assert.AnError, code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reviewer := &mock.Reviewer{
				ReviewFn: func(context.Context, reviewbot.ReviewRequest) ([]reviewbot.AnchoredComment, error) {
					return nil, tt.err
				},
			}
			s := newServer(reviewer)

			rec := postReview(t, s, `{"base_sha":"abc123","head_sha":"def456"}`)

			assert.Equal(t, tt.code, rec.Code)
			var resp struct {
				Detail string `json:"detail"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Detail)
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	s := newServer(&mock.Reviewer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
