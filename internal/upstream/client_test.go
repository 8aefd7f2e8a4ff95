package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/config"
	"github.com/seahorse-ai-ryan/schoology-enhancer-sub000/internal/pkg/apperrors"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Upstream.BaseURL = server.URL
	cfg.Upstream.KeyID = "key-1"
	cfg.Upstream.Secret = "hunter2"
	cfg.Upstream.Timeout = "2s"

	return NewHTTPClient(cfg, zerolog.Nop()), server
}

func TestListSections_SignsAndImpersonates(t *testing.T) {
	signer := NewSigner("key-1", "hunter2")

	var seen *http.Request
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sections":[{"id":7,"title":"Algebra II","teacher":"Ms. Rivera"}]}`))
	}))

	sections, err := client.ListSections(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, int64(7), sections[0].ID)
	assert.Equal(t, "Algebra II", sections[0].Title)
	assert.Equal(t, "Ms. Rivera", sections[0].TeacherName)

	require.NotNil(t, seen)
	assert.Equal(t, "/v1/users/42/sections", seen.URL.Path)
	assert.Equal(t, "42", seen.Header.Get(runAsHeader))
	assert.Equal(t, "key-1", seen.Header.Get(keyHeader))
	assert.True(t, signer.Verify(
		http.MethodGet,
		seen.URL.Path,
		seen.URL.RawQuery,
		seen.Header.Get(timestampHeader),
		seen.Header.Get(signatureHeader),
	), "signature must cover method, path, query and timestamp")
}

func TestListGradingCategories_EmptyListIsNotAnError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"grading_categories":[]}`))
	}))

	categories, err := client.ListGradingCategories(context.Background(), 7, 42)
	require.NoError(t, err, "a section without categories is a valid state")
	assert.Empty(t, categories)
}

func TestListGrades_MapsWireFields(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"grades":[
			{"assignment_id":1,"user_id":42,"grade":18,"max_points":20,"timestamp":1756700000,"comment":"nice"},
			{"assignment_id":2,"user_id":42,"max_points":50}
		]}`))
	}))

	records, err := client.ListGrades(context.Background(), 7, 42)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].EarnedPoints)
	assert.Equal(t, 18.0, *records[0].EarnedPoints)
	assert.Equal(t, "nice", records[0].Comment)
	assert.False(t, records[0].SubmittedAt.IsZero())

	assert.Nil(t, records[1].EarnedPoints, "missing grade field must decode as ungraded")
	assert.True(t, records[1].SubmittedAt.IsZero(), "missing timestamp must stay the zero time")
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrUpstreamUnauthorized},
		{"forbidden", http.StatusForbidden, apperrors.ErrUpstreamForbidden},
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrRateLimited},
		{"not found", http.StatusNotFound, apperrors.ErrSectionNotFound},
		{"server error", http.StatusBadGateway, apperrors.ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := client.ListAssignments(context.Background(), 7, 42)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransportFailureIsUpstreamUnavailable(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := client.ListSections(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}
