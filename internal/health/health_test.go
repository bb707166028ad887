package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_OpenAICompatListsModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"qwen"}]}`))
	}))
	defer srv.Close()

	s := Check(context.Background(), srv.Client(), Target{Name: "llm", Kind: "openai", URL: srv.URL + "/v1", APIKey: "k"})
	require.True(t, s.Reachable, s.Error)
	assert.Equal(t, "llm", s.Name)
	assert.Equal(t, []string{"gpt-4o", "qwen"}, s.Models)
	assert.NoError(t, CheckModel(s, "qwen"))
	assert.ErrorContains(t, CheckModel(s, "llama"), "not found")
}

func TestCheck_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := Check(context.Background(), srv.Client(), Target{Kind: "openai", URL: srv.URL})
	assert.False(t, s.Reachable)
	assert.Contains(t, s.Error, "authentication")

	s = Check(context.Background(), srv.Client(), Target{Kind: "http", URL: srv.URL, APIKey: "t"})
	assert.False(t, s.Reachable)
}

func TestCheckAll_KeepsOrder(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	got := CheckAll(context.Background(), nil, []Target{
		{Name: "webhook", Kind: "http", URL: ok.URL},
		{Name: "ads", Kind: "http", URL: broken.URL},
		{Name: "notify", Kind: "http"},
		{Name: "odd", Kind: "smtp", URL: ok.URL},
	})
	require.Len(t, got, 4)
	assert.True(t, got[0].Reachable)
	assert.Contains(t, got[1].Error, "502")
	assert.Equal(t, "not configured", got[2].Error)
	assert.Contains(t, got[3].Error, "unknown kind")
}

func TestCheck_MissingKeys(t *testing.T) {
	assert.Contains(t, Check(context.Background(), nil, Target{Kind: "anthropic"}).Error, "ANTHROPIC_API_KEY")
	assert.Contains(t, Check(context.Background(), nil, Target{Kind: "google"}).Error, "GEMINI_API_KEY")
}
