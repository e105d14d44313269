package websearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/intent"
)

func perplexityServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const answer = `{
  "id": "px-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "sonar",
  "citations": ["https://www.swissmedic.ch", "https://www.hug.ch"],
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant",
    "content": "Le fournisseur [OptoSwiss](https://optoswiss.ch) répond au +41 22 123 4567 ou à info@optoswiss.ch."}}]
}`

func TestSearchReturnsContentAndCitations(t *testing.T) {
	var seen map[string]any
	srv := perplexityServer(t, http.StatusOK, answer, &seen)
	s := New("pplx-test", "", srv.URL)

	res := s.Search(context.Background(), "fournisseur de lentilles à Genève", intent.Intent{RequiresInternet: true}, false)

	require.True(t, res.HasContent)
	assert.Contains(t, res.Content, "OptoSwiss")
	assert.Equal(t, []string{"https://www.swissmedic.ch", "https://www.hug.ch"}, res.Sources)
	assert.Equal(t, Complement, res.Enrichment)
	assert.True(t, res.ValidatedContact)
	assert.Equal(t, 100, res.ConfidenceScore)

	assert.Equal(t, "sonar", seen["model"])
	assert.InDelta(t, 0.1, seen["temperature"], 1e-9)
	assert.EqualValues(t, 2000, seen["max_tokens"])
}

func TestSearchErrorIsEmpty(t *testing.T) {
	srv := perplexityServer(t, http.StatusBadGateway, `{"error":{"message":"upstream"}}`, nil)
	s := New("pplx-test", "sonar", srv.URL)

	res := s.Search(context.Background(), "horaires HUG", intent.Intent{}, true)

	assert.False(t, res.HasContent)
	assert.Empty(t, res.Content)
	assert.Empty(t, res.Sources)
}

func TestSearchEmptyContentIsEmpty(t *testing.T) {
	body := `{"id":"px-2","object":"chat.completion","created":1,"model":"sonar",
	  "choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"   "}}]}`
	srv := perplexityServer(t, http.StatusOK, body, nil)

	res := New("pplx-test", "sonar", srv.URL).Search(context.Background(), "x", intent.Intent{}, false)

	assert.False(t, res.HasContent)
}

func TestDisabledWithoutKey(t *testing.T) {
	s := New("", "", "")
	assert.False(t, s.Enabled())
	assert.False(t, s.Search(context.Background(), "x", intent.Intent{}, false).HasContent)
}

func TestCitationsFallBackToSearchResults(t *testing.T) {
	raw := `{"search_results":[{"title":"a","url":"https://a.ch"},{"title":"b","url":"https://b.ch"}]}`
	assert.Equal(t, []string{"https://a.ch", "https://b.ch"}, citations(raw))
}

func TestEnrichmentFor(t *testing.T) {
	assert.Equal(t, Complement, EnrichmentFor(intent.Intent{}, false))
	assert.Equal(t, Supplement, EnrichmentFor(intent.Intent{QueryType: intent.QueryGeneral}, true))
	assert.Equal(t, Verification, EnrichmentFor(intent.Intent{QueryType: intent.QueryMeeting}, true))
}

func TestSanitize(t *testing.T) {
	got := Sanitize("Appelez le 0221234567890 ou écrivez à jean.dupont@gmail.com ou contact@hug.ch")
	assert.NotContains(t, got, "0221234567890")
	assert.NotContains(t, got, "jean.dupont@gmail.com")
	assert.Contains(t, got, "contact@hug.ch")
}

func TestIsProductQuery(t *testing.T) {
	assert.True(t, IsProductQuery("Quel écran acheter pour l'accueil ?"))
	assert.False(t, IsProductQuery("Horaires des urgences"))
}
