// Package websearch asks the Perplexity answer API for fresh external
// information. It speaks the OpenAI chat-completions protocol.
package websearch

import (
	"context"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"clinic-agent/internal/intent"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/metrics"
	"clinic-agent/internal/textnorm"
)

const (
	DefaultModel   = "sonar"
	DefaultBaseURL = "https://api.perplexity.ai"

	temperature = 0.1
	maxTokens   = 2000
)

// Enrichment says how the web answer relates to what was found locally.
type Enrichment string

const (
	// Complement fills in for missing local context.
	Complement Enrichment = "complement"
	// Supplement adds recent information next to local context.
	Supplement Enrichment = "supplement"
	// Verification refreshes what local context already says.
	Verification Enrichment = "verification"
)

type Contact struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

type Result struct {
	Content          string     `json:"content"`
	Sources          []string   `json:"sources"`
	HasContent       bool       `json:"hasContent"`
	Enrichment       Enrichment `json:"enrichmentType"`
	Contacts         []Contact  `json:"contacts,omitempty"`
	ConfidenceScore  int        `json:"confidenceScore"`
	ValidatedContact bool       `json:"hasValidatedContacts"`
}

type Searcher struct {
	client  openai.Client
	model   string
	enabled bool
	log     zerolog.Logger
}

// New builds a searcher. Without an API key it is disabled and every search
// returns an empty Result.
func New(apiKey, model, baseURL string) *Searcher {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Searcher{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		model:   model,
		enabled: apiKey != "",
		log:     logging.Component("websearch"),
	}
}

func (s *Searcher) Enabled() bool {
	return s != nil && s.enabled
}

// Search runs one query. hasLocalContext picks the enrichment mode. Any
// failure is logged and yields an empty Result.
func (s *Searcher) Search(ctx context.Context, query string, in intent.Intent, hasLocalContext bool) Result {
	kind := EnrichmentFor(in, hasLocalContext)
	empty := Result{Enrichment: kind}
	if !s.Enabled() {
		return empty
	}

	product := IsProductQuery(query)
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(kind, product)),
			openai.UserMessage(searchPrompt(query, in, kind, product)),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("perplexity", "fatal").Inc()
		s.log.Warn().Err(err).Msg("perplexity search failed")
		return empty
	}
	metrics.LLMCalls.WithLabelValues("perplexity", "ok").Inc()

	if len(resp.Choices) == 0 {
		return empty
	}
	content := Sanitize(resp.Choices[0].Message.Content)
	if content == "" {
		return empty
	}

	contacts, score := ValidateContacts(content)
	return Result{
		Content:          content,
		Sources:          citations(resp.RawJSON()),
		HasContent:       true,
		Enrichment:       kind,
		Contacts:         contacts,
		ConfidenceScore:  score,
		ValidatedContact: score >= 50,
	}
}

// citations reads the Perplexity-specific fields the SDK does not model.
func citations(raw string) []string {
	var out []string
	for _, c := range gjson.Get(raw, "citations").Array() {
		if u := c.String(); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		for _, u := range gjson.Get(raw, "search_results.#.url").Array() {
			if u.String() != "" {
				out = append(out, u.String())
			}
		}
	}
	return out
}

func EnrichmentFor(in intent.Intent, hasLocalContext bool) Enrichment {
	switch {
	case !hasLocalContext:
		return Complement
	case in.QueryType == intent.QueryGeneral || in.RequiresInternet:
		return Supplement
	}
	return Verification
}

var productTerms = []string{
	"materiel", "equipement", "acheter", "produit", "galaxus", "achat",
	"ordinateur", "imprimante", "chaise", "bureau", "ecran", "moniteur",
	"clavier", "souris", "telephone", "appareil", "scanner", "meuble",
	"logiciel", "licence", "stockage", "disque", "reference", "recommandation",
	"comparaison", "prix", "modele", "marque", "specification",
}

// IsProductQuery reports whether the query looks like a purchase or supplier
// search.
func IsProductQuery(query string) bool {
	return textnorm.ContainsAny(query, productTerms...)
}

var (
	phonePattern   = regexp.MustCompile(`\+\d{1,3}[\s-]?\d{1,3}[\s-]?\d{3,4}[\s-]?\d{3,4}`)
	emailPattern   = regexp.MustCompile(`(?:contact|info|sales|support)@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	linkPattern    = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)]+)\)`)
	companyPattern = regexp.MustCompile(`(?i)entreprise|société|cabinet|clinique|fournisseur`)

	anyEmail   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	longDigits = regexp.MustCompile(`(^|[^+\d])(\d{10,})\b`)
)

// ValidateContacts lists the phone numbers, role emails and links in content
// and scores how trustworthy they look, out of 100.
func ValidateContacts(content string) ([]Contact, int) {
	var (
		out   []Contact
		score int
	)
	if phones := phonePattern.FindAllString(content, -1); len(phones) > 0 {
		score += 30
		for _, p := range phones {
			out = append(out, Contact{Type: "phone", Value: p})
		}
	}
	if emails := emailPattern.FindAllString(content, -1); len(emails) > 0 {
		score += 25
		for _, e := range emails {
			out = append(out, Contact{Type: "email", Value: e})
		}
	}
	if links := linkPattern.FindAllStringSubmatch(content, -1); len(links) > 0 {
		score += 45
		for _, l := range links {
			out = append(out, Contact{Type: "website", Value: l[1], URL: l[2]})
		}
	}
	if companyPattern.MatchString(content) {
		score += 20
	}
	return out, min(score, 100)
}

// Sanitize drops bare digit runs that look like unformatted phone numbers
// and personal email addresses. Role addresses (contact@, info@...) stay.
func Sanitize(content string) string {
	content = longDigits.ReplaceAllString(content, "$1")
	content = anyEmail.ReplaceAllStringFunc(content, func(e string) string {
		if emailPattern.FindString(e) == e {
			return e
		}
		return ""
	})
	return strings.TrimSpace(content)
}
