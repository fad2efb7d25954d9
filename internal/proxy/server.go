// Package proxy is the backend service that fronts the model provider.
// It holds the API key, enforces the model allow-list, the output
// token clamp and per-caller rate limits, and forwards invocations
// unchanged otherwise. Clients never talk to the provider directly.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/metrics"
)

// provider is the slice of the OpenAI client the server uses.
type provider interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	Moderations(ctx context.Context, req openai.ModerationRequest) (openai.ModerationResponse, error)
}

// Server is the proxy HTTP server.
type Server struct {
	cfg      Config
	provider provider
	limiter  *RateLimiter
}

// NewServer creates a proxy server talking to the configured provider.
func NewServer(cfg Config) *Server {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	return &Server{
		cfg:      cfg,
		provider: openai.NewClientWithConfig(oc),
		limiter: NewRateLimiter(
			time.Duration(cfg.RateWindowSeconds)*time.Second,
			cfg.RateWindowLimit,
			cfg.RateDailyLimit,
		),
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/explain", s.handleExplain)
		r.Post("/moderate", s.handleModerate)
	})

	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

type explainBody struct {
	Payload domain.Invocation `json:"payload"`
}

// handleExplain validates and forwards one model invocation.
// POST /api/explain
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.ExtensionAllowed(r.Header.Get("X-Extension-Id")) {
		writeError(w, http.StatusForbidden, "unknown extension", "")
		return
	}

	var body explainBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	inv := body.Payload

	if strings.TrimSpace(inv.Input) == "" {
		writeError(w, http.StatusBadRequest, "empty input", "")
		return
	}
	if !s.cfg.ModelAllowed(inv.Model) {
		writeError(w, http.StatusBadRequest, "model not allowed", inv.Model)
		return
	}

	if ok, retryAfter := s.limiter.Allow(callerKey(r)); !ok {
		metrics.RateLimitedTotal.Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "")
		return
	}

	req := openai.ChatCompletionRequest{
		Model: inv.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: inv.System},
			{Role: openai.ChatMessageRoleUser, Content: inv.Input},
		},
		MaxTokens:   clamp(inv.MaxOutputTokens, s.cfg.MinOutputTokens, s.cfg.MaxOutputTokens),
		Temperature: 0.2,
	}
	if inv.ResponseSchema != nil {
		format, err := responseFormat(inv.ResponseSchema)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid response schema", err.Error())
			return
		}
		req.ResponseFormat = format
	}

	start := time.Now()
	resp, err := s.provider.CreateChatCompletion(r.Context(), req)
	metrics.ProxyForwardSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		status, msg := presentProviderError(err)
		writeError(w, status, msg, "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleModerate runs the provider moderation check.
// POST /api/moderate
func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.ExtensionAllowed(r.Header.Get("X-Extension-Id")) {
		writeError(w, http.StatusForbidden, "unknown extension", "")
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"flagged": false})
		return
	}

	resp, err := s.provider.Moderations(r.Context(), openai.ModerationRequest{Input: body.Text})
	if err != nil {
		status, msg := presentProviderError(err)
		writeError(w, status, msg, "")
		return
	}
	flagged := false
	for _, res := range resp.Results {
		if res.Flagged {
			flagged = true
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"flagged": flagged})
}

// responseFormat converts the wire schema wrapper into the provider's
// structured-output request format.
func responseFormat(raw json.RawMessage) (*openai.ChatCompletionResponseFormat, error) {
	var wrapper struct {
		Name   string          `json:"name"`
		Strict bool            `json:"strict"`
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Name == "" || len(wrapper.Schema) == 0 {
		return nil, errors.New("schema wrapper must carry name and schema")
	}
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   wrapper.Name,
			Schema: wrapper.Schema,
			Strict: wrapper.Strict,
		},
	}, nil
}

// presentProviderError maps a provider error to a proxy status. The
// provider's own status passes through so the client's retry
// classification can act on it.
func presentProviderError(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.HTTPStatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		return status, apiErr.Message
	}
	return http.StatusBadGateway, "upstream request failed"
}

// callerKey combines client id and remote IP for rate limiting.
func callerKey(r *http.Request) string {
	clientID := r.Header.Get("X-Client-Id")
	if clientID == "" {
		clientID = "anonymous"
	}
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return clientID + "|" + ip
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the flat error shape gateway clients parse.
func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, map[string]string{
		"error":  msg,
		"detail": detail,
	})
}
