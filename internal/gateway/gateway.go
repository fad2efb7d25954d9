// Package gateway sends single model invocations through the backend
// proxy. It classifies failures and decodes the raw provider payload
// into explicit output variants before any business logic sees it.
// The gateway never decides retry counts; it only reports whether an
// error is retriable.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/plainread/plainread/internal/domain"
)

// Output is the decoded provider response, one of Completed,
// Incomplete or Refused. Classification happens in one place so the
// orchestrator never touches raw provider JSON.
type Output interface{ isOutput() }

// Completed carries usable generated text.
type Completed struct{ Text string }

// Incomplete means the provider produced no usable text, e.g. the
// output was truncated by the token budget.
type Incomplete struct{ Reason string }

// Refused carries the provider's refusal message.
type Refused struct{ Message string }

func (Completed) isOutput()  {}
func (Incomplete) isOutput() {}
func (Refused) isOutput()    {}

// ReasonTruncated marks outputs cut off by the token budget.
const ReasonTruncated = "truncated"

// Client talks to the backend proxy.
type Client struct {
	baseURL     string
	clientID    string
	extensionID string
	httpc       *http.Client
}

// NewClient creates a gateway client for the proxy at baseURL.
// clientID identifies this installation to the proxy's rate limiter;
// extensionID is optional and only needed when the proxy enforces an
// extension allow-list.
func NewClient(baseURL, clientID, extensionID string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		clientID:    clientID,
		extensionID: extensionID,
		httpc:       &http.Client{Timeout: 90 * time.Second},
	}
}

type explainBody struct {
	Payload domain.Invocation `json:"payload"`
}

type proxyError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Invoke sends one model invocation and decodes the provider response.
// Failures come back as *domain.CallError with the class and the
// retriable flag set.
func (c *Client) Invoke(ctx context.Context, inv domain.Invocation) (Output, error) {
	body, err := json.Marshal(explainBody{Payload: inv})
	if err != nil {
		return nil, fmt.Errorf("encode invocation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/explain", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", c.clientID)
	if c.extensionID != "" {
		req.Header.Set("X-Extension-Id", c.extensionID)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &domain.CallError{
			Class:     domain.ClassNetworkRetryable,
			Detail:    err.Error(),
			Retriable: true,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.CallError{
			Class:     domain.ClassNetworkRetryable,
			Detail:    err.Error(),
			Retriable: true,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp, raw)
	}

	var provider openai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &provider); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	return decode(provider), nil
}

// CallStructured invokes with the attached structured-output schema.
// If the proxy rejects the call for a schema-related reason, it
// retries exactly once with the schema removed.
func (c *Client) CallStructured(ctx context.Context, inv domain.Invocation) (Output, error) {
	out, err := c.Invoke(ctx, inv)
	if err == nil || inv.ResponseSchema == nil {
		return out, err
	}
	if ce, ok := domain.AsCallError(err); ok && schemaRejection(ce) {
		log.Printf("[gateway] schema rejected for model %s, retrying without schema", inv.Model)
		bare := inv
		bare.ResponseSchema = nil
		return c.Invoke(ctx, bare)
	}
	return out, err
}

// Moderate asks the proxy whether text is flagged. Moderation is
// advisory: any failure, and empty text, report not flagged.
func (c *Client) Moderate(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/moderate", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Id", c.clientID)
	if c.extensionID != "" {
		req.Header.Set("X-Extension-Id", c.extensionID)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var out struct {
		Flagged bool `json:"flagged"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	return out.Flagged
}

// classifyStatus turns a non-2xx proxy response into a CallError.
// 429 and 5xx are retriable; everything else is a hard rejection.
func classifyStatus(resp *http.Response, raw []byte) *domain.CallError {
	detail := ""
	var pe proxyError
	if json.Unmarshal(raw, &pe) == nil && pe.Error != "" {
		detail = pe.Error
		if pe.Detail != "" {
			detail += ": " + pe.Detail
		}
	} else {
		detail = strings.TrimSpace(string(raw))
	}
	if len(detail) > 200 {
		detail = detail[:200]
	}

	ce := &domain.CallError{Status: resp.StatusCode, Detail: detail}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		ce.Class = domain.ClassProxyRetryable
		ce.Retriable = true
		if s := resp.Header.Get("Retry-After"); s != "" {
			if secs, err := strconv.Atoi(s); err == nil {
				ce.RetryAfter = time.Duration(secs) * time.Second
			}
		}
	case resp.StatusCode >= 500:
		ce.Class = domain.ClassProxyRetryable
		ce.Retriable = true
	default:
		ce.Class = domain.ClassProxyError
	}
	return ce
}

// schemaRejection reports whether a proxy error looks like the
// provider rejected the structured-output schema itself.
func schemaRejection(ce *domain.CallError) bool {
	if ce.Class != domain.ClassProxyError {
		return false
	}
	d := strings.ToLower(ce.Detail)
	return strings.Contains(d, "schema") ||
		strings.Contains(d, "response_format") ||
		strings.Contains(d, "json_schema")
}

// decode classifies the raw provider payload into one Output variant.
func decode(resp openai.ChatCompletionResponse) Output {
	if len(resp.Choices) == 0 {
		return Incomplete{Reason: "no choices"}
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return Refused{Message: choice.Message.Refusal}
	}
	text := strings.TrimSpace(choice.Message.Content)
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return Refused{Message: "the model declined to process this text"}
	}
	if text == "" {
		if choice.FinishReason == openai.FinishReasonLength {
			return Incomplete{Reason: ReasonTruncated}
		}
		return Incomplete{Reason: "empty"}
	}
	return Completed{Text: text}
}
