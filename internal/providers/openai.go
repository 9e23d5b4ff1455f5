package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/querybird/querybird/internal/schema"
)

const (
	defaultAPIBase     = "https://api.openai.com/v1"
	defaultAPIVersion  = "2024-08-01-preview"
	defaultMaxTokens   = 4096
	defaultHTTPTimeout = 120 * time.Second
)

// OpenAIProvider calls any OpenAI-compatible chat completions endpoint,
// including Azure OpenAI deployments.
type OpenAIProvider struct {
	apiKey       string
	apiBase      string
	apiVersion   string
	deployment   string
	defaultModel string
	extraHeaders map[string]string
	spec         *ProviderSpec
	client       *resty.Client
}

// NewOpenAIProvider constructs a provider from raw config values.
// The caller extracts these from config.Config to avoid an import cycle.
func NewOpenAIProvider(p Params) *OpenAIProvider {
	spec := Resolve(p.ProviderName, p.APIKey, p.APIBase, p.DefaultModel)

	base := p.APIBase
	if base == "" {
		if spec != nil && spec.DefaultAPIBase != "" {
			base = spec.DefaultAPIBase
		} else {
			base = defaultAPIBase
		}
	}
	base = strings.TrimRight(base, "/")

	apiVersion := p.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	deployment := p.Deployment
	if deployment == "" {
		deployment = p.DefaultModel
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &OpenAIProvider{
		apiKey:       p.APIKey,
		apiBase:      base,
		apiVersion:   apiVersion,
		deployment:   deployment,
		defaultModel: p.DefaultModel,
		extraHeaders: p.ExtraHeaders,
		spec:         spec,
		client:       client,
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

func (p *OpenAIProvider) isAzure() bool { return p.spec != nil && p.spec.IsAzure }

// Endpoint returns the URL chat requests are posted to.
func (p *OpenAIProvider) Endpoint() string {
	if p.isAzure() {
		return p.apiBase + "/openai/deployments/" + p.deployment + "/chat/completions"
	}
	return p.apiBase + "/chat/completions"
}

// Chat implements schema.LLMProvider. A non-200 status is returned as an
// error; nothing is retried.
func (p *OpenAIProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := map[string]any{
		"model":       model,
		"messages":    sanitizeMessages(messages),
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	if len(tools) > 0 {
		body["tools"] = tools
		choice := opts.ToolChoice
		if choice == "" {
			choice = schema.ToolChoiceAuto
		}
		body["tool_choice"] = choice
	}
	p.applyModelOverrides(model, body)

	req := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetHeaders(p.extraHeaders)
	if p.isAzure() {
		req.SetHeader("api-key", p.apiKey).
			SetQueryParam("api-version", p.apiVersion)
	} else if p.apiKey != "" {
		req.SetAuthToken(p.apiKey)
	}

	resp, err := req.Post(p.Endpoint())
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("chat request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		slog.Debug("chat completion failed", "status", resp.StatusCode(), "model", model)
		return schema.LLMResponse{}, fmt.Errorf("HTTP %d: %s",
			resp.StatusCode(), friendlyHTTPError(resp.StatusCode(), resp.Body()))
	}

	return parseOpenAIResponse(resp.Body())
}

// messageToWireMap converts a typed Message to the OpenAI wire-format map.
func messageToWireMap(m schema.Message) map[string]any {
	wire := map[string]any{
		"role":    m.Role,
		"content": m.Content,
	}
	if m.Role == schema.RoleAssistant && len(m.ToolCalls) > 0 {
		// Strict providers require "content" even for tool-call-only messages.
		if m.Content == "" {
			wire["content"] = nil
		}
		raw := make([]map[string]any, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			raw[i] = tc.ToWireMap()
		}
		wire["tool_calls"] = raw
	}
	if m.Role == schema.RoleTool {
		wire["tool_call_id"] = m.ToolCallID
		if m.ToolName != "" {
			wire["name"] = m.ToolName
		}
	}
	return wire
}

func sanitizeMessages(messages schema.Messages) []map[string]any {
	out := make([]map[string]any, 0, len(messages.Messages))
	for _, m := range messages.Messages {
		out = append(out, messageToWireMap(m))
	}
	return out
}

func (p *OpenAIProvider) applyModelOverrides(model string, body map[string]any) {
	spec := p.spec
	if spec == nil || spec.IsGateway || spec.IsAzure {
		spec = FindByModel(model)
	}
	if spec == nil {
		return
	}
	modelLower := strings.ToLower(model)
	for _, ov := range spec.ModelOverrides {
		if strings.Contains(modelLower, strings.ToLower(ov.Pattern)) {
			for k, v := range ov.Overrides {
				body[k] = v
			}
			return
		}
	}
}

// openAIRespBody is the subset of the chat completion response we care about.
type openAIRespBody struct {
	Choices []struct {
		Message struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string          `json:"name"`
					Arguments json.RawMessage `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseOpenAIResponse(raw []byte) (schema.LLMResponse, error) {
	var body openAIRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.LLMResponse{}, fmt.Errorf("parse chat response: %w", err)
	}
	if len(body.Choices) == 0 {
		return schema.LLMResponse{}, fmt.Errorf("empty choices in response")
	}

	msg := body.Choices[0].Message
	var content string
	if msg.Content != nil {
		content = *msg.Content
	}

	var toolCalls []schema.ToolCallRequest
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, schema.ToolCallRequest{
			ID:           tc.ID,
			Name:         tc.Function.Name,
			RawArguments: argumentText(tc.Function.Arguments),
		})
	}

	finish := body.Choices[0].FinishReason
	if finish == "" {
		finish = "stop"
	}

	return schema.LLMResponse{
		Content:      content,
		ToolCalls:    toolCalls,
		FinishReason: finish,
		Usage: map[string]int{
			"prompt_tokens":     body.Usage.PromptTokens,
			"completion_tokens": body.Usage.CompletionTokens,
			"total_tokens":      body.Usage.TotalTokens,
		},
	}, nil
}

// argumentText returns the arguments exactly as the model wrote them.
// OpenAI sends a JSON string; some compatible servers send the object
// itself, which is passed through as its JSON text.
func argumentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
