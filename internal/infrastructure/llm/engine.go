package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/metrics"
)

// EngineConfig holds reasoning engine settings
type EngineConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	MaxIterations     int
	RequestsPerMinute int
}

// Engine implements domain.ReasoningEngine on top of the chat completions
// API with function calling. Each Run is one agent task: the model may call
// the task's tools repeatedly before giving its final answer.
type Engine struct {
	client      *openai.Client
	cfg         EngineConfig
	rateLimiter *rate.Limiter
	log         *zap.Logger
}

// NewEngine creates an engine. Without an API key every Run fails with
// domain.ErrReasoningNotConfigured.
func NewEngine(cfg EngineConfig, log *zap.Logger) *Engine {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 8
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}

	e := &Engine{
		cfg:         cfg,
		rateLimiter: rate.NewLimiter(limit, 5),
		log:         logger.OrNop(log).Named("reasoning"),
	}
	if cfg.APIKey != "" {
		e.client = newOpenAIClient(cfg.APIKey, cfg.BaseURL)
	}
	return e
}

// Run executes one task and returns the model's final answer
func (e *Engine) Run(ctx context.Context, req domain.ReasoningRequest) (string, error) {
	if e.client == nil {
		return "", domain.ErrReasoningNotConfigured
	}

	tools, byName := toolDefinitions(req.Tools)
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req)},
		{Role: openai.ChatMessageRoleUser, Content: taskPrompt(req)},
	}

	for iteration := 1; iteration <= e.cfg.MaxIterations; iteration++ {
		msg, err := e.complete(ctx, messages, tools, "", req.JSONOutput)
		if err != nil {
			return "", err
		}
		if len(msg.ToolCalls) == 0 {
			return finalAnswer(msg)
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result, err := e.invoke(ctx, byName, call)
			if err != nil {
				return "", err
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	// Out of iterations: force an answer from what has been gathered so far
	e.log.Warn("iteration limit reached, requesting final answer",
		zap.String("role", req.Role), zap.Int("maxIterations", e.cfg.MaxIterations))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "You have used all available tool calls. Give your best final answer now using the information gathered.",
	})
	msg, err := e.complete(ctx, messages, tools, "none", req.JSONOutput)
	if err != nil {
		return "", err
	}
	return finalAnswer(msg)
}

func (e *Engine) complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, toolChoice string, jsonOutput bool) (openai.ChatCompletionMessage, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Messages:    messages,
		Temperature: e.cfg.Temperature,
	}
	if len(tools) > 0 {
		request.Tools = tools
		if toolChoice != "" {
			request.ToolChoice = toolChoice
		}
	}
	if jsonOutput {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, request)
	if err != nil {
		metrics.ReasoningCalls.WithLabelValues(e.cfg.Model, "error").Inc()
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion failed: %w", err)
	}
	metrics.ReasoningCalls.WithLabelValues(e.cfg.Model, "ok").Inc()

	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("chat completion returned no choices")
	}
	e.log.Debug("completion",
		zap.Duration("latency", time.Since(start)),
		zap.Int("toolCalls", len(resp.Choices[0].Message.ToolCalls)),
		zap.Int("totalTokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message, nil
}

// invoke runs one tool call. Unknown tools and bad arguments are reported back
// to the model; only configuration-fatal tool errors abort the run.
func (e *Engine) invoke(ctx context.Context, tools map[string]domain.Tool, call openai.ToolCall) (string, error) {
	tool, ok := tools[call.Function.Name]
	if !ok {
		e.log.Warn("model requested unknown tool", zap.String("tool", call.Function.Name))
		return fmt.Sprintf("Error: tool %q is not available. Use one of the listed tools.", call.Function.Name), nil
	}

	e.log.Debug("tool call", zap.String("tool", call.Function.Name), zap.String("arguments", call.Function.Arguments))
	result, err := tool.Call(ctx, []byte(call.Function.Arguments))
	if err != nil {
		if domain.IsConfigurationError(err) {
			return "", fmt.Errorf("tool %s: %w", call.Function.Name, err)
		}
		return fmt.Sprintf("Error: %v", err), nil
	}
	return result, nil
}

func finalAnswer(msg openai.ChatCompletionMessage) (string, error) {
	out := strings.TrimSpace(msg.Content)
	if out == "" {
		return "", errors.New("model returned an empty answer")
	}
	return out, nil
}

func toolDefinitions(tools []domain.Tool) ([]openai.Tool, map[string]domain.Tool) {
	defs := make([]openai.Tool, 0, len(tools))
	byName := make(map[string]domain.Tool, len(tools))
	for _, t := range tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
		byName[t.Name()] = t
	}
	return defs, byName
}

func systemPrompt(req domain.ReasoningRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\nYour personal goal is: %s", req.Role, req.Backstory, req.Goal)
	if len(req.Tools) > 0 {
		b.WriteString("\nUse the provided tools to gather facts. Never invent prices, product IDs or URLs.")
	}
	return b.String()
}

func taskPrompt(req domain.ReasoningRequest) string {
	var b strings.Builder
	b.WriteString("Current Task: ")
	b.WriteString(req.Task)
	if req.ExpectedOutput != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(req.ExpectedOutput)
	}
	if req.JSONOutput {
		b.WriteString("\nRespond with a single JSON object and nothing else.")
	}
	if req.Context != "" {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(req.Context)
	}
	return b.String()
}
