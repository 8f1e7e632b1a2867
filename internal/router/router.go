// Package router answers questions over several company indexes by splitting
// them into per-company sub-questions and merging the partial answers.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"earnings-rag/internal/common"
	"earnings-rag/internal/domain"
	"earnings-rag/internal/llm"
)

// ErrEngineNotBuilt is returned when Query runs before any tool is registered.
var ErrEngineNotBuilt = errors.New("query engine not built")

// QueryEngine answers a question from a single source.
type QueryEngine interface {
	Query(ctx context.Context, question string) (domain.Answer, error)
}

// Tool exposes one company's index to the router.
type Tool struct {
	Name        string
	Symbol      string
	Description string
	Engine      QueryEngine
}

// NewTool builds the retrieval tool for a company collection.
func NewTool(name, symbol string, engine QueryEngine) Tool {
	return Tool{
		Name:        name,
		Symbol:      symbol,
		Description: "Provides information about earnings calls for the company with stock symbol: " + symbol,
		Engine:      engine,
	}
}

// SubAnswer is one routed sub-question and what its tool returned.
type SubAnswer struct {
	Question string
	ToolName string
	Answer   domain.Answer
}

// Response is the merged answer plus the partials it was built from.
type Response struct {
	Text       string
	SubAnswers []SubAnswer
}

// Engine routes questions across registered tools.
type Engine struct {
	gen    llm.Generator
	logger *common.Logger

	mu    sync.RWMutex
	tools []Tool
}

type Option func(*Engine)

func WithLogger(l *common.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(gen llm.Generator, opts ...Option) *Engine {
	e := &Engine{gen: gen, logger: common.NewSilentLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a tool. A tool with the same name replaces the earlier one.
func (e *Engine) Register(t Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tools {
		if e.tools[i].Name == t.Name {
			e.tools[i] = t
			return
		}
	}
	e.tools = append(e.tools, t)
}

// Tools returns the registered tools in registration order.
func (e *Engine) Tools() []Tool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Tool(nil), e.tools...)
}

// Query decomposes the question, dispatches each sub-question to its tool in
// order and synthesizes a final answer from the partial answers.
func (e *Engine) Query(ctx context.Context, question string) (*Response, error) {
	tools := e.Tools()
	if len(tools) == 0 {
		return nil, ErrEngineNotBuilt
	}

	subs, err := e.decompose(ctx, question, tools)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	answers := make([]SubAnswer, 0, len(subs))
	for _, sq := range subs {
		ans, err := byName[sq.ToolName].Engine.Query(ctx, sq.Question)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sq.ToolName, err)
		}
		e.logger.Debug().Str("tool", sq.ToolName).Str("sub_question", sq.Question).Msg("sub-question answered")
		answers = append(answers, SubAnswer{Question: sq.Question, ToolName: sq.ToolName, Answer: ans})
	}

	text, err := e.gen.Generate(ctx, synthesisSystemPrompt, buildSynthesisPrompt(question, answers))
	if err != nil {
		return nil, fmt.Errorf("synthesizing answer: %w", err)
	}
	return &Response{Text: strings.TrimSpace(text), SubAnswers: answers}, nil
}

type subQuestion struct {
	Question string `json:"sub_question"`
	ToolName string `json:"tool_name"`
}

func (e *Engine) decompose(ctx context.Context, question string, tools []Tool) ([]subQuestion, error) {
	raw, err := e.gen.Generate(ctx, decomposeSystemPrompt, buildDecomposePrompt(question, tools))
	if err != nil {
		return nil, fmt.Errorf("generating sub-questions: %w", err)
	}
	subs, err := parseSubQuestions(raw, tools)
	if err == nil && len(subs) > 0 {
		return subs, nil
	}
	e.logger.Warn().Err(err).Int("usable", len(subs)).Msg("sub-question output unusable, routing by symbol")
	return fallbackRoute(question, tools), nil
}

// parseSubQuestions reads the JSON array out of the model output and drops
// items that name unknown tools or carry no question.
func parseSubQuestions(raw string, tools []Tool) ([]subQuestion, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in response: %q", truncate(s, 80))
	}
	var items []subQuestion
	if err := json.Unmarshal([]byte(s[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("parse sub-questions: %w", err)
	}

	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}
	out := items[:0]
	for _, it := range items {
		it.Question = strings.TrimSpace(it.Question)
		if it.Question == "" || !known[it.ToolName] {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// fallbackRoute sends the question to every tool whose symbol appears in it,
// or to all tools when none does.
func fallbackRoute(question string, tools []Tool) []subQuestion {
	tokens := make(map[string]bool)
	for _, f := range strings.FieldsFunc(question, isSeparator) {
		tokens[strings.TrimRight(f, ".-")] = true
	}
	var out []subQuestion
	for _, t := range tools {
		if tokens[t.Symbol] {
			out = append(out, subQuestion{Question: question, ToolName: t.Name})
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, t := range tools {
		out = append(out, subQuestion{Question: question, ToolName: t.Name})
	}
	return out
}

func isSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
		return false
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
