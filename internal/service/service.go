// Package service wires transcript grouping, per-company collections and the
// query router into the operations the CLI and TUI call.
package service

import (
	"context"
	"fmt"

	"earnings-rag/internal/collection"
	"earnings-rag/internal/common"
	"earnings-rag/internal/llm"
	"earnings-rag/internal/router"
	"earnings-rag/internal/transcript"
)

// ProgressFunc is called after each company's collection is ready.
type ProgressFunc func(done, total int, ix *collection.Index)

type Service struct {
	parser  *transcript.Parser
	manager *collection.Manager
	gen     llm.Generator
	dir     string
	logger  *common.Logger
}

type Option func(*Service)

func WithLogger(l *common.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(parser *transcript.Parser, manager *collection.Manager, gen llm.Generator, dir string, opts ...Option) *Service {
	s := &Service{
		parser:  parser,
		manager: manager,
		gen:     gen,
		dir:     dir,
		logger:  common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir is the transcripts directory this service reads.
func (s *Service) Dir() string { return s.dir }

// Groups partitions the transcripts directory by company.
func (s *Service) Groups() ([]transcript.Group, error) {
	groups, err := s.parser.GroupDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.dir, err)
	}
	return groups, nil
}

// Populate makes sure every company has a healthy collection, one company
// at a time, and returns the resulting indexes in directory order.
func (s *Service) Populate(ctx context.Context, progress ProgressFunc) ([]*collection.Index, error) {
	groups, err := s.Groups()
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		s.logger.Warn().Str("dir", s.dir).Msg("no transcripts found")
	}
	indexes := make([]*collection.Index, 0, len(groups))
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ix, err := s.manager.Ensure(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.Symbol, err)
		}
		indexes = append(indexes, ix)
		if progress != nil {
			progress(i+1, len(groups), ix)
		}
	}
	return indexes, nil
}

// BuildEngine populates every collection and registers each company as a
// router tool.
func (s *Service) BuildEngine(ctx context.Context) (*router.Engine, error) {
	indexes, err := s.Populate(ctx, nil)
	if err != nil {
		return nil, err
	}
	engine := router.New(s.gen, router.WithLogger(s.logger))
	for _, ix := range indexes {
		engine.Register(router.NewTool(ix.Collection, ix.Symbol, ix))
	}
	s.logger.Info().Int("tools", len(indexes)).Msg("query engine ready")
	return engine, nil
}
