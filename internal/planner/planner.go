// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner runs the research session loop: seed searches, graph
// expansion, gap scoring, and hypothesis updates, iterating until the
// plan is validated or a budget runs out. Partial results are always
// valid; a session cut short still reports everything it learned.
// See docs/ARCHITECTURE.md § Research Planner.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deep-research/internal/gaps"
	"github.com/pdiddy/deep-research/internal/graph"
	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/internal/identity"
	"github.com/pdiddy/deep-research/internal/ratelimit"
	"github.com/pdiddy/deep-research/internal/report"
	"github.com/pdiddy/deep-research/internal/source"
	"github.com/pdiddy/deep-research/internal/thinking"
	"github.com/pdiddy/deep-research/pkg/types"
)

// seedQuestionsPerIteration bounds how many open questions are searched
// in one pass, so escalated questions take turns instead of flooding
// every source every iteration.
const seedQuestionsPerIteration = 3

// revisedSuffix marks a claim spawned by contested-evidence revision.
const revisedSuffix = " (accounting for contested evidence)"

// Session owns all state for one research run.
type Session struct {
	id       string
	cfg      types.SessionConfig
	adapters []source.Adapter
	limiter  *ratelimit.Limiter
	resolver *identity.Resolver
	store    *graph.Store
	frontier *graph.Traversal
	analyzer *gaps.Analyzer
	engine   *thinking.Engine
	log      *zap.Logger

	questions []types.Question
	seen      map[string]bool
}

// New wires a session from configuration. The caller owns the store's
// lifetime; everything else is session-scoped.
func New(cfg types.SessionConfig, adapters []source.Adapter, store *graph.Store, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	groups := make(map[string]string, len(adapters))
	for _, a := range adapters {
		groups[a.Name()] = a.Group()
	}
	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		adapters: adapters,
		limiter:  ratelimit.New(cfg.Sources),
		resolver: identity.NewResolver(),
		store:    store,
		frontier: graph.NewTraversal(cfg.Traversal, store),
		analyzer: gaps.NewAnalyzer(cfg.Gaps, groups),
		engine:   thinking.NewEngine(cfg.Thinking),
		log:      log,
		seen:     make(map[string]bool),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run executes the research loop for topic and synthesizes the report.
// The only hard failures are an empty topic and storage errors; source
// failures degrade to partial results.
func (s *Session) Run(ctx context.Context, topic string) (types.Report, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return types.Report{}, fmt.Errorf("planner: empty topic")
	}
	if len(s.adapters) == 0 {
		return types.Report{}, fmt.Errorf("planner: no sources enabled")
	}

	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}

	started := time.Now()
	s.log.Info("session started",
		zap.String("session_id", s.id),
		zap.String("topic", topic),
		zap.Int("sources", len(s.adapters)))

	s.addQuestion(topic, 1.0)
	if _, err := s.engine.Propose(topic, ""); err != nil {
		return types.Report{}, err
	}

	stopReason := "iteration-budget"
	converged := false
	stale := 0
	iterations := 0

	for i := 0; i < s.cfg.MaxIterations; i++ {
		if ctx.Err() != nil {
			stopReason = "deadline"
			break
		}
		iterations = i + 1
		before := s.signature()

		if err := s.seedQuestions(ctx); err != nil {
			return types.Report{}, err
		}
		if err := s.expandFrontier(ctx); err != nil {
			return types.Report{}, err
		}
		s.updateEvidence()
		s.analyzer.Score(s.questions, s.resolver.All())
		s.spawnQuestions()
		s.analyzer.Escalate(s.questions)

		s.log.Debug("iteration complete",
			zap.Int("iteration", iterations),
			zap.Int("entities", len(s.resolver.All())),
			zap.Int("questions", len(s.questions)),
			zap.Int("hypotheses", len(s.engine.All())))

		if ctx.Err() != nil {
			stopReason = "deadline"
			break
		}
		if s.allValidated() {
			stopReason = "validated"
			break
		}
		if s.frontier.Exhausted() {
			stopReason = "entity-budget"
			break
		}
		if s.signature() == before {
			stale++
		} else {
			stale = 0
		}
		if stale >= 2 {
			stopReason = "converged"
			converged = true
			break
		}
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return types.Report{}, err
	}

	citedBy := make(map[string]int)
	for _, e := range s.resolver.All() {
		inbound, nerr := s.store.Neighbors(ctx, e.CanonicalID, types.EdgeCitedBy)
		if nerr != nil {
			return types.Report{}, nerr
		}
		if len(inbound) > 0 {
			citedBy[e.CanonicalID] = len(inbound)
		}
	}

	rep := report.Synthesize(report.Input{
		SessionID:  s.id,
		Topic:      topic,
		Started:    started,
		Finished:   time.Now(),
		Entities:   s.resolver.All(),
		Hypotheses: s.engine.All(),
		Gaps:       s.analyzer.Gaps(s.questions),
		CitedBy:    citedBy,
		Stats: types.SessionStats{
			Iterations:      iterations,
			EntitiesVisited: stats.Visited,
			EntitiesFailed:  stats.Failed,
			Edges:           stats.Edges,
			MaxDepthReached: s.frontier.MaxDepthReached(),
			SourceBreakdown: s.sourceBreakdown(),
			Converged:       converged,
			StopReason:      stopReason,
		},
	})

	s.log.Info("session finished",
		zap.String("session_id", s.id),
		zap.String("stop_reason", stopReason),
		zap.Int("iterations", iterations),
		zap.Int("entities", stats.Entities),
		zap.Int("findings", len(rep.Findings)))
	return rep, nil
}

// seedQuestions fans the highest-priority open questions out to every
// adapter and folds the results into the resolver, store, and frontier.
func (s *Session) seedQuestions(ctx context.Context) error {
	picked := s.pickQuestions()
	if len(picked) == 0 {
		return nil
	}

	type fetchResult struct {
		src  string
		recs []source.Record
	}

	var mu sync.Mutex
	var results []fetchResult

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism())
	for _, q := range picked {
		for _, a := range s.adapters {
			a, text := a, q.Text
			g.Go(func() error {
				recs, err := s.searchSource(gctx, a, text)
				if err != nil {
					// Source failures degrade to partial coverage.
					s.log.Warn("search failed",
						zap.String("source", a.Name()),
						zap.String("query", text),
						zap.Error(err))
					return nil
				}
				mu.Lock()
				results = append(results, fetchResult{src: a.Name(), recs: recs})
				mu.Unlock()
				return nil
			})
		}
	}
	g.Wait()

	// Apply serially for deterministic merge order.
	sort.Slice(results, func(i, j int) bool { return results[i].src < results[j].src })
	for _, fr := range results {
		for _, rec := range fr.recs {
			if err := s.applyRecord(ctx, rec, fr.src); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickQuestions returns the top open questions by priority and marks
// them in progress.
func (s *Session) pickQuestions() []types.Question {
	var idx []int
	for i := range s.questions {
		st := s.questions[i].Status
		if st == types.QuestionOpen || st == types.QuestionInProgress {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.questions[idx[a]].Priority > s.questions[idx[b]].Priority
	})
	if len(idx) > seedQuestionsPerIteration {
		idx = idx[:seedQuestionsPerIteration]
	}

	picked := make([]types.Question, 0, len(idx))
	for _, i := range idx {
		s.questions[i].Status = types.QuestionInProgress
		picked = append(picked, s.questions[i])
	}
	return picked
}

// searchSource acquires a rate limit token and queries one adapter,
// retrying rate-limited fetches with backoff and timeouts once.
func (s *Session) searchSource(ctx context.Context, a source.Adapter, query string) ([]source.Record, error) {
	var recs []source.Record
	err := httputil.Retry(ctx, s.cfg.RetryMax, s.cfg.RetryBase, func(ctx context.Context) error {
		if err := s.limiter.Acquire(ctx, a.Name()); err != nil {
			return err
		}
		var serr error
		recs, serr = a.Search(ctx, query, s.cfg.SeedResults)
		return serr
	})
	return recs, err
}

// applyRecord folds one search record into session state: resolve to a
// canonical entity, persist, queue for expansion, and record its inline
// citation stubs.
func (s *Session) applyRecord(ctx context.Context, rec source.Record, src string) error {
	ent := s.resolver.Resolve(rec, src)
	if err := s.store.UpsertEntity(ctx, ent); err != nil {
		return err
	}
	if _, err := s.frontier.Push(ctx, ent.CanonicalID, 0, ent.Relevance); err != nil {
		return err
	}
	for _, stub := range rec.Refs {
		if err := s.applyStub(ctx, ent, stub, src, 1); err != nil {
			return err
		}
	}
	return nil
}

// applyStub records a citation stub: a partial child entity, the edge,
// and a frontier push at the child depth.
func (s *Session) applyStub(ctx context.Context, parent types.Entity, stub source.Stub, src string, depth int) error {
	if stub.IsEmpty() {
		return nil
	}
	child := s.resolver.ResolveStub(stub, src)
	if err := s.store.UpsertEntity(ctx, child); err != nil {
		return err
	}
	edge := types.CitationEdge{
		From:      parent.CanonicalID,
		To:        child.CanonicalID,
		Direction: stub.Direction,
		Source:    src,
	}
	if err := s.store.UpsertEdge(ctx, edge); err != nil {
		return err
	}

	// Children inherit decayed relevance unless they scored on their own.
	rel := child.Relevance
	if inherited := parent.Relevance * 0.8; inherited > rel {
		rel = inherited
	}
	_, err := s.frontier.Push(ctx, child.CanonicalID, depth, rel)
	return err
}

// expandFrontier drains the traversal stack, expanding each popped node
// through every adapter that can address it.
func (s *Session) expandFrontier(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		node, ok, err := s.frontier.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		ent, err := s.store.Entity(ctx, node.ID)
		if err != nil {
			return err
		}

		type refResult struct {
			src   string
			stubs []source.Stub
		}
		var mu sync.Mutex
		var results []refResult
		failures := 0

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.parallelism())
		for _, a := range s.adapters {
			a := a
			g.Go(func() error {
				stubs, err := s.referencesSource(gctx, a, ent.IDs)
				if err != nil {
					mu.Lock()
					failures++
					mu.Unlock()
					if !errors.Is(err, source.ErrNotFound) {
						s.log.Warn("expansion failed",
							zap.String("source", a.Name()),
							zap.String("entity", node.ID),
							zap.Error(err))
					}
					return nil
				}
				mu.Lock()
				results = append(results, refResult{src: a.Name(), stubs: stubs})
				mu.Unlock()
				return nil
			})
		}
		g.Wait()

		if len(results) == 0 && failures == len(s.adapters) {
			if err := s.frontier.Failed(ctx, node.ID); err != nil {
				return err
			}
			continue
		}

		sort.Slice(results, func(i, j int) bool { return results[i].src < results[j].src })
		for _, rr := range results {
			for _, stub := range rr.stubs {
				if err := s.applyStub(ctx, ent, stub, rr.src, node.Depth+1); err != nil {
					return err
				}
			}
		}
		if err := s.frontier.Visited(ctx, node.ID); err != nil {
			return err
		}
	}
}

// referencesSource fetches one adapter's citation stubs for an entity,
// bounded by the per-source reference cap.
func (s *Session) referencesSource(ctx context.Context, a source.Adapter, ids types.SourceIDs) ([]source.Stub, error) {
	limit := s.cfg.Traversal.MaxRefsPerSource
	var stubs []source.Stub
	err := httputil.Retry(ctx, s.cfg.RetryMax, s.cfg.RetryBase, func(ctx context.Context) error {
		if err := s.limiter.Acquire(ctx, a.Name()); err != nil {
			return err
		}
		var rerr error
		stubs, rerr = a.References(ctx, ids, limit)
		return rerr
	})
	return stubs, err
}

// updateEvidence classifies every entity against every unresolved
// hypothesis and applies the confidence updates. Contested unresolved
// hypotheses are revised into qualified claims once.
func (s *Session) updateEvidence() {
	entities := s.resolver.All()
	for _, h := range s.engine.Unresolved() {
		for _, e := range entities {
			switch classify(h.Claim, e) {
			case verdictSupport:
				s.engine.Support(h.ID, e.CanonicalID)
			case verdictRefute:
				s.engine.Refute(h.ID, e.CanonicalID)
			}
		}
	}

	for _, h := range s.engine.Unresolved() {
		if len(h.Supporting) > 0 && len(h.Refuting) > 0 &&
			len(h.Children) == 0 && !strings.HasSuffix(h.Claim, revisedSuffix) {
			s.engine.Revise(h.ID, h.Claim+revisedSuffix)
		}
	}
}

// spawnQuestions opens a question per unresolved hypothesis claim so the
// next iteration searches for evidence it still lacks.
func (s *Session) spawnQuestions() {
	for _, h := range s.engine.Unresolved() {
		s.addQuestion(h.Claim, 1.0)
	}
}

func (s *Session) addQuestion(text string, priority float64) {
	key := strings.ToLower(strings.TrimSpace(text))
	if key == "" || s.seen[key] {
		return
	}
	s.seen[key] = true
	s.questions = append(s.questions, types.Question{
		ID:       uuid.NewString(),
		Text:     text,
		Status:   types.QuestionOpen,
		Priority: priority,
	})
}

// allValidated reports whether every question is answered and every
// hypothesis resolved.
func (s *Session) allValidated() bool {
	for _, q := range s.questions {
		if q.Status == types.QuestionOpen || q.Status == types.QuestionInProgress {
			return false
		}
	}
	return s.engine.AllResolved()
}

// signature captures the knowledge state for convergence detection: a
// changed entity or hypothesis count means progress.
func (s *Session) signature() string {
	resolved := 0
	all := s.engine.All()
	for _, h := range all {
		if h.State.Resolved() {
			resolved++
		}
	}
	return fmt.Sprintf("%d/%d/%d", len(s.resolver.All()), len(all), resolved)
}

func (s *Session) sourceBreakdown() map[string]int {
	out := make(map[string]int)
	for _, e := range s.resolver.All() {
		for _, src := range e.Sources {
			out[src]++
		}
	}
	return out
}

func (s *Session) parallelism() int {
	if s.cfg.Parallelism > 0 {
		return s.cfg.Parallelism
	}
	return 1
}
