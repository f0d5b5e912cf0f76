package crawler

import (
	"context"
	"fmt"
	"time"

	"iggraph/pkg/accounts"
	"iggraph/pkg/config"
	errs "iggraph/pkg/errors"
	"iggraph/pkg/graph"
	"iggraph/pkg/logger"
	"iggraph/pkg/metrics"
	"iggraph/pkg/models"
	"iggraph/pkg/storage"
)

// Dependencies are everything a Scheduler needs; nothing is read from
// package state.
type Dependencies struct {
	Fetcher  Fetcher
	Ranker   Ranker
	Pacer    Pacer
	Storage  *storage.Manager
	Config   *config.Config
	Logger   logger.Logger
	Recorder metrics.Recorder
	// Now defaults to time.Now
	Now func() time.Time
}

// Iteration describes one completed and persisted expansion
type Iteration struct {
	Number    int
	Candidate models.AccountSummary
	Followed  int
	NotFound  bool
	Promoted  []string
	Algorithm string
	Converged bool
}

// Summary describes a finished run
type Summary struct {
	Iterations int
	Accounts   int
	Nodes      int
	Edges      int
}

// Scheduler expands the highest ranked unexpanded account until every
// account within the retained rank has been expanded.
type Scheduler struct {
	fetcher  Fetcher
	ranker   Ranker
	pacer    Pacer
	storage  *storage.Manager
	config   *config.Config
	logger   logger.Logger
	recorder metrics.Recorder
	now      func() time.Time

	// OnPersist is called after each iteration has been written to disk
	OnPersist func(Iteration)

	accounts *accounts.Store
	graph    *graph.FollowGraph
	// gone holds ids that were not found upstream during this run
	gone map[string]bool
}

// New creates a scheduler. Fetcher, Ranker, Pacer, Storage and Config are required.
func New(deps Dependencies) *Scheduler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	rec := deps.Recorder
	if rec == nil {
		rec = metrics.Nop{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		fetcher:  deps.Fetcher,
		ranker:   deps.Ranker,
		pacer:    deps.Pacer,
		storage:  deps.Storage,
		config:   deps.Config,
		logger:   log.WithField("component", "crawler"),
		recorder: rec,
		now:      now,
		gone:     make(map[string]bool),
	}
}

// Accounts returns the account store of the current or last run
func (s *Scheduler) Accounts() *accounts.Store { return s.accounts }

// Graph returns the follow graph of the current or last run
func (s *Scheduler) Graph() *graph.FollowGraph { return s.graph }

// CheckPreconditions reports a validation error unless exactly one of
// persisted state in the data directory and seedUsername is present. It
// has no side effects.
func CheckPreconditions(store *storage.Manager, seedUsername string, retainedRank int) (bool, error) {
	if retainedRank < 1 {
		return false, errs.Validation("poorest centrality rank must be at least 1, got %d", retainedRank)
	}
	hasState, err := store.HasState()
	if err != nil {
		return false, errs.Wrap(errs.ErrorTypeValidation, err, "inspecting data directory %s", store.Dir())
	}
	if hasState == (seedUsername != "") {
		return false, errs.Validation(
			"either a data directory with existing data or a username must be provided, not both nor neither")
	}
	return hasState, nil
}

// Run crawls until no candidate remains within the top retainedRank
// accounts. Exactly one of existing state and seedUsername must be present.
// A cancelled ctx stops the run between iterations or during a pause;
// everything persisted up to that point is kept.
func (s *Scheduler) Run(ctx context.Context, seedUsername string, retainedRank int) (*Summary, error) {
	hasState, err := CheckPreconditions(s.storage, seedUsername, retainedRank)
	if err != nil {
		return nil, err
	}

	logger.LogComponentStart(s.logger, "crawler", map[string]interface{}{
		"data_dir":      s.storage.Dir(),
		"retained_rank": retainedRank,
		"resume":        hasState,
	})

	if hasState {
		s.logger.Info("Data present in directory, loading state")
		if err := s.load(); err != nil {
			return nil, err
		}
	} else {
		s.logger.InfoWithFields("Data not present in directory, fetching seed account", map[string]interface{}{
			"username": seedUsername,
		})
		if err := s.bootstrap(ctx, seedUsername); err != nil {
			return nil, err
		}
	}

	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.LogComponentStop(s.logger, "crawler", "interrupted")
			return s.summary(iterations), err
		}

		candidate, ok := s.accounts.SelectCandidate(retainedRank)
		if !ok {
			break
		}

		if iterations > 0 {
			if err := s.pacer.Wait(ctx); err != nil {
				logger.LogComponentStop(s.logger, "crawler", "interrupted")
				return s.summary(iterations), err
			}
		}

		it, err := s.iterate(ctx, candidate, retainedRank)
		if err != nil {
			s.logger.WithError(err).ErrorWithFields("Crawl stopped", map[string]interface{}{
				"account_id": candidate.ID,
				"username":   candidate.Username,
				"error_type": string(errs.TypeOf(err)),
			})
			return s.summary(iterations), err
		}
		iterations++
		it.Number = iterations
		if s.OnPersist != nil {
			s.OnPersist(it)
		}
	}

	sum := s.summary(iterations)
	s.logger.InfoWithFields("All relevantly high ranking accounts scraped", map[string]interface{}{
		"iterations": sum.Iterations,
		"accounts":   sum.Accounts,
		"nodes":      sum.Nodes,
		"edges":      sum.Edges,
	})
	logger.LogComponentStop(s.logger, "crawler", "no candidates left")
	return sum, nil
}

// iterate expands one candidate, folds the result into both stores,
// re-ranks and persists. Nothing touches disk before the final persist.
func (s *Scheduler) iterate(ctx context.Context, candidate models.Account, retainedRank int) (Iteration, error) {
	it := Iteration{Candidate: candidate.Summary()}

	s.logger.InfoWithFields("Scraping accounts followed by candidate", map[string]interface{}{
		"account_id": candidate.ID,
		"username":   candidate.Username,
		"centrality": centralityField(candidate.Centrality),
	})

	followed, err := s.fetcher.FollowedAccounts(ctx, candidate.ID, s.config.FollowsPageSize, s.config.MaxFollowedScraped)
	switch {
	case errs.IsNotFound(err):
		s.logger.WithError(err).WarnWithFields("Candidate no longer exists, marking as scraped", map[string]interface{}{
			"account_id": candidate.ID,
			"username":   candidate.Username,
		})
		it.NotFound = true
		followed = nil
		s.recorder.Expansion("not_found")
	case err != nil:
		return it, fmt.Errorf("fetching accounts followed by %s: %w", candidate.Username, err)
	default:
		s.recorder.Expansion("ok")
	}
	it.Followed = len(followed)

	s.merge(candidate.ID, followed)
	if err := s.accounts.MarkScraped(candidate.ID, s.now()); err != nil {
		return it, err
	}

	res, err := s.ranker.Rank(s.graph)
	if err != nil {
		return it, fmt.Errorf("ranking graph: %w", err)
	}
	it.Algorithm = string(res.Algorithm)
	it.Converged = res.Converged
	s.recorder.RankingRound(it.Algorithm, it.Converged)

	promoted, err := s.promote(ctx, res.Top(retainedRank))
	if err != nil {
		return it, err
	}
	it.Promoted = promoted

	s.accounts.UpdateScores(res.Scores)

	if err := s.persist(); err != nil {
		return it, err
	}

	s.recorder.GraphSize(s.graph.NodeCount(), s.graph.EdgeCount())
	s.recorder.TrackedAccounts(s.accounts.Len(), s.accounts.Len()-s.accounts.Unscraped())
	s.logger.InfoWithFields("Iteration persisted", map[string]interface{}{
		"username":  candidate.Username,
		"followed":  it.Followed,
		"promoted":  len(promoted),
		"algorithm": it.Algorithm,
		"accounts":  s.accounts.Len(),
		"nodes":     s.graph.NodeCount(),
		"edges":     s.graph.EdgeCount(),
	})
	return it, nil
}

// merge adds the followed accounts and the follow edges to the graph
func (s *Scheduler) merge(source string, followed []models.AccountSummary) {
	ids := make([]string, 0, len(followed))
	for _, f := range followed {
		ids = append(ids, f.ID)
	}
	added := s.graph.AddNodes(followed...)
	edges := s.graph.AddEdges(source, ids...)
	s.logger.DebugWithFields("Merged followed accounts", map[string]interface{}{
		"source":    source,
		"new_nodes": len(added),
		"new_edges": edges,
	})
}

// promote fetches full profiles for the ids in top that are not tracked
// yet. Accounts that vanished upstream stay bare graph nodes.
func (s *Scheduler) promote(ctx context.Context, top []string) ([]string, error) {
	var promoted []string
	for _, id := range top {
		if s.accounts.Has(id) || s.gone[id] {
			continue
		}
		account, err := s.fetcher.AccountByID(ctx, id)
		if errs.IsNotFound(err) {
			s.gone[id] = true
			s.logger.WithError(err).WarnWithFields("Promoted account no longer exists, leaving it untracked", map[string]interface{}{
				"account_id": id,
			})
			continue
		}
		if err != nil {
			return promoted, fmt.Errorf("fetching profile of %s: %w", id, err)
		}

		account.ID = id
		account.LastScrapedAt = nil
		s.accounts.Upsert(*account)
		s.graph.Enrich(account)
		promoted = append(promoted, id)
		s.logger.DebugWithFields("Account promoted", map[string]interface{}{
			"account_id": id,
			"username":   account.Username,
		})
	}
	if len(promoted) > 0 {
		s.logger.InfoWithFields("Added relevant followed accounts", map[string]interface{}{
			"count": len(promoted),
		})
		s.recorder.Promotions(len(promoted))
	}
	return promoted, nil
}

func (s *Scheduler) summary(iterations int) *Summary {
	sum := &Summary{Iterations: iterations}
	if s.accounts != nil {
		sum.Accounts = s.accounts.Len()
	}
	if s.graph != nil {
		sum.Nodes = s.graph.NodeCount()
		sum.Edges = s.graph.EdgeCount()
	}
	return sum
}

func centralityField(c *float64) interface{} {
	if c == nil {
		return "unranked"
	}
	return *c
}
