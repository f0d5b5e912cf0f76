package crawler

import (
	"context"
	"fmt"

	"iggraph/pkg/accounts"
	"iggraph/pkg/graph"
	"iggraph/pkg/storage"
)

// bootstrap starts a new crawl from the seed account and persists it
func (s *Scheduler) bootstrap(ctx context.Context, username string) error {
	seed, err := s.fetcher.AccountByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("fetching seed account %s: %w", username, err)
	}
	seed.LastScrapedAt = nil
	seed.Centrality = nil

	s.accounts = accounts.NewStore(s.logger)
	s.graph = graph.New(s.logger)
	s.accounts.Upsert(*seed)
	s.graph.Enrich(seed)

	if err := s.storage.Ensure(); err != nil {
		return err
	}
	return s.persist()
}

// load reads both stores from the data directory and restores the
// invariant that every tracked account is a graph node.
func (s *Scheduler) load() error {
	af, err := s.storage.Open(storage.AccountsFile)
	if err != nil {
		return err
	}
	defer af.Close()
	store, err := accounts.ReadCSV(af, s.logger)
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.storage.AccountsPath(), err)
	}

	gf, err := s.storage.Open(storage.GraphFile)
	if err != nil {
		return err
	}
	defer gf.Close()
	g, err := graph.ReadGML(gf, s.logger)
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.storage.GraphPath(), err)
	}

	for _, a := range store.Ranked() {
		if !g.HasNode(a.ID) {
			s.logger.WarnWithFields("Tracked account missing from graph, adding node", map[string]interface{}{
				"account_id": a.ID,
				"username":   a.Username,
			})
			g.Enrich(&a)
		}
	}

	s.accounts = store
	s.graph = g
	s.logger.InfoWithFields("Loaded crawl state", map[string]interface{}{
		"accounts":  store.Len(),
		"unscraped": store.Unscraped(),
		"nodes":     g.NodeCount(),
		"edges":     g.EdgeCount(),
	})
	return nil
}

// persist writes the graph, then the accounts table, each atomically. A
// crash between the two leaves the candidate unmarked, and expanding it
// again merges the same nodes and edges.
func (s *Scheduler) persist() error {
	if err := s.storage.WriteFile(storage.GraphFile, s.graph.WriteGML); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}
	if err := s.storage.WriteFile(storage.AccountsFile, s.accounts.WriteCSV); err != nil {
		return fmt.Errorf("saving accounts: %w", err)
	}
	s.logger.DebugWithFields("State saved", map[string]interface{}{
		"accounts_path": s.storage.AccountsPath(),
		"graph_path":    s.storage.GraphPath(),
	})
	return nil
}
