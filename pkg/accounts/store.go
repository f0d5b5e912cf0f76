package accounts

import (
	"fmt"
	"sort"
	"time"

	"iggraph/pkg/logger"
	"iggraph/pkg/models"
)

// Store holds every tracked account, keyed by id
type Store struct {
	rows map[string]*models.Account
	log  logger.Logger
}

// NewStore creates an empty store
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{rows: make(map[string]*models.Account), log: log}
}

// Upsert inserts the account or replaces the stored row. A scrape
// timestamp already recorded for the account is never cleared.
func (s *Store) Upsert(account models.Account) {
	if existing, ok := s.rows[account.ID]; ok && existing.LastScrapedAt != nil && account.LastScrapedAt == nil {
		account.LastScrapedAt = existing.LastScrapedAt
	}
	a := account
	s.rows[a.ID] = &a
}

// Get returns a copy of the row for id
func (s *Store) Get(id string) (models.Account, bool) {
	a, ok := s.rows[id]
	if !ok {
		return models.Account{}, false
	}
	return *a, true
}

// Has reports whether id is tracked
func (s *Store) Has(id string) bool {
	_, ok := s.rows[id]
	return ok
}

// Len returns the number of tracked accounts
func (s *Store) Len() int { return len(s.rows) }

// SetCentrality records a score for one account
func (s *Store) SetCentrality(id string, score float64) error {
	a, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("account %s is not tracked", id)
	}
	a.Centrality = models.Float(score)
	return nil
}

// UpdateScores writes a ranking round onto every tracked account it covers
// and returns the number of rows updated.
func (s *Store) UpdateScores(scores map[string]float64) int {
	updated := 0
	for id, a := range s.rows {
		score, ok := scores[id]
		if !ok {
			s.log.WarnWithFields("Tracked account missing from ranking", map[string]interface{}{"account_id": id})
			continue
		}
		a.Centrality = models.Float(score)
		updated++
	}
	return updated
}

// MarkScraped records that id's following list was fetched at the given time
func (s *Store) MarkScraped(id string, at time.Time) error {
	a, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("account %s is not tracked", id)
	}
	t := at.UTC()
	a.LastScrapedAt = &t
	return nil
}

// Ranked returns all rows ordered by centrality, highest first. Unranked
// rows sort after ranked ones; ties are broken by id.
func (s *Store) Ranked() []models.Account {
	out := make([]models.Account, 0, len(s.rows))
	for _, a := range s.rows {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].Centrality, out[j].Centrality
		switch {
		case ci != nil && cj == nil:
			return true
		case ci == nil && cj != nil:
			return false
		case ci != nil && cj != nil && *ci != *cj:
			return *ci > *cj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SelectCandidate returns the highest ranked account among the top
// retainedRank rows whose following list has not been fetched yet.
func (s *Store) SelectCandidate(retainedRank int) (models.Account, bool) {
	ranked := s.Ranked()
	if retainedRank < len(ranked) {
		ranked = ranked[:max(retainedRank, 0)]
	}
	for _, a := range ranked {
		if a.LastScrapedAt == nil {
			return a, true
		}
	}
	return models.Account{}, false
}

// Unscraped counts rows still waiting for expansion
func (s *Store) Unscraped() int {
	n := 0
	for _, a := range s.rows {
		if a.LastScrapedAt == nil {
			n++
		}
	}
	return n
}
