package crawler

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"iggraph/pkg/accounts"
	"iggraph/pkg/centrality"
	"iggraph/pkg/config"
	errs "iggraph/pkg/errors"
	"iggraph/pkg/fetcher"
	"iggraph/pkg/graph"
	"iggraph/pkg/logger"
	"iggraph/pkg/models"
	"iggraph/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream serves a fixed follow graph. Ids are upper case, usernames
// the lower case of the id.
type fakeUpstream struct {
	follows     map[string][]string
	missing     map[string]bool
	rateLimited map[string]bool

	profileCalls  []string
	followedCalls []string
}

func newFakeUpstream(follows map[string][]string) *fakeUpstream {
	return &fakeUpstream{
		follows:     follows,
		missing:     map[string]bool{},
		rateLimited: map[string]bool{},
	}
}

func (f *fakeUpstream) account(id string) *models.Account {
	return &models.Account{
		AccountSummary: models.AccountSummary{
			ID:          id,
			Username:    lower(id),
			DisplayName: "Account " + id,
		},
		Profile: models.Profile{FollowedByCount: 10, Biography: "bio of " + id},
	}
}

func (f *fakeUpstream) FetchAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	f.profileCalls = append(f.profileCalls, username)
	for id := range f.follows {
		if lower(id) == username {
			return f.account(id), nil
		}
	}
	return nil, errs.NotFound("account " + username)
}

func (f *fakeUpstream) FetchAccountByID(ctx context.Context, id string) (*models.Account, error) {
	f.profileCalls = append(f.profileCalls, id)
	if f.missing[id] {
		return nil, errs.NotFound("account " + id)
	}
	return f.account(id), nil
}

func (f *fakeUpstream) FetchFollowedAccounts(ctx context.Context, id string, pageSize, max int) ([]models.AccountSummary, error) {
	f.followedCalls = append(f.followedCalls, id)
	if f.rateLimited[id] {
		return nil, &errs.Error{Type: errs.ErrorTypeRateLimit, Code: 429}
	}
	if f.missing[id] {
		return nil, errs.NotFound("account " + id)
	}
	var out []models.AccountSummary
	for _, d := range f.follows[id] {
		if len(out) >= max {
			break
		}
		out = append(out, models.AccountSummary{ID: d, Username: lower(d), DisplayName: "Account " + d})
	}
	return out, nil
}

func lower(id string) string {
	b := []byte(id)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return p.err
}

type harness struct {
	upstream  *fakeUpstream
	pacer     *countingPacer
	storage   *storage.Manager
	log       *logger.TestLogger
	scheduler *Scheduler
	persisted []Iteration
}

func newHarness(t *testing.T, dir string, up *fakeUpstream) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	log := logger.NewTestLogger()
	h := &harness{
		upstream: up,
		pacer:    &countingPacer{},
		storage:  storage.NewManager(dir),
		log:      log,
	}
	f := fetcher.New(up, fetcher.Options{
		MaxAttempts: 2,
		Base:        2,
		Offset:      10,
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}, log)
	h.scheduler = New(Dependencies{
		Fetcher: f,
		Ranker:  centrality.NewRanker(centrality.Eigenvector, centrality.DefaultConfig(), log),
		Pacer:   h.pacer,
		Storage: h.storage,
		Config:  cfg,
		Logger:  log,
		Now:     func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	h.scheduler.OnPersist = func(it Iteration) { h.persisted = append(h.persisted, it) }
	return h
}

func scenarioGraph() map[string][]string {
	return map[string][]string{
		"A": {"B"},
		"B": {"A", "C"},
		"C": {"A", "D"},
		"D": {},
	}
}

func trackedIDs(store *accounts.Store) []string {
	var ids []string
	for _, a := range store.Ranked() {
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return ids
}

func edgeSet(g *graph.FollowGraph) []graph.Edge {
	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

func TestRun_EndToEnd(t *testing.T) {
	h := newHarness(t, t.TempDir(), newFakeUpstream(scenarioGraph()))

	sum, err := h.scheduler.Run(context.Background(), "a", 3)
	require.NoError(t, err)

	store := h.scheduler.Accounts()
	g := h.scheduler.Graph()
	assert.Equal(t, []string{"A", "B", "C"}, trackedIDs(store))
	assert.True(t, g.HasNode("D"))
	assert.False(t, store.Has("D"))
	assert.Equal(t, []graph.Edge{
		{Source: "A", Target: "B"},
		{Source: "B", Target: "A"},
		{Source: "B", Target: "C"},
		{Source: "C", Target: "A"},
		{Source: "C", Target: "D"},
	}, edgeSet(g))

	assert.Equal(t, 3, sum.Iterations)
	assert.Equal(t, []string{"A", "B", "C"}, h.upstream.followedCalls)
	assert.Equal(t, 2, h.pacer.waits)

	require.Len(t, h.persisted, 3)
	assert.Equal(t, []string{"B"}, h.persisted[0].Promoted)
	assert.Equal(t, string(centrality.InDegree), h.persisted[0].Algorithm)
	assert.False(t, h.persisted[0].Converged)
	assert.Equal(t, []string{"C"}, h.persisted[1].Promoted)
	assert.Empty(t, h.persisted[2].Promoted)
	assert.Equal(t, string(centrality.Eigenvector), h.persisted[2].Algorithm)

	for _, id := range []string{"A", "B", "C"} {
		a, _ := store.Get(id)
		assert.True(t, a.Scraped(), id)
		require.NotNil(t, a.Centrality, id)
	}
	assert.True(t, h.log.HasMessage("Eigenvector centrality did not converge"))

	// Promoted nodes carry their full profile in the graph
	node, ok := g.Node("C")
	require.True(t, ok)
	require.NotNil(t, node.Profile)
	assert.Equal(t, "bio of C", node.Profile.Biography)
	bare, _ := g.Node("D")
	assert.Nil(t, bare.Profile)
}

func TestRun_PersistsReadableState(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, newFakeUpstream(scenarioGraph()))
	_, err := h.scheduler.Run(context.Background(), "a", 3)
	require.NoError(t, err)

	af, err := os.Open(filepath.Join(dir, storage.AccountsFile))
	require.NoError(t, err)
	defer af.Close()
	store, err := accounts.ReadCSV(af, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, trackedIDs(store))
	a, _ := store.Get("A")
	require.NotNil(t, a.LastScrapedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), *a.LastScrapedAt)

	gf, err := os.Open(filepath.Join(dir, storage.GraphFile))
	require.NoError(t, err)
	defer gf.Close()
	g, err := graph.ReadGML(gf, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, g.NodeCount())
	assert.Equal(t, 5, g.EdgeCount())
}

func TestRun_Preconditions(t *testing.T) {
	t.Run("neither state nor username", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		h := newHarness(t, dir, newFakeUpstream(scenarioGraph()))

		_, err := h.scheduler.Run(context.Background(), "", 3)
		assert.True(t, errs.IsValidation(err))
		assert.Empty(t, h.upstream.profileCalls)
		assert.NoDirExists(t, dir)
	})

	t.Run("both state and username", func(t *testing.T) {
		dir := t.TempDir()
		first := newHarness(t, dir, newFakeUpstream(scenarioGraph()))
		_, err := first.scheduler.Run(context.Background(), "a", 3)
		require.NoError(t, err)
		before, err := os.ReadFile(filepath.Join(dir, storage.AccountsFile))
		require.NoError(t, err)

		h := newHarness(t, dir, newFakeUpstream(scenarioGraph()))
		_, err = h.scheduler.Run(context.Background(), "a", 3)
		assert.True(t, errs.IsValidation(err))
		assert.Empty(t, h.upstream.profileCalls)
		assert.Empty(t, h.upstream.followedCalls)

		after, err := os.ReadFile(filepath.Join(dir, storage.AccountsFile))
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("retained rank below one", func(t *testing.T) {
		h := newHarness(t, t.TempDir(), newFakeUpstream(scenarioGraph()))
		_, err := h.scheduler.Run(context.Background(), "a", 0)
		assert.True(t, errs.IsValidation(err))
	})

	t.Run("only one store on disk", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, storage.GraphFile), []byte("graph [ directed 1 ]"), 0o644))
		h := newHarness(t, dir, newFakeUpstream(scenarioGraph()))
		_, err := h.scheduler.Run(context.Background(), "a", 3)
		assert.True(t, errs.IsValidation(err))
		assert.ErrorContains(t, err, filepath.Join(dir, storage.GraphFile))
		assert.Empty(t, h.upstream.profileCalls)
	})
}

func TestRun_ResumeAfterRetriesExceeded(t *testing.T) {
	dir := t.TempDir()
	up := newFakeUpstream(scenarioGraph())
	up.rateLimited["C"] = true
	h := newHarness(t, dir, up)

	sum, err := h.scheduler.Run(context.Background(), "a", 3)
	require.Error(t, err)
	assert.True(t, errs.IsRetriesExceeded(err))
	assert.Equal(t, 2, sum.Iterations)
	assert.Equal(t, []string{"A", "B", "C", "C"}, up.followedCalls)

	// Nothing of the failed iteration reached disk
	af, err := os.Open(filepath.Join(dir, storage.AccountsFile))
	require.NoError(t, err)
	store, err := accounts.ReadCSV(af, nil)
	af.Close()
	require.NoError(t, err)
	c, ok := store.Get("C")
	require.True(t, ok)
	assert.False(t, c.Scraped())

	resumed := newHarness(t, dir, newFakeUpstream(scenarioGraph()))
	sum, err = resumed.scheduler.Run(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Iterations)
	assert.Equal(t, []string{"C"}, resumed.upstream.followedCalls)
	assert.Equal(t, []string{"A", "B", "C"}, trackedIDs(resumed.scheduler.Accounts()))
	assert.Equal(t, 5, resumed.scheduler.Graph().EdgeCount())
}

func TestRun_NotFoundCandidateIsMarkedScraped(t *testing.T) {
	up := newFakeUpstream(map[string][]string{
		"A": {"B"},
		"B": {"A"},
	})
	h := newHarness(t, t.TempDir(), up)
	// B's profile exists but its following list is gone
	gone := &notFoundFollowing{fakeUpstream: up, ids: map[string]bool{"B": true}}
	h.scheduler.fetcher = fetcher.New(gone, fetcher.Options{MaxAttempts: 2}, h.log)

	sum, err := h.scheduler.Run(context.Background(), "a", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Iterations)
	b, ok := h.scheduler.Accounts().Get("B")
	require.True(t, ok)
	assert.True(t, b.Scraped())
	require.Len(t, h.persisted, 2)
	assert.True(t, h.persisted[1].NotFound)
	assert.True(t, h.log.HasMessage("Candidate no longer exists"))
}

// notFoundFollowing reports a missing following list for ids
type notFoundFollowing struct {
	*fakeUpstream
	ids map[string]bool
}

func (n *notFoundFollowing) FetchFollowedAccounts(ctx context.Context, id string, pageSize, max int) ([]models.AccountSummary, error) {
	if n.ids[id] {
		n.followedCalls = append(n.followedCalls, id)
		return nil, errs.NotFound("following of " + id)
	}
	return n.fakeUpstream.FetchFollowedAccounts(ctx, id, pageSize, max)
}

func TestRun_NotFoundDuringPromotionIsSkipped(t *testing.T) {
	up := newFakeUpstream(map[string][]string{
		"A": {"B", "C"},
		"B": {},
		"C": {},
	})
	up.missing["B"] = true
	h := newHarness(t, t.TempDir(), up)

	_, err := h.scheduler.Run(context.Background(), "a", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, trackedIDs(h.scheduler.Accounts()))
	assert.True(t, h.scheduler.Graph().HasNode("B"))
	assert.True(t, h.log.HasMessage("Promoted account no longer exists"))
	assert.Equal(t, 1, countOf(up.profileCalls, "B"))
}

func countOf(values []string, v string) int {
	n := 0
	for _, x := range values {
		if x == v {
			n++
		}
	}
	return n
}

func TestRun_PromotionBoundAndMonotonicScrapes(t *testing.T) {
	follows := map[string][]string{}
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}
	for i, id := range ids {
		for j := 1; j <= 5; j++ {
			follows[id] = append(follows[id], ids[(i+j)%len(ids)])
		}
	}
	h := newHarness(t, t.TempDir(), newFakeUpstream(follows))

	const retained = 2
	scraped := map[string]bool{}
	previous := 1
	h.scheduler.OnPersist = func(it Iteration) {
		store := h.scheduler.Accounts()
		assert.LessOrEqual(t, len(it.Promoted), retained)
		assert.LessOrEqual(t, store.Len()-previous, retained)
		previous = store.Len()

		for id := range scraped {
			a, ok := store.Get(id)
			require.True(t, ok)
			assert.True(t, a.Scraped(), "account %s lost its scrape timestamp", id)
		}
		scraped[it.Candidate.ID] = true
	}

	_, err := h.scheduler.Run(context.Background(), "a", retained)
	require.NoError(t, err)
	assert.NotEmpty(t, scraped)
}

func TestRun_CancelledDuringPause(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, dir, newFakeUpstream(scenarioGraph()))
	h.pacer.err = context.Canceled

	sum, err := h.scheduler.Run(context.Background(), "a", 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Iterations)

	hasState, err := h.storage.HasState()
	require.NoError(t, err)
	assert.True(t, hasState)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	h := newHarness(t, t.TempDir(), newFakeUpstream(scenarioGraph()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.scheduler.Run(ctx, "a", 3)
	assert.Error(t, err)
	assert.Empty(t, h.upstream.followedCalls)
}

func TestSelectionDeterminism(t *testing.T) {
	h := newHarness(t, t.TempDir(), newFakeUpstream(scenarioGraph()))
	_, err := h.scheduler.Run(context.Background(), "a", 3)
	require.NoError(t, err)

	store := h.scheduler.Accounts()
	first, ok1 := store.SelectCandidate(3)
	second, ok2 := store.SelectCandidate(3)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}
