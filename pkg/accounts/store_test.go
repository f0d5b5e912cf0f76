package accounts

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iggraph/pkg/models"
)

func account(id string, centrality *float64, scraped bool) models.Account {
	a := models.Account{AccountSummary: models.AccountSummary{ID: id, Username: "user" + id, Centrality: centrality}}
	if scraped {
		t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		a.LastScrapedAt = &t
	}
	return a
}

func TestRankedOrdering(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(account("b", models.Float(0.5), false))
	s.Upsert(account("a", models.Float(0.5), false))
	s.Upsert(account("c", nil, false))
	s.Upsert(account("d", models.Float(0.9), false))

	var ids []string
	for _, a := range s.Ranked() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

func TestSelectCandidate(t *testing.T) {
	tests := []struct {
		name   string
		rows   []models.Account
		rank   int
		want   string
		wantOK bool
	}{
		{
			name:   "seed without centrality",
			rows:   []models.Account{account("seed", nil, false)},
			rank:   3,
			want:   "seed",
			wantOK: true,
		},
		{
			name: "skips scraped rows",
			rows: []models.Account{
				account("a", models.Float(0.9), true),
				account("b", models.Float(0.5), false),
			},
			rank:   3,
			want:   "b",
			wantOK: true,
		},
		{
			name: "respects retained rank",
			rows: []models.Account{
				account("a", models.Float(0.9), true),
				account("b", models.Float(0.8), true),
				account("c", models.Float(0.1), false),
			},
			rank:   2,
			wantOK: false,
		},
		{
			name: "ties break by id",
			rows: []models.Account{
				account("z", models.Float(0.3), false),
				account("m", models.Float(0.3), false),
			},
			rank:   1,
			want:   "m",
			wantOK: true,
		},
		{
			name:   "empty store",
			rank:   5,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(nil)
			for _, r := range tt.rows {
				s.Upsert(r)
			}
			got, ok := s.SelectCandidate(tt.rank)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.ID)
			}
		})
	}
}

func TestSelectCandidateIsDeterministic(t *testing.T) {
	s := NewStore(nil)
	for _, id := range []string{"q", "w", "e", "r", "t", "y"} {
		s.Upsert(account(id, models.Float(1), false))
	}
	first, _ := s.SelectCandidate(4)
	for i := 0; i < 20; i++ {
		got, _ := s.SelectCandidate(4)
		assert.Equal(t, first.ID, got.ID)
	}
	assert.Equal(t, "e", first.ID)
}

func TestScrapeStateIsMonotonic(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(account("a", nil, false))
	require.NoError(t, s.MarkScraped("a", time.Now()))

	// a later upsert without a timestamp must not reset it
	s.Upsert(account("a", models.Float(0.2), false))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.NotNil(t, got.LastScrapedAt)
	assert.Equal(t, 0.2, *got.Centrality)
}

func TestUpdateScores(t *testing.T) {
	s := NewStore(nil)
	s.Upsert(account("a", nil, false))
	s.Upsert(account("b", models.Float(0.7), true))

	n := s.UpdateScores(map[string]float64{"a": 0.4, "b": 0.1, "x": 0.9})
	assert.Equal(t, 2, n)

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	assert.Equal(t, 0.4, *a.Centrality)
	assert.Equal(t, 0.1, *b.Centrality)
	assert.False(t, s.Has("x"))
}

func TestMarkScrapedUnknown(t *testing.T) {
	s := NewStore(nil)
	assert.Error(t, s.MarkScraped("ghost", time.Now()))
	assert.Error(t, s.SetCentrality("ghost", 1))
}

func TestCSVRoundTrip(t *testing.T) {
	s := NewStore(nil)
	full := account("1", models.Float(0.123456789012345), true)
	full.DisplayName = "Ann, \"the\" Example"
	full.Profile = models.Profile{
		Biography:       "multi\nline",
		FollowsCount:    10,
		FollowedByCount: 20,
		IsVerified:      true,
	}
	s.Upsert(full)
	s.Upsert(account("2", nil, false))

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf))

	loaded, err := ReadCSV(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())

	got, _ := loaded.Get("1")
	assert.Equal(t, full.DisplayName, got.DisplayName)
	assert.Equal(t, full.Profile, got.Profile)
	assert.Equal(t, *full.Centrality, *got.Centrality)
	assert.True(t, full.LastScrapedAt.Equal(*got.LastScrapedAt))

	bare, _ := loaded.Get("2")
	assert.Nil(t, bare.Centrality)
	assert.Nil(t, bare.LastScrapedAt)
}

func TestReadCSVToleratesColumnOrder(t *testing.T) {
	doc := "username,identifier,extra,is_private,centrality\nann,1,x,True,0.5\n"
	s, err := ReadCSV(strings.NewReader(doc), nil)
	require.NoError(t, err)

	a, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "ann", a.Username)
	assert.True(t, a.IsPrivate)
	assert.Equal(t, 0.5, *a.Centrality)
}

func TestReadCSVErrors(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"no identifier": "username\nann\n",
		"bad float":     "identifier,centrality\n1,high\n",
		"bad time":      "identifier,date_scraped\n1,yesterday\n",
		"duplicate":     "identifier\n1\n1\n",
		"bad count":     "identifier,media_count\n1,many\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(doc), nil)
			assert.Error(t, err)
		})
	}
}
