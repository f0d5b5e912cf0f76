package crawler

import (
	"context"

	"iggraph/pkg/centrality"
	"iggraph/pkg/models"
)

// Fetcher defines the upstream operations the scheduler needs, with retry
// already applied
type Fetcher interface {
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	FollowedAccounts(ctx context.Context, id string, pageSize, max int) ([]models.AccountSummary, error)
}

// Ranker scores every node of a graph in one round
type Ranker interface {
	Rank(g centrality.Graph) (*centrality.Result, error)
}

// Pacer blocks between expansions
type Pacer interface {
	Wait(ctx context.Context) error
}
