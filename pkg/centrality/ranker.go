package centrality

import (
	"errors"
	"fmt"

	"iggraph/pkg/logger"
)

// Ranker computes one ranking round per call. With eigenvector as the
// primary measure, a round that fails to converge is recomputed entirely
// with in-degree centrality.
type Ranker struct {
	primary Algorithm
	cfg     Config
	log     logger.Logger
	// OnRound is invoked after every completed round
	OnRound func(*Result)
}

// NewRanker creates a ranker using primary as its first choice
func NewRanker(primary Algorithm, cfg Config, log logger.Logger) *Ranker {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Ranker{primary: primary, cfg: cfg, log: log}
}

// Rank scores every node of g
func (r *Ranker) Rank(g Graph) (*Result, error) {
	var res *Result
	switch r.primary {
	case InDegree:
		res = InDegreeCentrality(g)
	case Eigenvector:
		var err error
		res, err = EigenvectorCentrality(g, r.cfg)
		if errors.Is(err, ErrNotConverged) {
			r.log.WithError(err).WarnWithFields("Eigenvector centrality did not converge, using in-degree centrality for this round", map[string]interface{}{
				"max_iterations": r.cfg.MaxIterations,
			})
			res = InDegreeCentrality(g)
			res.Converged = false
		} else if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported centrality algorithm %q", r.primary)
	}

	r.log.DebugWithFields("Ranking round complete", map[string]interface{}{
		"algorithm":  string(res.Algorithm),
		"iterations": res.Iterations,
		"nodes":      len(res.Scores),
	})
	if r.OnRound != nil {
		r.OnRound(res)
	}
	return res, nil
}
