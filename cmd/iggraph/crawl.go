package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"iggraph/pkg/auth"
	"iggraph/pkg/centrality"
	"iggraph/pkg/checkpoint"
	"iggraph/pkg/config"
	"iggraph/pkg/crawler"
	errs "iggraph/pkg/errors"
	"iggraph/pkg/fetcher"
	"iggraph/pkg/instagram"
	"iggraph/pkg/logger"
	"iggraph/pkg/metrics"
	"iggraph/pkg/pacer"
	"iggraph/pkg/storage"
	"iggraph/pkg/ui"
	"iggraph/pkg/ui/tui"
)

var (
	seedUsername      string
	retainedRank      int
	metricsAddr       string
	accountName       string
	importanceMeasure string
	requestsPerMinute int
	forceUnlock       bool
	useTUI            bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl <data-dir>",
	Short: "Start or resume a crawl in a data directory",
	Long: `Start or resume a centrality-prioritised crawl.

Give a username to start a new crawl in an empty data directory, or give a
data directory holding accounts.csv and graph.gml to resume one. Giving both
or neither is an error and nothing is written.

Each iteration expands the highest ranked account that has not been expanded,
re-ranks the whole graph and tracks the accounts that entered the top
--poorest-centrality-rank. The crawl ends when every tracked account within
that rank has been expanded.`,
	Example: `  # Start a new crawl
  iggraph crawl ./data -u someaccount -r 50

  # Resume it later
  iggraph crawl ./data -r 50

  # Expose Prometheus metrics and watch the dashboard
  iggraph crawl ./data -r 50 --metrics-addr :9090 --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVarP(&seedUsername, "username", "u", "", "seed account username (new crawls only)")
	crawlCmd.Flags().IntVarP(&retainedRank, "poorest-centrality-rank", "r", 100, "number of top ranked accounts to track and expand")
	crawlCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	crawlCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored credential")
	crawlCmd.Flags().StringVar(&importanceMeasure, "importance-measure", string(centrality.Eigenvector), "centrality measure (eigenvector, in-degree)")
	crawlCmd.Flags().IntVar(&requestsPerMinute, "rate-limit", 0, "maximum upstream requests per minute (0 keeps the configured value)")
	crawlCmd.Flags().BoolVar(&forceUnlock, "force-unlock", false, "replace a lock left behind by a crashed run")
	crawlCmd.Flags().BoolVar(&useTUI, "tui", false, "show a live dashboard instead of console logs")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	store := storage.NewManager(args[0])

	// Nothing may be written before the arguments are known to be consistent
	resume, err := crawler.CheckPreconditions(store, seedUsername, retainedRank)
	if err != nil {
		return err
	}
	algorithm, err := centrality.ParseAlgorithm(importanceMeasure)
	if err != nil {
		return errs.Validation("%v", err)
	}

	flags := commonFlags()
	if metricsAddr != "" {
		flags["metrics-addr"] = metricsAddr
	}
	if requestsPerMinute > 0 {
		flags["requests-per-minute"] = requestsPerMinute
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeValidation, err, "loading configuration")
	}
	if err := applyCredentials(&cfg.Instagram); err != nil {
		return err
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = store.LogPath()
	}

	if useTUI && !term.IsTerminal(int(os.Stdout.Fd())) {
		ui.PrintWarning("Standard output is not a terminal, --tui ignored")
		useTUI = false
	}
	var dash *tui.TUI
	var log logger.Logger
	if useTUI {
		dash = tui.New(store.Dir())
		log, err = logger.NewWithWriter(&cfg.Logging, dash.LogWriter())
	} else {
		log, err = logger.New(&cfg.Logging)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if c, ok := log.(logger.Closer); ok {
		defer c.Close()
	}

	lock := checkpoint.NewManager(store.Dir(), log)
	run, err := lock.Acquire(seedUsername, retainedRank, forceUnlock)
	if err != nil {
		if errors.Is(err, checkpoint.ErrLocked) {
			return fmt.Errorf("%w (use --force-unlock if that run is no longer alive)", err)
		}
		return err
	}
	log = log.WithField("run_id", run.RunID)
	log.InfoWithFields("iggraph starting", map[string]interface{}{
		"version":       version,
		"data_dir":      store.Dir(),
		"resume":        resume,
		"retained_rank": retainedRank,
		"algorithm":     string(algorithm),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	var rec metrics.Recorder = m
	if cfg.Metrics.ListenAddress != "" {
		if _, err := m.Serve(ctx, cfg.Metrics.ListenAddress, log); err != nil {
			lock.Release(checkpoint.StatusFailed)
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	if dash != nil {
		rec = dash.Recorder(m)
	}

	client := instagram.NewClient(cfg.Instagram, log)
	opts := fetcher.OptionsFromConfig(cfg)
	opts.Recorder = rec
	sched := crawler.New(crawler.Dependencies{
		Fetcher:  fetcher.New(client, opts, log),
		Ranker:   centrality.NewRanker(algorithm, centrality.DefaultConfig(), log.WithField("component", "centrality")),
		Pacer:    pacer.New(cfg, pacer.Options{Logger: log.WithField("component", "pacer"), Recorder: rec}),
		Storage:  store,
		Config:   cfg,
		Logger:   log,
		Recorder: rec,
	})
	sched.OnPersist = func(it crawler.Iteration) {
		if err := lock.Record(it.Number, it.Candidate.Username); err != nil {
			log.WithError(err).Warn("Failed to update run record")
		}
		if dash != nil {
			dash.Iteration(tui.IterationMsg{
				Number:    it.Number,
				Username:  it.Candidate.Username,
				Followed:  it.Followed,
				NotFound:  it.NotFound,
				Promoted:  len(it.Promoted),
				Algorithm: it.Algorithm,
				Converged: it.Converged,
			})
		}
	}

	var summary *crawler.Summary
	if dash != nil {
		summary, err = crawlWithDashboard(ctx, stop, dash, sched)
	} else {
		summary, err = sched.Run(ctx, seedUsername, retainedRank)
	}

	status := checkpoint.StatusFinished
	switch {
	case err != nil && ctx.Err() != nil:
		status = checkpoint.StatusInterrupted
	case err != nil:
		status = checkpoint.StatusFailed
	}
	if relErr := lock.Release(status); relErr != nil {
		log.WithError(relErr).Warn("Failed to release lock")
	}

	if summary != nil {
		printSummary(status, store, summary)
	}
	if status == checkpoint.StatusInterrupted {
		ui.PrintWarning("Crawl interrupted; run the same command again to resume")
		return nil
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	return nil
}

// crawlWithDashboard runs the crawl in the background while the dashboard
// owns the terminal. Quitting the dashboard cancels the crawl.
func crawlWithDashboard(ctx context.Context, cancel context.CancelFunc, dash *tui.TUI, sched *crawler.Scheduler) (*crawler.Summary, error) {
	type result struct {
		summary *crawler.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := sched.Run(ctx, seedUsername, retainedRank)
		text := ""
		if summary != nil {
			text = fmt.Sprintf("%d iterations, %d accounts", summary.Iterations, summary.Accounts)
		}
		dash.Done(err, text)
		done <- result{summary, err}
	}()

	uiErr := dash.Run()
	cancel()
	res := <-done
	if uiErr != nil && res.err == nil {
		return res.summary, fmt.Errorf("dashboard: %w", uiErr)
	}
	return res.summary, res.err
}

// applyCredentials fills the session cookies from the credential store
// unless the configuration already carries them
func applyCredentials(cfg *config.InstagramConfig) error {
	if accountName == "" && cfg.SessionID != "" && cfg.CSRFToken != "" {
		return nil
	}
	manager, err := auth.NewManager("")
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err, "opening credential store")
	}

	var creds *auth.Credentials
	if accountName != "" {
		creds, err = manager.Retrieve(accountName)
		cfg.SessionID, cfg.CSRFToken = "", ""
	} else {
		creds, err = manager.RetrieveDefault()
	}
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, err,
			"no Instagram session found; run 'iggraph auth login' or set %s and %s",
			auth.EnvSessionID, auth.EnvCSRFToken)
	}
	creds.Apply(cfg)
	return nil
}

func printSummary(status string, store *storage.Manager, s *crawler.Summary) {
	ui.PrintBox("Crawl "+status, [][2]string{
		{"Data directory", store.Dir()},
		{"Iterations", strconv.Itoa(s.Iterations)},
		{"Tracked accounts", strconv.Itoa(s.Accounts)},
		{"Graph", fmt.Sprintf("%d nodes, %d edges", s.Nodes, s.Edges)},
	})
}
