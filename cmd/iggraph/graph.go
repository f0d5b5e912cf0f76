package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"iggraph/pkg/centrality"
	"iggraph/pkg/config"
	"iggraph/pkg/graph"
	"iggraph/pkg/logger"
	"iggraph/pkg/storage"
	"iggraph/pkg/ui"
)

var (
	graphPath      string
	outputPath     string
	pruneRetained  int
	pruneMeasure   string
	maxFollowers   int
	omitAttributes bool
)

// graphCmd groups the offline tools working on a saved graph.gml
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Work with a saved follows graph",
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Keep only the most central accounts of a graph",
	Long: `Write a reduced copy of a graph holding its most central accounts.

Accounts with at least --max-followers followers are dropped first, then the
top --accounts-retained accounts by the chosen centrality are kept. Nodes are
relabelled "<full name> (<username>)" for readability in graph tools.`,
	Example: `  iggraph graph prune --graph ./data/graph.gml --accounts-retained 200 --max-followers 100000`,
	RunE:    runPrune,
}

var exportCmd = &cobra.Command{
	Use:     "export-json",
	Short:   "Convert a graph to vis.js network JSON",
	Example: `  iggraph graph export-json --graph ./data/graph.gml --output graph.json`,
	RunE:    runExport,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(pruneCmd)
	graphCmd.AddCommand(exportCmd)

	graphCmd.PersistentFlags().StringVarP(&graphPath, "graph", "g", "", "GML graph to read")
	graphCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "file to write (default derived from --graph)")
	_ = graphCmd.MarkPersistentFlagRequired("graph")

	pruneCmd.Flags().IntVarP(&pruneRetained, "accounts-retained", "n", 100, "number of accounts to keep; negative keeps all")
	pruneCmd.Flags().StringVar(&pruneMeasure, "importance-measure", string(centrality.Eigenvector), "centrality measure (eigenvector, in-degree)")
	pruneCmd.Flags().IntVar(&maxFollowers, "max-followers", -1, "drop accounts with at least this many followers; negative disables")
	pruneCmd.Flags().BoolVar(&omitAttributes, "omit-attributes", false, "strip node attributes from the output")
}

func toolLogger() (logger.Logger, error) {
	cfg := config.DefaultConfig().Logging
	if logLevel != "" {
		cfg.Level = logLevel
	}
	return logger.New(&cfg)
}

func loadGraph(log logger.Logger) (*graph.FollowGraph, error) {
	f, err := os.Open(graphPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return graph.ReadGML(f, log)
}

func runPrune(cmd *cobra.Command, args []string) error {
	algorithm, err := centrality.ParseAlgorithm(pruneMeasure)
	if err != nil {
		return err
	}
	log, err := toolLogger()
	if err != nil {
		return err
	}
	g, err := loadGraph(log)
	if err != nil {
		return err
	}

	opts := graph.PruneOptions{
		Retained:       pruneRetained,
		MaxFollowers:   maxFollowers,
		OmitAttributes: omitAttributes,
	}
	ranker := centrality.NewRanker(algorithm, centrality.DefaultConfig(), log)
	pruned, err := graph.Prune(g, opts, func(work *graph.FollowGraph) (map[string]float64, error) {
		res, err := ranker.Rank(work)
		if err != nil {
			return nil, err
		}
		return res.Scores, nil
	})
	if err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		out = filepath.Join(filepath.Dir(graphPath), graph.PrunedFileName(graphPath, opts))
	}
	if err := storage.WriteAtomic(out, pruned.WriteGML); err != nil {
		return err
	}

	ui.PrintSuccess("Pruned graph written: " + out)
	ui.PrintInfo("Nodes", fmt.Sprintf("%d of %d", pruned.NodeCount(), g.NodeCount()))
	ui.PrintInfo("Edges", fmt.Sprintf("%d of %d", pruned.EdgeCount(), g.EdgeCount()))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	log, err := toolLogger()
	if err != nil {
		return err
	}
	g, err := loadGraph(log)
	if err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(graphPath, filepath.Ext(graphPath)) + ".json"
	}
	if err := storage.WriteAtomic(out, g.WriteVisJSON); err != nil {
		return err
	}

	ui.PrintSuccess("Graph exported: " + out)
	ui.PrintInfo("Nodes", strconv.Itoa(g.NodeCount()))
	ui.PrintInfo("Edges", strconv.Itoa(g.EdgeCount()))
	return nil
}
