// Package storage defines the on-disk layout of a crawl data directory and
// provides atomic file replacement for the persisted stores.
//
// A data directory holds:
//
//	accounts.csv   tracked accounts, centrality and scrape timestamps
//	graph.gml      the follow graph
//	crawl.log      the run log
//	.lock          run marker, see package checkpoint
package storage
