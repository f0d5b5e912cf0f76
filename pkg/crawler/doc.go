// Package crawler schedules a centrality-prioritised crawl of the follow
// graph.
//
// Each iteration picks the highest ranked account that has not been expanded
// within the top retained-rank accounts, fetches the accounts it follows,
// merges them into the graph, re-ranks every node, promotes the top ranked
// accounts that are not tracked yet, persists both stores and pauses. The run
// ends when no candidate remains.
//
// A Scheduler is single-use per process and owns its stores exclusively;
// callers must keep other runs away from the data directory.
package crawler
