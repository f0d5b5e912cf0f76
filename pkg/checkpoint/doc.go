// Package checkpoint keeps concurrent crawls away from a data directory.
//
// A run creates <data-dir>/.lock exclusively before touching any state and
// removes it when it stops. While the run is active the file records its id,
// process, start time and progress, so an operator finding a stale lock can
// tell which run left it behind.
package checkpoint
