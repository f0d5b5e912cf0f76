// Package ratelimit puts a hard ceiling on upstream request rate,
// independent of the crawl's randomized pacing. It is backed by
// golang.org/x/time/rate.
package ratelimit
