package models

import "time"

// AccountSummary is the minimal identity of an account, as observed when it
// appears in someone's following list.
type AccountSummary struct {
	ID          string
	Username    string
	DisplayName string
	// Centrality is nil until the account has been ranked
	Centrality *float64
}

// Profile holds the descriptive attributes of a fully fetched account.
// The crawler stores and persists them but never inspects them.
type Profile struct {
	ProfilePicURL        string
	ProfilePicURLHD      string
	Biography            string
	ExternalURL          string
	FollowsCount         int
	FollowedByCount      int
	MediaCount           int
	IsPrivate            bool
	IsVerified           bool
	IsBusinessAccount    bool
	BusinessCategoryName string
}

// Account is a tracked account with its full profile
type Account struct {
	AccountSummary
	Profile
	// LastScrapedAt is nil while the account's following list has not been fetched
	LastScrapedAt *time.Time
}

// Summary returns the identity part of the account
func (a *Account) Summary() AccountSummary {
	return a.AccountSummary
}

// Scraped reports whether the account's outbound follows were fetched
func (a *Account) Scraped() bool {
	return a.LastScrapedAt != nil
}

// Float returns a pointer to v, for optional centrality values
func Float(v float64) *float64 {
	return &v
}
