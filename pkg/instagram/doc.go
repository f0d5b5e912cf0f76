// Package instagram fetches account profiles and following lists from
// Instagram's private API.
//
// Every HTTP failure is mapped to an iggraph/pkg/errors type: 404 becomes
// not_found, 429 (and the 400 "please wait a few minutes" reply) becomes
// rate_limit. Retrying is the caller's job; the client makes exactly one
// request per page.
//
//	client := instagram.NewClient(cfg.Instagram, log)
//	account, err := client.FetchAccountByUsername(ctx, "someone")
//	followed, err := client.FetchFollowedAccounts(ctx, account.ID, 100, 1000)
package instagram
