package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"iggraph/pkg/config"
	errs "iggraph/pkg/errors"
	"iggraph/pkg/logger"
	"iggraph/pkg/models"
	"iggraph/pkg/ratelimit"
)

// DefaultUserAgent mimics the Android app, which the private API expects
const DefaultUserAgent = "Instagram 219.0.0.12.117 Android (31/12; 420dpi; 1080x2400; samsung; SM-G991B; o1s; exynos2100; en_US; 346138365)"

// appID identifies the web client to the API
const appID = "936619743392459"

// Client fetches profiles and following lists from Instagram
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a client from cfg. Requests are paced by
// cfg.RequestsPerMinute.
func NewClient(cfg config.InstagramConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	headers := map[string]string{
		"User-Agent":      ua,
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"X-IG-App-ID":     appID,
	}
	if cfg.CSRFToken != "" {
		headers["X-CSRFToken"] = cfg.CSRFToken
	}
	if cookie := sessionCookie(cfg); cookie != "" {
		headers["Cookie"] = cookie
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
		baseURL:    baseURL,
		limiter:    ratelimit.PerMinute(cfg.RequestsPerMinute),
		logger:     log.WithField("component", "instagram"),
	}
}

func sessionCookie(cfg config.InstagramConfig) string {
	var parts []string
	if cfg.SessionID != "" {
		parts = append(parts, "sessionid="+cfg.SessionID)
	}
	if cfg.CSRFToken != "" {
		parts = append(parts, "csrftoken="+cfg.CSRFToken)
	}
	return strings.Join(parts, "; ")
}

// FetchAccountByUsername resolves a username to a full account record
func (c *Client) FetchAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	username = SanitizeUsername(username)
	if !IsValidUsername(username) {
		return nil, errs.Validation("invalid username %q", username)
	}

	var resp webProfileResponse
	if err := c.getJSON(ctx, ProfileURL(c.baseURL, username), &resp); err != nil {
		return nil, err
	}
	if resp.RequiresToLogin {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: "Instagram requires authentication to view this profile",
			Code:    http.StatusUnauthorized,
		}
	}
	if resp.Data.User == nil || resp.Data.User.ID == "" {
		return nil, errs.NotFound("account " + username)
	}

	c.logger.DebugWithFields("Fetched profile", map[string]interface{}{
		"username": username,
		"id":       string(resp.Data.User.ID),
	})
	return resp.Data.User.toAccount(), nil
}

// FetchAccountByID fetches the full account record for id
func (c *Client) FetchAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var resp userInfoResponse
	if err := c.getJSON(ctx, UserInfoURL(c.baseURL, id), &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.PK == "" {
		return nil, errs.NotFound("account " + id)
	}

	c.logger.DebugWithFields("Fetched profile", map[string]interface{}{
		"id":       id,
		"username": resp.User.Username,
	})
	return resp.User.toAccount(), nil
}

// FetchFollowedAccounts returns at most max distinct accounts that id
// follows, paging through the following list pageSize entries at a time.
// Paging stops early when the cursor repeats or a page adds no new account.
func (c *Client) FetchFollowedAccounts(ctx context.Context, id string, pageSize, max int) ([]models.AccountSummary, error) {
	var (
		out   []models.AccountSummary
		seen  = make(map[string]bool)
		maxID string
		pages int
	)
	for max <= 0 || len(out) < max {
		var resp followingResponse
		if err := c.getJSON(ctx, FollowingURL(c.baseURL, id, pageSize, maxID), &resp); err != nil {
			return nil, err
		}
		pages++
		added := 0
		for _, u := range resp.Users {
			if max > 0 && len(out) >= max {
				break
			}
			if u.PK == "" || seen[string(u.PK)] {
				continue
			}
			seen[string(u.PK)] = true
			out = append(out, u.toSummary())
			added++
		}
		next := string(resp.NextMaxID)
		if next == "" || added == 0 {
			break
		}
		if next == maxID {
			c.logger.WarnWithFields("Following list cursor did not advance", map[string]interface{}{
				"id":     id,
				"cursor": next,
			})
			break
		}
		maxID = next
	}

	c.logger.DebugWithFields("Fetched followed accounts", map[string]interface{}{
		"id":    id,
		"count": len(out),
		"pages": pages,
	})
	return out, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.ErrorTypeNetwork, err, "waiting for request slot")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.ErrorWithFields("Failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "failed to parse JSON",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request to %s failed", req.URL.Path)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// checkResponseStatus maps non-2xx responses to typed errors. The API
// also signals throttling with a 400 asking the client to wait.
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": code,
		"url":    resp.Request.URL.String(),
	}
	if code == http.StatusBadRequest && isThrottleMessage(body) {
		c.logger.WarnWithFields("Rate limit exceeded", fields)
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "please wait a few minutes", Code: code}
	}

	err := errs.FromStatusCode(code, fmt.Sprintf("unexpected status code: %d", code))
	switch err.Type {
	case errs.ErrorTypeNotFound:
		err.Message = "resource not found"
		c.logger.DebugWithFields("Resource not found", fields)
	case errs.ErrorTypeRateLimit:
		err.Message = "rate limit exceeded"
		c.logger.WarnWithFields("Rate limit exceeded", fields)
	case errs.ErrorTypeAuth:
		err.Message = "authentication required"
		c.logger.WarnWithFields("Authentication error", fields)
	default:
		fields["body_preview"] = preview(body)
		c.logger.ErrorWithFields("Unexpected API error", fields)
	}
	return err
}

func isThrottleMessage(body []byte) bool {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return false
	}
	return strings.Contains(strings.ToLower(payload.Message), "wait a few minutes")
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
