package instagram

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the private API host
	DefaultBaseURL = "https://i.instagram.com"

	ProfileEndpoint   = "/api/v1/users/web_profile_info/"
	UserInfoEndpoint  = "/api/v1/users/%s/info/"
	FollowingEndpoint = "/api/v1/friendships/%s/following/"

	// MaxPageSize is the largest following page the API serves
	MaxPageSize = 200
)

// ProfileURL builds the profile-by-username URL
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)
	return base + ProfileEndpoint + "?" + params.Encode()
}

// UserInfoURL builds the profile-by-id URL
func UserInfoURL(base, id string) string {
	return base + fmt.Sprintf(UserInfoEndpoint, url.PathEscape(id))
}

// FollowingURL builds the URL for one page of id's following list
func FollowingURL(base, id string, pageSize int, maxID string) string {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	params := url.Values{}
	params.Set("count", strconv.Itoa(pageSize))
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	return base + fmt.Sprintf(FollowingEndpoint, url.PathEscape(id)) + "?" + params.Encode()
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if username[0] == '@' {
		username = username[1:]
	}
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}
	return username
}
