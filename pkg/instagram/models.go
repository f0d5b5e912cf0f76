package instagram

import (
	"bytes"
	"encoding/json"

	"iggraph/pkg/models"
)

// flexID accepts ids encoded either as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(b)
	return nil
}

type count struct {
	Count int `json:"count"`
}

// webProfileResponse is returned by the profile-by-username endpoint
type webProfileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Status          string `json:"status"`
	Data            struct {
		User *webUser `json:"user"`
	} `json:"data"`
}

type webUser struct {
	ID                   flexID `json:"id"`
	Username             string `json:"username"`
	FullName             string `json:"full_name"`
	Biography            string `json:"biography"`
	ExternalURL          string `json:"external_url"`
	ProfilePicURL        string `json:"profile_pic_url"`
	ProfilePicURLHD      string `json:"profile_pic_url_hd"`
	EdgeFollowedBy       count  `json:"edge_followed_by"`
	EdgeFollow           count  `json:"edge_follow"`
	EdgeTimelineMedia    count  `json:"edge_owner_to_timeline_media"`
	IsPrivate            bool   `json:"is_private"`
	IsVerified           bool   `json:"is_verified"`
	IsBusinessAccount    bool   `json:"is_business_account"`
	BusinessCategoryName string `json:"business_category_name"`
}

// userInfoResponse is returned by the profile-by-id endpoint
type userInfoResponse struct {
	Status string    `json:"status"`
	User   *infoUser `json:"user"`
}

type infoUser struct {
	PK               flexID `json:"pk"`
	Username         string `json:"username"`
	FullName         string `json:"full_name"`
	Biography        string `json:"biography"`
	ExternalURL      string `json:"external_url"`
	ProfilePicURL    string `json:"profile_pic_url"`
	HDProfilePicInfo struct {
		URL string `json:"url"`
	} `json:"hd_profile_pic_url_info"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	MediaCount     int    `json:"media_count"`
	IsPrivate      bool   `json:"is_private"`
	IsVerified     bool   `json:"is_verified"`
	IsBusiness     bool   `json:"is_business"`
	Category       string `json:"category"`
}

// followingResponse is one page of a following list
type followingResponse struct {
	Status    string        `json:"status"`
	Users     []summaryUser `json:"users"`
	NextMaxID flexID        `json:"next_max_id"`
}

type summaryUser struct {
	PK       flexID `json:"pk"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

func (u *webUser) toAccount() *models.Account {
	return &models.Account{
		AccountSummary: models.AccountSummary{
			ID:          string(u.ID),
			Username:    u.Username,
			DisplayName: u.FullName,
		},
		Profile: models.Profile{
			ProfilePicURL:        u.ProfilePicURL,
			ProfilePicURLHD:      u.ProfilePicURLHD,
			Biography:            u.Biography,
			ExternalURL:          u.ExternalURL,
			FollowsCount:         u.EdgeFollow.Count,
			FollowedByCount:      u.EdgeFollowedBy.Count,
			MediaCount:           u.EdgeTimelineMedia.Count,
			IsPrivate:            u.IsPrivate,
			IsVerified:           u.IsVerified,
			IsBusinessAccount:    u.IsBusinessAccount,
			BusinessCategoryName: u.BusinessCategoryName,
		},
	}
}

func (u *infoUser) toAccount() *models.Account {
	return &models.Account{
		AccountSummary: models.AccountSummary{
			ID:          string(u.PK),
			Username:    u.Username,
			DisplayName: u.FullName,
		},
		Profile: models.Profile{
			ProfilePicURL:        u.ProfilePicURL,
			ProfilePicURLHD:      u.HDProfilePicInfo.URL,
			Biography:            u.Biography,
			ExternalURL:          u.ExternalURL,
			FollowsCount:         u.FollowingCount,
			FollowedByCount:      u.FollowerCount,
			MediaCount:           u.MediaCount,
			IsPrivate:            u.IsPrivate,
			IsVerified:           u.IsVerified,
			IsBusinessAccount:    u.IsBusiness,
			BusinessCategoryName: u.Category,
		},
	}
}

func (u summaryUser) toSummary() models.AccountSummary {
	return models.AccountSummary{
		ID:          string(u.PK),
		Username:    u.Username,
		DisplayName: u.FullName,
	}
}

