package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"iggraph/pkg/logger"
	"iggraph/pkg/models"
)

var columns = []string{
	"identifier",
	"username",
	"full_name",
	"centrality",
	"date_scraped",
	"profile_pic_url",
	"profile_pic_url_hd",
	"biography",
	"external_url",
	"follows_count",
	"followed_by_count",
	"media_count",
	"is_private",
	"is_verified",
	"is_business_account",
	"business_category_name",
}

// WriteCSV writes the store as a table, highest centrality first
func (s *Store) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, a := range s.Ranked() {
		if err := cw.Write(encodeRow(&a)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeRow(a *models.Account) []string {
	centrality := ""
	if a.Centrality != nil {
		centrality = strconv.FormatFloat(*a.Centrality, 'g', -1, 64)
	}
	scraped := ""
	if a.LastScrapedAt != nil {
		scraped = a.LastScrapedAt.UTC().Format(time.RFC3339Nano)
	}
	p := a.Profile
	return []string{
		a.ID,
		a.Username,
		a.DisplayName,
		centrality,
		scraped,
		p.ProfilePicURL,
		p.ProfilePicURLHD,
		p.Biography,
		p.ExternalURL,
		strconv.Itoa(p.FollowsCount),
		strconv.Itoa(p.FollowedByCount),
		strconv.Itoa(p.MediaCount),
		strconv.FormatBool(p.IsPrivate),
		strconv.FormatBool(p.IsVerified),
		strconv.FormatBool(p.IsBusinessAccount),
		p.BusinessCategoryName,
	}
}

// ReadCSV loads a table written by WriteCSV. Columns are matched by header
// name; unknown columns are ignored and missing optional ones stay empty.
func ReadCSV(r io.Reader, log logger.Logger) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("accounts table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	if _, ok := pos["identifier"]; !ok {
		return nil, fmt.Errorf("accounts table has no identifier column")
	}

	store := NewStore(log)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read accounts row %d: %w", line, err)
		}
		a, err := decodeRow(record, pos)
		if err != nil {
			return nil, fmt.Errorf("accounts row %d: %w", line, err)
		}
		if store.Has(a.ID) {
			return nil, fmt.Errorf("accounts row %d: duplicate identifier %s", line, a.ID)
		}
		store.Upsert(a)
	}
	return store, nil
}

func decodeRow(record []string, pos map[string]int) (models.Account, error) {
	field := func(name string) string {
		if i, ok := pos[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}
	var errs []error
	integer := func(name string) int {
		v := field(name)
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return n
	}
	boolean := func(name string) bool {
		v := field(name)
		if v == "" {
			return false
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return b
	}

	a := models.Account{
		AccountSummary: models.AccountSummary{
			ID:          field("identifier"),
			Username:    field("username"),
			DisplayName: field("full_name"),
		},
		Profile: models.Profile{
			ProfilePicURL:        field("profile_pic_url"),
			ProfilePicURLHD:      field("profile_pic_url_hd"),
			Biography:            field("biography"),
			ExternalURL:          field("external_url"),
			FollowsCount:         integer("follows_count"),
			FollowedByCount:      integer("followed_by_count"),
			MediaCount:           integer("media_count"),
			IsPrivate:            boolean("is_private"),
			IsVerified:           boolean("is_verified"),
			IsBusinessAccount:    boolean("is_business_account"),
			BusinessCategoryName: field("business_category_name"),
		},
	}
	if a.ID == "" {
		return a, fmt.Errorf("empty identifier")
	}
	if v := field("centrality"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return a, fmt.Errorf("centrality: %w", err)
		}
		a.Centrality = &c
	}
	if v := field("date_scraped"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return a, fmt.Errorf("date_scraped: %w", err)
		}
		a.LastScrapedAt = &t
	}
	if len(errs) > 0 {
		return a, errs[0]
	}
	return a, nil
}
