// Package history persists each user's searches and generated images and
// aggregates the dashboard and admin statistics over them.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/domain/normalize"
	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
)

// RecentLimit is the number of entries the dashboard shows per kind.
const RecentLimit = 5

// ErrNotFound is returned when an entry does not exist or belongs to another user.
var ErrNotFound = errors.New("history entry not found")

// SearchEntry is one stored search.
type SearchEntry struct {
	ID         string                   `json:"id"`
	UserID     string                   `json:"-"`
	Query      string                   `json:"query"`
	Results    []normalize.SearchRecord `json:"results"`
	MaxResults int                      `json:"max_results"`
	Saved      bool                     `json:"saved"`
	Timestamp  time.Time                `json:"timestamp"`
}

// ImageParameters are the generation knobs stored with an image.
type ImageParameters struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Steps  int `json:"steps"`
}

// ImageEntry is one stored image generation.
type ImageEntry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Prompt     string          `json:"prompt"`
	ImageURL   *string         `json:"image_url"`
	ImageData  *string         `json:"image_data"`
	Parameters ImageParameters `json:"parameters"`
	Saved      bool            `json:"saved"`
	Timestamp  time.Time       `json:"timestamp"`
}

// UserStats feeds the dashboard.
type UserStats struct {
	TotalSearches int        `json:"total_searches"`
	TotalImages   int        `json:"total_images"`
	SearchesToday int        `json:"searches_today"`
	ImagesToday   int        `json:"images_today"`
	LastActivity  *time.Time `json:"last_activity"`
}

// SystemStats feeds the admin overview.
type SystemStats struct {
	TotalUsers    int `json:"total_users"`
	TotalSearches int `json:"total_searches"`
	TotalImages   int `json:"total_images"`
	UsersToday    int `json:"users_today"`
	SearchesToday int `json:"searches_today"`
	ImagesToday   int `json:"images_today"`
}

// Service reads and writes the history tables.
type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// SaveSearch stores e and returns it with ID and Timestamp filled in.
func (s *Service) SaveSearch(ctx context.Context, e SearchEntry) (*SearchEntry, error) {
	if e.Results == nil {
		e.Results = []normalize.SearchRecord{}
	}
	results, err := json.Marshal(e.Results)
	if err != nil {
		return nil, fmt.Errorf("encode search results: %w", err)
	}

	e.ID = uuid.Must(uuid.NewV7()).String()
	e.Saved = true
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_history (id, user_id, query, results, max_results, saved, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`, e.ID, e.UserID, e.Query, string(results), e.MaxResults, sqlite.FormatTime(e.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("save search: %w", err)
	}
	return &e, nil
}

// SaveImage stores e and returns it with ID and Timestamp filled in.
func (s *Service) SaveImage(ctx context.Context, e ImageEntry) (*ImageEntry, error) {
	params, err := json.Marshal(e.Parameters)
	if err != nil {
		return nil, fmt.Errorf("encode image parameters: %w", err)
	}

	e.ID = uuid.Must(uuid.NewV7()).String()
	e.Saved = true
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO image_history (id, user_id, prompt, image_url, image_data, parameters, saved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
	`, e.ID, e.UserID, e.Prompt, e.ImageURL, e.ImageData, string(params), sqlite.FormatTime(e.Timestamp))
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}
	return &e, nil
}

// DeleteSearch removes a search owned by userID.
func (s *Service) DeleteSearch(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, "search_history", userID, id)
}

// DeleteImage removes an image owned by userID.
func (s *Service) DeleteImage(ctx context.Context, userID, id string) error {
	return s.deleteOwned(ctx, "image_history", userID, id)
}

func (s *Service) deleteOwned(ctx context.Context, table, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentSearches returns up to limit searches, newest first.
func (s *Service) RecentSearches(ctx context.Context, userID string, limit int) ([]*SearchEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, query, results, max_results, saved, created_at
		FROM search_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	defer rows.Close()

	out := make([]*SearchEntry, 0, limit)
	for rows.Next() {
		var (
			e         SearchEntry
			results   string
			saved     int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Query, &results, &e.MaxResults, &saved, &createdAt); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &e.Results); err != nil {
			return nil, fmt.Errorf("decode search %s results: %w", e.ID, err)
		}
		e.Saved = saved != 0
		if e.Timestamp, err = sqlite.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse search %s time: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// RecentImages returns up to limit images, newest first.
func (s *Service) RecentImages(ctx context.Context, userID string, limit int) ([]*ImageEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, prompt, image_url, image_data, parameters, saved, created_at
		FROM image_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	out := make([]*ImageEntry, 0, limit)
	for rows.Next() {
		var (
			e         ImageEntry
			imageURL  sql.NullString
			imageData sql.NullString
			params    string
			saved     int
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Prompt, &imageURL, &imageData, &params, &saved, &createdAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		e.ImageURL = nullableString(imageURL)
		e.ImageData = nullableString(imageData)
		if err := json.Unmarshal([]byte(params), &e.Parameters); err != nil {
			return nil, fmt.Errorf("decode image %s parameters: %w", e.ID, err)
		}
		e.Saved = saved != 0
		if e.Timestamp, err = sqlite.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse image %s time: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// UserStats aggregates the dashboard counters for userID. "Today" is the UTC calendar day containing today.
func (s *Service) UserStats(ctx context.Context, userID string, today time.Time) (*UserStats, error) {
	from, to := dayBounds(today)
	var (
		st   UserStats
		last sql.NullString
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.count(gctx, &st.TotalSearches, "SELECT COUNT(*) FROM search_history WHERE user_id = ?", userID)
	})
	g.Go(func() error {
		return s.count(gctx, &st.TotalImages, "SELECT COUNT(*) FROM image_history WHERE user_id = ?", userID)
	})
	g.Go(func() error {
		return s.count(gctx, &st.SearchesToday,
			"SELECT COUNT(*) FROM search_history WHERE user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to)
	})
	g.Go(func() error {
		return s.count(gctx, &st.ImagesToday,
			"SELECT COUNT(*) FROM image_history WHERE user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, `
			SELECT MAX(created_at) FROM (
				SELECT created_at FROM search_history WHERE user_id = ?
				UNION ALL
				SELECT created_at FROM image_history WHERE user_id = ?
			)
		`, userID, userID).Scan(&last)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}

	var err error
	if st.LastActivity, err = sqlite.ParseNullTime(last); err != nil {
		return nil, fmt.Errorf("user stats: parse last activity: %w", err)
	}
	return &st, nil
}

// SystemStats aggregates counters across all users.
func (s *Service) SystemStats(ctx context.Context, today time.Time) (*SystemStats, error) {
	from, to := dayBounds(today)
	var st SystemStats

	queries := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.TotalUsers, "SELECT COUNT(*) FROM users", nil},
		{&st.TotalSearches, "SELECT COUNT(*) FROM search_history", nil},
		{&st.TotalImages, "SELECT COUNT(*) FROM image_history", nil},
		{&st.UsersToday, "SELECT COUNT(*) FROM users WHERE created_at >= ? AND created_at < ?", []any{from, to}},
		{&st.SearchesToday, "SELECT COUNT(*) FROM search_history WHERE created_at >= ? AND created_at < ?", []any{from, to}},
		{&st.ImagesToday, "SELECT COUNT(*) FROM image_history WHERE created_at >= ? AND created_at < ?", []any{from, to}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queries {
		g.Go(func() error { return s.count(gctx, q.dst, q.query, q.args...) })
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("system stats: %w", err)
	}
	return &st, nil
}

// ListUsers returns every account, active or not, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]*domainauth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, full_name, role, is_active, created_at, last_login
		FROM users
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*domainauth.User
	for rows.Next() {
		u, err := domainauth.ScanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Service) count(ctx context.Context, dst *int, query string, args ...any) error {
	return s.db.QueryRowContext(ctx, query, args...).Scan(dst)
}

func dayBounds(t time.Time) (from, to string) {
	start := time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return sqlite.FormatTime(start), sqlite.FormatTime(start.AddDate(0, 0, 1))
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
