package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// Postgres is the production Storage backed by database/sql and lib/pq
type Postgres struct {
	db *sql.DB
}

var _ Storage = (*Postgres)(nil)

// OpenPostgres opens a connection pool and verifies it with a ping
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing pool
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

// Users

const userColumns = `id, username, password, first_name, last_name, email,
	subscription_tier, stripe_customer_id, stripe_subscription_id, created_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		lastName sql.NullString
		tier     string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.FirstName, &lastName, &u.Email,
		&tier, &u.StripeCustomerID, &u.StripeSubscriptionID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastName.Valid {
		v := lastName.String
		u.LastName = &v
	}
	u.SubscriptionTier = models.SubscriptionTier(tier)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	tier := u.SubscriptionTier
	if tier == "" {
		tier = models.TierFree
	}
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password, first_name, last_name, email,
			subscription_tier, stripe_customer_id, stripe_subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		u.Username, u.Password, u.FirstName, nullString(u.LastName), u.Email,
		string(tier), u.StripeCustomerID, u.StripeSubscriptionID)

	created, err := scanUser(row)
	if err != nil {
		return nil, mapError("create user", err)
	}
	return created, nil
}

func (p *Postgres) GetUser(ctx context.Context, id int) (*models.User, error) {
	return p.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1) ORDER BY id LIMIT 1`, username)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) ORDER BY id LIMIT 1`, email)
}

func (p *Postgres) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return p.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1 ORDER BY id LIMIT 1`, customerID)
}

func (p *Postgres) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, id int, patch models.UserPatch) (*models.User, error) {
	var updated *models.User
	err := p.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		patch.Apply(u)

		updated, err = scanUser(tx.QueryRowContext(ctx, `
			UPDATE users SET username = $2, password = $3, first_name = $4, last_name = $5,
				email = $6, subscription_tier = $7, stripe_customer_id = $8, stripe_subscription_id = $9
			WHERE id = $1
			RETURNING `+userColumns,
			id, u.Username, u.Password, u.FirstName, nullString(u.LastName), u.Email,
			string(u.SubscriptionTier), u.StripeCustomerID, u.StripeSubscriptionID))
		return err
	})
	if err != nil {
		return nil, mapError("update user", err)
	}
	return updated, nil
}

func (p *Postgres) DeleteUser(ctx context.Context, id int) (bool, error) {
	return p.deleteByID(ctx, "users", id)
}

// Researches

const researchColumns = `id, user_id, title, product, product_category, sales_channels,
	country, state, city, competitors, auto_find_competitors, aspects_to_analyze,
	include_google_analytics, include_google_trends, status, created_at`

func scanResearch(row rowScanner) (*models.Research, error) {
	var (
		r           models.Research
		channels    []byte
		aspects     []byte
		competitors sql.NullString
		status      string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Product, &r.ProductCategory, &channels,
		&r.Country, &r.State, &r.City, &competitors, &r.AutoFindCompetitors, &aspects,
		&r.IncludeGoogleAnalytics, &r.IncludeGoogleTrends, &status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeList(channels, &r.SalesChannels); err != nil {
		return nil, fmt.Errorf("decode sales_channels: %w", err)
	}
	if err := decodeList(aspects, &r.AspectsToAnalyze); err != nil {
		return nil, fmt.Errorf("decode aspects_to_analyze: %w", err)
	}
	if competitors.Valid {
		v := competitors.String
		r.Competitors = &v
	}
	r.Status = models.ResearchStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (p *Postgres) CreateResearch(ctx context.Context, r *models.Research) (*models.Research, error) {
	channels, aspects, err := encodeResearchLists(r)
	if err != nil {
		return nil, err
	}
	status := r.Status
	if status == "" {
		status = models.ResearchPending
	}

	created, err := scanResearch(p.db.QueryRowContext(ctx, `
		INSERT INTO researches (user_id, title, product, product_category, sales_channels,
			country, state, city, competitors, auto_find_competitors, aspects_to_analyze,
			include_google_analytics, include_google_trends, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+researchColumns,
		r.UserID, r.Title, r.Product, r.ProductCategory, channels,
		r.Country, r.State, r.City, nullString(r.Competitors), r.AutoFindCompetitors, aspects,
		r.IncludeGoogleAnalytics, r.IncludeGoogleTrends, string(status)))
	if err != nil {
		return nil, mapError("create research", err)
	}
	return created, nil
}

func (p *Postgres) GetResearch(ctx context.Context, id int) (*models.Research, error) {
	r, err := scanResearch(p.db.QueryRowContext(ctx, `SELECT `+researchColumns+` FROM researches WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get research: %w", err)
	}
	return r, nil
}

func (p *Postgres) GetResearchesByUserID(ctx context.Context, userID int) ([]*models.Research, error) {
	return p.queryResearches(ctx, `SELECT `+researchColumns+` FROM researches
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

func (p *Postgres) GetResearchesByStatus(ctx context.Context, status models.ResearchStatus) ([]*models.Research, error) {
	return p.queryResearches(ctx, `SELECT `+researchColumns+` FROM researches
		WHERE status = $1 ORDER BY created_at ASC, id ASC`, string(status))
}

func (p *Postgres) queryResearches(ctx context.Context, query string, args ...any) ([]*models.Research, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list researches: %w", err)
	}
	defer rows.Close()

	out := []*models.Research{}
	for rows.Next() {
		r, err := scanResearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan research: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list researches: %w", err)
	}
	return out, nil
}

func (p *Postgres) UpdateResearch(ctx context.Context, id int, patch models.ResearchPatch) (*models.Research, error) {
	var updated *models.Research
	err := p.withTx(ctx, func(tx *sql.Tx) error {
		r, err := scanResearch(tx.QueryRowContext(ctx, `SELECT `+researchColumns+` FROM researches WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		patch.Apply(r)

		channels, aspects, err := encodeResearchLists(r)
		if err != nil {
			return err
		}
		updated, err = scanResearch(tx.QueryRowContext(ctx, `
			UPDATE researches SET title = $2, product = $3, product_category = $4, sales_channels = $5,
				country = $6, state = $7, city = $8, competitors = $9, auto_find_competitors = $10,
				aspects_to_analyze = $11, include_google_analytics = $12, include_google_trends = $13,
				status = $14
			WHERE id = $1
			RETURNING `+researchColumns,
			id, r.Title, r.Product, r.ProductCategory, channels,
			r.Country, r.State, r.City, nullString(r.Competitors), r.AutoFindCompetitors,
			aspects, r.IncludeGoogleAnalytics, r.IncludeGoogleTrends, string(r.Status)))
		return err
	})
	if err != nil {
		return nil, mapError("update research", err)
	}
	return updated, nil
}

func (p *Postgres) DeleteResearch(ctx context.Context, id int) (bool, error) {
	return p.deleteByID(ctx, "researches", id)
}

// Reports

const reportColumns = `id, user_id, research_id, content, created_at`

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r       models.Report
		content []byte
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.ResearchID, &content, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &r.Content); err != nil {
		return nil, fmt.Errorf("decode report content: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func (p *Postgres) CreateReport(ctx context.Context, r *models.Report) (*models.Report, error) {
	content, err := json.Marshal(r.Content)
	if err != nil {
		return nil, fmt.Errorf("encode report content: %w", err)
	}
	created, err := scanReport(p.db.QueryRowContext(ctx, `
		INSERT INTO reports (user_id, research_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+reportColumns,
		r.UserID, r.ResearchID, string(content)))
	if err != nil {
		return nil, mapError("create report", err)
	}
	return created, nil
}

func (p *Postgres) GetReport(ctx context.Context, id int) (*models.Report, error) {
	return p.queryReport(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
}

func (p *Postgres) GetReportByResearchID(ctx context.Context, researchID int) (*models.Report, error) {
	return p.queryReport(ctx, `SELECT `+reportColumns+` FROM reports WHERE research_id = $1 ORDER BY id ASC LIMIT 1`, researchID)
}

func (p *Postgres) queryReport(ctx context.Context, query string, args ...any) (*models.Report, error) {
	r, err := scanReport(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (p *Postgres) GetReportsByUserID(ctx context.Context, userID int) ([]*models.Report, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []*models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (p *Postgres) UpdateReport(ctx context.Context, id int, patch models.ReportPatch) (*models.Report, error) {
	if patch.Content == nil {
		return p.GetReport(ctx, id)
	}
	content, err := json.Marshal(patch.Content)
	if err != nil {
		return nil, fmt.Errorf("encode report content: %w", err)
	}
	r, err := scanReport(p.db.QueryRowContext(ctx, `
		UPDATE reports SET content = $2 WHERE id = $1
		RETURNING `+reportColumns, id, string(content)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("update report", err)
	}
	return r, nil
}

func (p *Postgres) DeleteReport(ctx context.Context, id int) (bool, error) {
	return p.deleteByID(ctx, "reports", id)
}

// Stats

func (p *Postgres) GetUserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	stats := &models.UserStats{}
	err := p.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM researches WHERE user_id = $1),
			(SELECT count(*) FROM reports WHERE user_id = $1),
			(SELECT coalesce(sum(jsonb_array_length(coalesce(content->'competitors', '[]'::jsonb))), 0)
			   FROM reports WHERE user_id = $1)`,
		userID).Scan(&stats.TotalResearches, &stats.TotalReports, &stats.TotalCompetitors)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

// deleteByID removes one row. table is always a package constant.
func (p *Postgres) deleteByID(ctx context.Context, table string, id int) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	return n > 0, nil
}

func (p *Postgres) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// encodeResearchLists renders the JSONB list columns. lib/pq sends []byte
// as bytea, so JSON is passed as text.
func encodeResearchLists(r *models.Research) (string, string, error) {
	channels := r.SalesChannels
	if channels == nil {
		channels = []string{}
	}
	aspects := r.AspectsToAnalyze
	if aspects == nil {
		aspects = []string{}
	}
	c, err := json.Marshal(channels)
	if err != nil {
		return "", "", fmt.Errorf("encode sales_channels: %w", err)
	}
	a, err := json.Marshal(aspects)
	if err != nil {
		return "", "", fmt.Errorf("encode aspects_to_analyze: %w", err)
	}
	return string(c), string(a), nil
}

func decodeList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// mapError turns unique violations into ErrDuplicate
func mapError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
