package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// Memory is a process-local Storage. It is used by tests and by the
// "memory" storage driver in development.
type Memory struct {
	mu sync.RWMutex

	users      map[int]*models.User
	researches map[int]*models.Research
	reports    map[int]*models.Report

	nextUserID     int
	nextResearchID int
	nextReportID   int

	fold cases.Caser
	now  func() time.Time
}

// MemoryOption configures a Memory store
type MemoryOption func(*Memory)

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates an empty in-memory store
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		users:          make(map[int]*models.User),
		researches:     make(map[int]*models.Research),
		reports:        make(map[int]*models.Report),
		nextUserID:     1,
		nextResearchID: 1,
		nextReportID:   1,
		fold:           cases.Fold(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Storage = (*Memory)(nil)

// Users

func (m *Memory) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *u
	stored.ID = m.nextUserID
	m.nextUserID++
	stored.CreatedAt = m.now().UTC()
	if stored.SubscriptionTier == "" {
		stored.SubscriptionTier = models.TierFree
	}
	m.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *Memory) GetUser(ctx context.Context, id int) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.users[id]), nil
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool {
		return m.fold.String(u.Username) == m.fold.String(username)
	}), nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool {
		return m.fold.String(u.Email) == m.fold.String(email)
	}), nil
}

func (m *Memory) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return m.findUser(func(u *models.User) bool {
		return u.StripeCustomerID == customerID
	}), nil
}

// findUser returns the lowest-id user matching fn. The folding Caser is
// stateful, so lookups hold the write lock.
func (m *Memory) findUser(fn func(*models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *models.User
	for _, u := range m.users {
		if fn(u) && (found == nil || u.ID < found.ID) {
			found = u
		}
	}
	return copyUser(found)
}

func (m *Memory) UpdateUser(ctx context.Context, id int, patch models.UserPatch) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	merged := *u
	patch.Apply(&merged)
	m.users[id] = &merged
	return copyUser(&merged), nil
}

func (m *Memory) DeleteUser(ctx context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

// Researches

func (m *Memory) CreateResearch(ctx context.Context, r *models.Research) (*models.Research, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := copyResearch(r)
	stored.ID = m.nextResearchID
	m.nextResearchID++
	stored.CreatedAt = m.now().UTC()
	if stored.Status == "" {
		stored.Status = models.ResearchPending
	}
	if stored.SalesChannels == nil {
		stored.SalesChannels = []string{}
	}
	if stored.AspectsToAnalyze == nil {
		stored.AspectsToAnalyze = []string{}
	}
	m.researches[stored.ID] = stored
	return copyResearch(stored), nil
}

func (m *Memory) GetResearch(ctx context.Context, id int) (*models.Research, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.researches[id]
	if !ok {
		return nil, nil
	}
	return copyResearch(r), nil
}

func (m *Memory) GetResearchesByUserID(ctx context.Context, userID int) ([]*models.Research, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.Research{}
	for _, r := range m.researches {
		if r.UserID == userID {
			out = append(out, copyResearch(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (m *Memory) GetResearchesByStatus(ctx context.Context, status models.ResearchStatus) ([]*models.Research, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.Research{}
	for _, r := range m.researches {
		if r.Status == status {
			out = append(out, copyResearch(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID)
	})
	return out, nil
}

func (m *Memory) UpdateResearch(ctx context.Context, id int, patch models.ResearchPatch) (*models.Research, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.researches[id]
	if !ok {
		return nil, nil
	}
	merged := copyResearch(r)
	patch.Apply(merged)
	m.researches[id] = merged
	return copyResearch(merged), nil
}

func (m *Memory) DeleteResearch(ctx context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.researches[id]
	delete(m.researches, id)
	return ok, nil
}

// Reports

func (m *Memory) CreateReport(ctx context.Context, r *models.Report) (*models.Report, error) {
	stored, err := copyReport(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored.ID = m.nextReportID
	m.nextReportID++
	stored.CreatedAt = m.now().UTC()
	m.reports[stored.ID] = stored
	return copyReport(stored)
}

func (m *Memory) GetReport(ctx context.Context, id int) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	return copyReport(r)
}

func (m *Memory) GetReportsByUserID(ctx context.Context, userID int) ([]*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.Report{}
	for _, r := range m.reports {
		if r.UserID != userID {
			continue
		}
		c, err := copyReport(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID)
	})
	return out, nil
}

func (m *Memory) GetReportByResearchID(ctx context.Context, researchID int) (*models.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *models.Report
	for _, r := range m.reports {
		if r.ResearchID == researchID && (found == nil || r.ID < found.ID) {
			found = r
		}
	}
	if found == nil {
		return nil, nil
	}
	return copyReport(found)
}

func (m *Memory) UpdateReport(ctx context.Context, id int, patch models.ReportPatch) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	merged := *r
	if patch.Content != nil {
		merged.Content = *patch.Content
	}
	stored, err := copyReport(&merged)
	if err != nil {
		return nil, err
	}
	m.reports[id] = stored
	return copyReport(stored)
}

func (m *Memory) DeleteReport(ctx context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.reports[id]
	delete(m.reports, id)
	return ok, nil
}

// Stats

func (m *Memory) GetUserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.UserStats{}
	for _, r := range m.researches {
		if r.UserID == userID {
			stats.TotalResearches++
		}
	}
	for _, r := range m.reports {
		if r.UserID == userID {
			stats.TotalReports++
			stats.TotalCompetitors += len(r.Content.Competitors)
		}
	}
	return stats, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// newerFirst orders by creation time descending, then id descending
func newerFirst(at time.Time, aID int, bt time.Time, bID int) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return aID > bID
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	out := *u
	if u.LastName != nil {
		v := *u.LastName
		out.LastName = &v
	}
	return &out
}

func copyResearch(r *models.Research) *models.Research {
	out := *r
	out.SalesChannels = append([]string(nil), r.SalesChannels...)
	out.AspectsToAnalyze = append([]string(nil), r.AspectsToAnalyze...)
	if r.SalesChannels != nil && out.SalesChannels == nil {
		out.SalesChannels = []string{}
	}
	if r.AspectsToAnalyze != nil && out.AspectsToAnalyze == nil {
		out.AspectsToAnalyze = []string{}
	}
	if r.Competitors != nil {
		v := *r.Competitors
		out.Competitors = &v
	}
	return &out
}

// copyReport deep-copies the content through JSON, the same encoding
// the Postgres store uses for the content column.
func copyReport(r *models.Report) (*models.Report, error) {
	out := *r
	raw, err := json.Marshal(r.Content)
	if err != nil {
		return nil, err
	}
	out.Content = models.ReportContent{}
	if err := json.Unmarshal(raw, &out.Content); err != nil {
		return nil, err
	}
	return &out, nil
}
