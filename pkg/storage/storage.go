// Package storage persists users, researches and reports.
//
// Every implementation follows the same contract: ids start at 1 and are
// never reused, owner listings are newest first, and a missing record is
// reported as a nil value with a nil error. Errors are reserved for backend
// failures. The store keeps no referential integrity between entities;
// cascades are the caller's decision.
package storage

import (
	"context"
	"errors"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// ErrDuplicate is returned when a unique username or email constraint is violated
var ErrDuplicate = errors.New("storage: duplicate record")

// Storage is the persistence boundary used by every service
type Storage interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	UpdateUser(ctx context.Context, id int, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id int) (bool, error)

	CreateResearch(ctx context.Context, r *models.Research) (*models.Research, error)
	GetResearch(ctx context.Context, id int) (*models.Research, error)
	GetResearchesByUserID(ctx context.Context, userID int) ([]*models.Research, error)
	GetResearchesByStatus(ctx context.Context, status models.ResearchStatus) ([]*models.Research, error)
	UpdateResearch(ctx context.Context, id int, patch models.ResearchPatch) (*models.Research, error)
	DeleteResearch(ctx context.Context, id int) (bool, error)

	CreateReport(ctx context.Context, r *models.Report) (*models.Report, error)
	GetReport(ctx context.Context, id int) (*models.Report, error)
	GetReportsByUserID(ctx context.Context, userID int) ([]*models.Report, error)
	GetReportByResearchID(ctx context.Context, researchID int) (*models.Report, error)
	UpdateReport(ctx context.Context, id int, patch models.ReportPatch) (*models.Report, error)
	DeleteReport(ctx context.Context, id int) (bool, error)

	GetUserStats(ctx context.Context, userID int) (*models.UserStats, error)

	Ping(ctx context.Context) error
	Close() error
}
