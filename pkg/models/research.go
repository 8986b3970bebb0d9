package models

import (
	"strings"
	"time"
)

// ResearchStatus tracks where a research is in the generation pipeline
type ResearchStatus string

const (
	ResearchPending   ResearchStatus = "pending"
	ResearchCompleted ResearchStatus = "completed"
	ResearchFailed    ResearchStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is a forward transition.
// Only pending may move, and only to a terminal state.
func (s ResearchStatus) CanTransitionTo(next ResearchStatus) bool {
	return s == ResearchPending && (next == ResearchCompleted || next == ResearchFailed)
}

// Terminal reports whether s is completed or failed
func (s ResearchStatus) Terminal() bool {
	return s == ResearchCompleted || s == ResearchFailed
}

// Research is a user's request to analyze the competitors of a product
type Research struct {
	ID                     int            `json:"id"`
	UserID                 int            `json:"userId"`
	Title                  string         `json:"title"`
	Product                string         `json:"product"`
	ProductCategory        string         `json:"productCategory"`
	SalesChannels          []string       `json:"salesChannels"`
	Country                string         `json:"country"`
	State                  string         `json:"state"`
	City                   string         `json:"city"`
	Competitors            *string        `json:"competitors"`
	AutoFindCompetitors    bool           `json:"autoFindCompetitors"`
	AspectsToAnalyze       []string       `json:"aspectsToAnalyze"`
	IncludeGoogleAnalytics bool           `json:"includeGoogleAnalytics"`
	IncludeGoogleTrends    bool           `json:"includeGoogleTrends"`
	Status                 ResearchStatus `json:"status"`
	CreatedAt              time.Time      `json:"createdAt"`
}

// Location renders the three-level location, skipping empty parts
func (r *Research) Location() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.City, r.State, r.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ManualCompetitors splits the free-text competitor list on commas
func (r *Research) ManualCompetitors() []string {
	if r.Competitors == nil {
		return []string{}
	}
	return SplitCompetitors(*r.Competitors)
}

// SplitCompetitors splits a comma-separated list, trimming blanks
func SplitCompetitors(s string) []string {
	names := []string{}
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ResearchPatch carries a partial research update. Nil fields are left untouched.
type ResearchPatch struct {
	Title                  *string
	Product                *string
	ProductCategory        *string
	SalesChannels          []string
	Country                *string
	State                  *string
	City                   *string
	Competitors            *string
	AutoFindCompetitors    *bool
	AspectsToAnalyze       []string
	IncludeGoogleAnalytics *bool
	IncludeGoogleTrends    *bool
	Status                 *ResearchStatus
}

// Apply merges the patch over r. Slice fields replace when non-nil.
func (p ResearchPatch) Apply(r *Research) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Product != nil {
		r.Product = *p.Product
	}
	if p.ProductCategory != nil {
		r.ProductCategory = *p.ProductCategory
	}
	if p.SalesChannels != nil {
		r.SalesChannels = append([]string(nil), p.SalesChannels...)
	}
	if p.Country != nil {
		r.Country = *p.Country
	}
	if p.State != nil {
		r.State = *p.State
	}
	if p.City != nil {
		r.City = *p.City
	}
	if p.Competitors != nil {
		v := *p.Competitors
		r.Competitors = &v
	}
	if p.AutoFindCompetitors != nil {
		r.AutoFindCompetitors = *p.AutoFindCompetitors
	}
	if p.AspectsToAnalyze != nil {
		r.AspectsToAnalyze = append([]string(nil), p.AspectsToAnalyze...)
	}
	if p.IncludeGoogleAnalytics != nil {
		r.IncludeGoogleAnalytics = *p.IncludeGoogleAnalytics
	}
	if p.IncludeGoogleTrends != nil {
		r.IncludeGoogleTrends = *p.IncludeGoogleTrends
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
}

// CreateResearchRequest is the body of POST /api/researches
type CreateResearchRequest struct {
	Title                  string   `json:"title" validate:"required,max=200"`
	Product                string   `json:"product" validate:"required,max=200"`
	ProductCategory        string   `json:"productCategory" validate:"required,max=200"`
	SalesChannels          []string `json:"salesChannels" validate:"omitempty,dive,required"`
	Country                string   `json:"country" validate:"required"`
	State                  string   `json:"state" validate:"required"`
	City                   string   `json:"city" validate:"required"`
	Competitors            *string  `json:"competitors" validate:"omitempty,max=2000"`
	AutoFindCompetitors    bool     `json:"autoFindCompetitors"`
	AspectsToAnalyze       []string `json:"aspectsToAnalyze" validate:"required,min=1,dive,required"`
	IncludeGoogleAnalytics *bool    `json:"includeGoogleAnalytics"`
	IncludeGoogleTrends    *bool    `json:"includeGoogleTrends"`
}

// ToResearch builds a pending research owned by userID
func (req CreateResearchRequest) ToResearch(userID int) *Research {
	r := &Research{
		UserID:                 userID,
		Title:                  req.Title,
		Product:                req.Product,
		ProductCategory:        req.ProductCategory,
		SalesChannels:          req.SalesChannels,
		Country:                req.Country,
		State:                  req.State,
		City:                   req.City,
		Competitors:            req.Competitors,
		AutoFindCompetitors:    req.AutoFindCompetitors,
		AspectsToAnalyze:       req.AspectsToAnalyze,
		IncludeGoogleAnalytics: true,
		IncludeGoogleTrends:    true,
		Status:                 ResearchPending,
	}
	if r.SalesChannels == nil {
		r.SalesChannels = []string{}
	}
	if req.IncludeGoogleAnalytics != nil {
		r.IncludeGoogleAnalytics = *req.IncludeGoogleAnalytics
	}
	if req.IncludeGoogleTrends != nil {
		r.IncludeGoogleTrends = *req.IncludeGoogleTrends
	}
	return r
}

// UpdateResearchRequest is the body of PUT /api/researches/:id.
// Status is owned by the pipeline and cannot be set here.
type UpdateResearchRequest struct {
	Title                  *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Product                *string  `json:"product" validate:"omitempty,min=1,max=200"`
	ProductCategory        *string  `json:"productCategory" validate:"omitempty,min=1,max=200"`
	SalesChannels          []string `json:"salesChannels" validate:"omitempty,dive,required"`
	Country                *string  `json:"country" validate:"omitempty,min=1"`
	State                  *string  `json:"state" validate:"omitempty,min=1"`
	City                   *string  `json:"city" validate:"omitempty,min=1"`
	Competitors            *string  `json:"competitors" validate:"omitempty,max=2000"`
	AutoFindCompetitors    *bool    `json:"autoFindCompetitors"`
	AspectsToAnalyze       []string `json:"aspectsToAnalyze" validate:"omitempty,min=1,dive,required"`
	IncludeGoogleAnalytics *bool    `json:"includeGoogleAnalytics"`
	IncludeGoogleTrends    *bool    `json:"includeGoogleTrends"`
}

// ToPatch converts the request into a storage patch
func (req UpdateResearchRequest) ToPatch() ResearchPatch {
	return ResearchPatch{
		Title:                  req.Title,
		Product:                req.Product,
		ProductCategory:        req.ProductCategory,
		SalesChannels:          req.SalesChannels,
		Country:                req.Country,
		State:                  req.State,
		City:                   req.City,
		Competitors:            req.Competitors,
		AutoFindCompetitors:    req.AutoFindCompetitors,
		AspectsToAnalyze:       req.AspectsToAnalyze,
		IncludeGoogleAnalytics: req.IncludeGoogleAnalytics,
		IncludeGoogleTrends:    req.IncludeGoogleTrends,
	}
}
