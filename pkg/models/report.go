package models

import "time"

// Report is the generated analysis for one research
type Report struct {
	ID         int           `json:"id"`
	UserID     int           `json:"userId"`
	ResearchID int           `json:"researchId"`
	Content    ReportContent `json:"content"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// ReportPatch carries a partial report update
type ReportPatch struct {
	Content *ReportContent
}

// ReportContent is the structured payload of a report. Competitors and
// Conclusions are always present; every other section is optional.
type ReportContent struct {
	Competitors       []CompetitorProfile `json:"competitors" validate:"required,dive"`
	PriceComparison   *PriceComparison    `json:"priceComparison,omitempty" validate:"omitempty"`
	FeatureComparison *FeatureComparison  `json:"featureComparison,omitempty" validate:"omitempty"`
	MarketPositioning *MarketPositioning  `json:"marketPositioning,omitempty" validate:"omitempty"`
	MarketShare       *MarketShare        `json:"marketShare,omitempty" validate:"omitempty"`
	GoogleAnalytics   *GoogleAnalytics    `json:"googleAnalytics,omitempty" validate:"omitempty"`
	GoogleTrends      *GoogleTrends       `json:"googleTrends,omitempty" validate:"omitempty"`
	Conclusions       Conclusions         `json:"conclusions" validate:"required"`
}

// CompetitorProfile describes one competitor
type CompetitorProfile struct {
	Name        string `json:"name" validate:"required"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
}

type PricePoint struct {
	Competitor string  `json:"competitor" validate:"required"`
	Price      float64 `json:"price"`
}

type PriceComparison struct {
	Data     []PricePoint `json:"data" validate:"dive"`
	Analysis string       `json:"analysis"`
}

type FeatureRow struct {
	Competitor string `json:"competitor" validate:"required"`
	HasFeature []bool `json:"hasFeature"`
}

type FeatureComparison struct {
	Features []string     `json:"features"`
	Data     []FeatureRow `json:"data" validate:"dive"`
	Analysis string       `json:"analysis"`
}

type PositioningPoint struct {
	Competitor  string  `json:"competitor" validate:"required"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	MarketShare float64 `json:"marketShare"`
}

type MarketPositioning struct {
	Data     []PositioningPoint `json:"data" validate:"dive"`
	Analysis string             `json:"analysis"`
}

type SharePoint struct {
	Competitor string  `json:"competitor" validate:"required"`
	Share      float64 `json:"share"`
}

type MarketShare struct {
	Data     []SharePoint `json:"data" validate:"dive"`
	Analysis string       `json:"analysis"`
}

type TrafficSource struct {
	Source     string  `json:"source"`
	Percentage float64 `json:"percentage"`
}

// GoogleAnalytics is the traffic-source breakdown section
type GoogleAnalytics struct {
	Keywords          []string        `json:"keywords"`
	TrafficSources    []TrafficSource `json:"trafficSources"`
	AverageTimeOnSite string          `json:"averageTimeOnSite,omitempty"`
	BounceRate        string          `json:"bounceRate,omitempty"`
	Analysis          string          `json:"analysis"`
}

type InterestPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

type RelatedTopic struct {
	Name   string `json:"name"`
	Growth string `json:"growth"`
}

// GoogleTrends is the search-interest breakdown section
type GoogleTrends struct {
	InterestOverTime []InterestPoint `json:"interestOverTime"`
	RelatedTopics    []RelatedTopic  `json:"relatedTopics"`
	Analysis         string          `json:"analysis"`
}

// Conclusions closes every report
type Conclusions struct {
	Findings        []string `json:"findings" validate:"required,min=1"`
	Opportunities   []string `json:"opportunities" validate:"required,min=1"`
	Recommendations []string `json:"recommendations" validate:"required,min=1"`
}

// Complete reports whether every conclusions list has at least one entry
func (c Conclusions) Complete() bool {
	return len(c.Findings) > 0 && len(c.Opportunities) > 0 && len(c.Recommendations) > 0
}

// CompetitorNames returns the names of the profiled competitors
func (rc *ReportContent) CompetitorNames() []string {
	names := make([]string, 0, len(rc.Competitors))
	for _, c := range rc.Competitors {
		names = append(names, c.Name)
	}
	return names
}

// CreateReportRequest is the body of POST /api/reports
type CreateReportRequest struct {
	ResearchID int           `json:"researchId" validate:"required,gt=0"`
	Content    ReportContent `json:"content" validate:"required"`
}
