package llm

import (
	"fmt"
	"strings"
)

// System prompts for the competitor analyst

const (
	// DiscoverySystemPrompt frames the competitor discovery call
	DiscoverySystemPrompt = `You are a market research analyst who identifies the direct competitors of a business.
Always answer with a single JSON object and nothing else.`

	// ReportSystemPrompt frames the report generation call
	ReportSystemPrompt = `You are a senior competitive intelligence analyst writing structured reports for small and medium businesses.

When analyzing competitors:
1. Stay specific to the product, sector and location given
2. Use realistic, clearly estimated numbers; never leave a data array empty
3. Keep every analysis paragraph short and actionable
4. Always include findings, opportunities and recommendations

Always answer with a single JSON object matching the requested format and nothing else.`
)

// ResearchBrief carries the research attributes that prompts embed
type ResearchBrief struct {
	Product          string
	Sector           string
	Location         string
	SalesChannels    []string
	Competitors      []string
	Aspects          []string
	IncludeAnalytics bool
	IncludeTrends    bool
}

// BuildDiscoveryPrompt asks for exactly count competitor names
func BuildDiscoveryPrompt(brief ResearchBrief, count int) string {
	return fmt.Sprintf(`I need to identify the main competitors for a business with the following details:
- Product/Service: %s
- Industry/Sector: %s
- Geographic location: %s

Please provide a list of %d major competitors in this space.
Return ONLY the names of the companies in this JSON format:
{"competitors": ["Company A", "Company B"]}`,
		brief.Product, brief.Sector, brief.Location, count)
}

// BuildReportPrompt asks for the full report object
func BuildReportPrompt(brief ResearchBrief) string {
	var b strings.Builder

	fmt.Fprintf(&b, `Generate a comprehensive competitive analysis report for:
- Product/Service: %s
- Industry/Sector: %s
- Geographic location: %s
- Competitors: %s
`, brief.Product, brief.Sector, brief.Location, strings.Join(brief.Competitors, ", "))

	if len(brief.SalesChannels) > 0 {
		fmt.Fprintf(&b, "- Sales channels: %s\n", strings.Join(brief.SalesChannels, ", "))
	}
	fmt.Fprintf(&b, "\nAspects to analyze: %s\n", strings.Join(brief.Aspects, ", "))

	b.WriteString(`
Generate a detailed report with the following sections:
1. Competitor profiles
2. Price comparison
3. Feature comparison
4. Market positioning
5. Market share
`)
	section := 6
	if brief.IncludeAnalytics {
		fmt.Fprintf(&b, "%d. Website traffic analysis (keywords and traffic sources)\n", section)
		section++
	}
	if brief.IncludeTrends {
		fmt.Fprintf(&b, "%d. Search trends (interest over the last 12 months and related topics)\n", section)
		section++
	}
	fmt.Fprintf(&b, "%d. Conclusions and recommendations\n", section)

	b.WriteString(`
Return the data in the following JSON format:
{
  "competitors": [
    {"name": "Competitor 1", "website": "example.com", "description": "Brief description"}
  ],
  "priceComparison": {
    "data": [{"competitor": "Competitor 1", "price": 99}],
    "analysis": "Price comparison analysis text"
  },
  "featureComparison": {
    "features": ["Feature 1", "Feature 2"],
    "data": [{"competitor": "Competitor 1", "hasFeature": [true, false]}],
    "analysis": "Feature comparison analysis text"
  },
  "marketPositioning": {
    "data": [{"competitor": "Competitor 1", "x": 0.5, "y": 0.7, "marketShare": 0.3}],
    "analysis": "Market positioning analysis text"
  },
  "marketShare": {
    "data": [{"competitor": "Competitor 1", "share": 0.3}],
    "analysis": "Market share analysis text"
  },
`)
	if brief.IncludeAnalytics {
		b.WriteString(`  "googleAnalytics": {
    "keywords": ["keyword 1", "keyword 2"],
    "trafficSources": [{"source": "Organic search", "percentage": 45}],
    "averageTimeOnSite": "2m 30s",
    "bounceRate": "40%",
    "analysis": "Traffic analysis text"
  },
`)
	}
	if brief.IncludeTrends {
		b.WriteString(`  "googleTrends": {
    "interestOverTime": [{"month": "Jan", "value": 60}],
    "relatedTopics": [{"name": "Topic 1", "growth": "+20%"}],
    "analysis": "Search trends analysis text"
  },
`)
	}
	b.WriteString(`  "conclusions": {
    "findings": ["Key finding 1", "Key finding 2"],
    "opportunities": ["Opportunity 1", "Opportunity 2"],
    "recommendations": ["Recommendation 1", "Recommendation 2"]
  }
}`)

	return b.String()
}
