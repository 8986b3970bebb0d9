package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// Sheet names, in workbook order
const (
	SheetOverview    = "Overview"
	SheetPricing     = "Pricing"
	SheetFeatures    = "Features"
	SheetPositioning = "Positioning"
	SheetShare       = "Market Share"
	SheetTraffic     = "Traffic"
	SheetTrends      = "Trends"
	SheetConclusions = "Conclusions"
)

type workbook struct {
	f           *excelize.File
	headerStyle int
}

// BuildWorkbook writes one sheet per populated report section. research may
// be nil when it was deleted after the report was created.
func BuildWorkbook(r *models.Report, research *models.Research) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	wb := &workbook{f: f, headerStyle: headerStyle}

	// the default sheet becomes the overview
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		return nil, err
	}
	if err := wb.overview(r, research); err != nil {
		return nil, err
	}

	c := r.Content
	if p := c.PriceComparison; p != nil {
		rows := make([][]interface{}, 0, len(p.Data))
		for _, d := range p.Data {
			rows = append(rows, []interface{}{d.Competitor, d.Price})
		}
		if err := wb.table(SheetPricing, []string{"Competitor", "Price"}, rows, p.Analysis); err != nil {
			return nil, err
		}
	}
	if fc := c.FeatureComparison; fc != nil {
		headers := append([]string{"Competitor"}, fc.Features...)
		rows := make([][]interface{}, 0, len(fc.Data))
		for _, d := range fc.Data {
			row := []interface{}{d.Competitor}
			for _, has := range d.HasFeature {
				row = append(row, yesNo(has))
			}
			rows = append(rows, row)
		}
		if err := wb.table(SheetFeatures, headers, rows, fc.Analysis); err != nil {
			return nil, err
		}
	}
	if mp := c.MarketPositioning; mp != nil {
		rows := make([][]interface{}, 0, len(mp.Data))
		for _, d := range mp.Data {
			rows = append(rows, []interface{}{d.Competitor, d.X, d.Y, d.MarketShare})
		}
		if err := wb.table(SheetPositioning, []string{"Competitor", "Price Position", "Quality Position", "Market Share"}, rows, mp.Analysis); err != nil {
			return nil, err
		}
	}
	if ms := c.MarketShare; ms != nil {
		rows := make([][]interface{}, 0, len(ms.Data))
		for _, d := range ms.Data {
			rows = append(rows, []interface{}{d.Competitor, d.Share})
		}
		if err := wb.table(SheetShare, []string{"Competitor", "Share (%)"}, rows, ms.Analysis); err != nil {
			return nil, err
		}
	}
	if ga := c.GoogleAnalytics; ga != nil {
		rows := make([][]interface{}, 0, len(ga.TrafficSources))
		for _, src := range ga.TrafficSources {
			rows = append(rows, []interface{}{src.Source, src.Percentage})
		}
		analysis := ga.Analysis
		if len(ga.Keywords) > 0 {
			analysis = strings.TrimSpace(fmt.Sprintf("Keywords: %s. %s", strings.Join(ga.Keywords, ", "), ga.Analysis))
		}
		if err := wb.table(SheetTraffic, []string{"Source", "Percentage"}, rows, analysis); err != nil {
			return nil, err
		}
	}
	if gt := c.GoogleTrends; gt != nil {
		rows := make([][]interface{}, 0, len(gt.InterestOverTime))
		for _, p := range gt.InterestOverTime {
			rows = append(rows, []interface{}{p.Month, p.Value})
		}
		if err := wb.table(SheetTrends, []string{"Month", "Interest"}, rows, gt.Analysis); err != nil {
			return nil, err
		}
	}

	if err := wb.conclusions(c.Conclusions); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func (wb *workbook) overview(r *models.Report, research *models.Research) error {
	rows := [][]interface{}{
		{"Report ID", r.ID},
		{"Created", r.CreatedAt.Format("2006-01-02 15:04")},
	}
	if research != nil {
		rows = append(rows,
			[]interface{}{"Research", research.Title},
			[]interface{}{"Product", research.Product},
			[]interface{}{"Category", research.ProductCategory},
			[]interface{}{"Location", research.Location()},
		)
	}
	for _, c := range r.Content.Competitors {
		rows = append(rows, []interface{}{"Competitor", c.Name, c.Website, c.Description})
	}
	return wb.write(SheetOverview, []string{"Field", "Value"}, rows, "")
}

func (wb *workbook) conclusions(c models.Conclusions) error {
	var rows [][]interface{}
	for _, s := range c.Findings {
		rows = append(rows, []interface{}{"Finding", s})
	}
	for _, s := range c.Opportunities {
		rows = append(rows, []interface{}{"Opportunity", s})
	}
	for _, s := range c.Recommendations {
		rows = append(rows, []interface{}{"Recommendation", s})
	}
	return wb.table(SheetConclusions, []string{"Type", "Text"}, rows, "")
}

func (wb *workbook) table(sheet string, headers []string, rows [][]interface{}, analysis string) error {
	if _, err := wb.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	return wb.write(sheet, headers, rows, analysis)
}

func (wb *workbook) write(sheet string, headers []string, rows [][]interface{}, analysis string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := wb.f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := wb.f.SetCellStyle(sheet, cell, cell, wb.headerStyle); err != nil {
			return err
		}
	}

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := wb.f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if analysis != "" {
		cell, _ := excelize.CoordinatesToCellName(1, len(rows)+3)
		if err := wb.f.SetCellValue(sheet, cell, analysis); err != nil {
			return err
		}
	}

	last, _ := excelize.ColumnNumberToName(max(len(headers), 2))
	return wb.f.SetColWidth(sheet, "A", last, 20)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
