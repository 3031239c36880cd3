package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"propflow/logger"
	"propflow/models"
	"propflow/processor"
)

var propColumns = []string{
	"Event", "Commence (ET)", "Player", "Market", "Outcome",
	"Book", "Point", "Price", "Over", "Under", "Last Update",
}

var pickColumns = []string{
	"Commence (ET)", "Event", "Book", "Player", "Outcome", "Bet Type",
	"Point", "Price", "Reference", "Prob Delta", "Point Delta",
	"Projected", "Ref Projected", "Proj Delta", "Point Move", "Odds % Move", "Favorable",
}

// ExcelWriter renders the current snapshot plus the analysis picks into
// a workbook with one sheet per view.
type ExcelWriter struct {
	path string
	loc  *time.Location
	log  *logger.Log
}

func NewExcelWriter(path string, loc *time.Location) *ExcelWriter {
	return &ExcelWriter{path: path, loc: loc, log: logger.GetLogger()}
}

// Write builds the workbook in a temp file and renames it into place so
// a crash mid-write never truncates the previous export.
func (w *ExcelWriter) Write(batch models.PropBatch, result *models.AnalysisResult) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	pctStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: stringPtr("0.00%")})
	if err != nil {
		return fmt.Errorf("failed to create percent style: %w", err)
	}

	if err := w.writeProps(f, batch.Rows); err != nil {
		return err
	}
	if err := w.writePicks(f, "Diff Points", result.DiffPoints, pctStyle); err != nil {
		return err
	}
	if err := w.writePicks(f, "Same Points", result.SamePoints, pctStyle); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Props"); err == nil {
		f.SetActiveSheet(idx)
	}

	tmp := w.path + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}

	logger.LogPerformanceEntry(w.log.WithComponent("excel"), "excel", "write_workbook", time.Since(start), logger.Fields{
		"path":        w.path,
		"rows":        len(batch.Rows),
		"diff_points": len(result.DiffPoints),
		"same_points": len(result.SamePoints),
	})

	return nil
}

func (w *ExcelWriter) writeProps(f *excelize.File, rows []models.PlayerPropRow) error {
	const sheet = "Props"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	if err := writeHeader(f, sheet, propColumns); err != nil {
		return err
	}

	widths := headerWidths(propColumns)
	for i, row := range rows {
		cells := []interface{}{
			row.EventName,
			row.CommenceTime.In(w.loc).Format("2006-01-02 15:04"),
			row.PlayerName,
			processor.MarketLabel(row.MarketKey),
			row.OutcomeType,
			row.BookmakerTitle,
			floatCell(row.Point),
			row.Price,
			floatCell(row.OverPrice),
			floatCell(row.UnderPrice),
			row.LastUpdate.In(w.loc).Format("2006-01-02 15:04"),
		}
		if err := writeRow(f, sheet, i+2, cells, widths); err != nil {
			return err
		}
	}

	return finishSheet(f, sheet, propColumns, len(rows), widths)
}

func (w *ExcelWriter) writePicks(f *excelize.File, sheet string, picks []models.Pick, pctStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	if err := writeHeader(f, sheet, pickColumns); err != nil {
		return err
	}

	widths := headerWidths(pickColumns)
	for i, pick := range picks {
		cells := []interface{}{
			pick.CommenceTime.In(w.loc).Format("2006-01-02 15:04"),
			pick.EventName,
			pick.Book,
			pick.Player,
			pick.OutcomeType,
			pick.BetType,
			floatCell(pick.Point),
			pick.Price,
			pick.ReferenceQuote,
			pick.ProbDelta,
			pick.PointDelta,
			floatCell(pick.ProjectedValue),
			floatCell(pick.RefProjectedValue),
			floatCell(pick.ProjectedDelta),
			floatCell(pick.PointMove),
			floatCell(pick.OddsPctMove),
			pick.IsFavorable,
		}
		if err := writeRow(f, sheet, i+2, cells, widths); err != nil {
			return err
		}
	}

	if len(picks) > 0 {
		// Prob Delta is column J, Odds % Move is column P.
		if err := f.SetCellStyle(sheet, "J2", fmt.Sprintf("J%d", len(picks)+1), pctStyle); err != nil {
			return fmt.Errorf("failed to style %s: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, "P2", fmt.Sprintf("P%d", len(picks)+1), pctStyle); err != nil {
			return fmt.Errorf("failed to style %s: %w", sheet, err)
		}
	}

	return finishSheet(f, sheet, pickColumns, len(picks), widths)
}

func writeHeader(f *excelize.File, sheet string, columns []string) error {
	for i, name := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header on %s: %w", sheet, err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []interface{}, widths []float64) error {
	for i, value := range cells {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if value == nil {
			continue
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s!%s: %w", sheet, cell, err)
		}
		if s, ok := value.(string); ok && float64(len(s))+2 > widths[i] {
			widths[i] = float64(len(s)) + 2
		}
	}
	return nil
}

func finishSheet(f *excelize.File, sheet string, columns []string, rowCount int, widths []float64) error {
	for i := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("failed to size column %s on %s: %w", col, sheet, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	ref := fmt.Sprintf("A1:%s%d", lastCol, rowCount+1)
	if err := f.AutoFilter(sheet, ref, nil); err != nil {
		return fmt.Errorf("failed to set autofilter on %s: %w", sheet, err)
	}

	return nil
}

func headerWidths(columns []string) []float64 {
	widths := make([]float64, len(columns))
	for i, name := range columns {
		widths[i] = float64(len(name)) + 4
	}
	return widths
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(s string) *string { return &s }

// ensure the output directory exists before the first write of a run.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
