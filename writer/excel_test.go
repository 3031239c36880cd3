package writer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"propflow/models"
)

func TestExcelWriterSheets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player_props.xlsx")
	w := NewExcelWriter(path, time.UTC)

	batch := testBatch("snap-1", time.Now().UTC(),
		testRow("Patrick Mahomes", "player_pass_yds", "Over", fp(272.5), -110),
		testRow("Patrick Mahomes", "player_pass_yds", "Under", fp(272.5), -110),
	)
	result := &models.AnalysisResult{
		DiffPoints: []models.Pick{{
			CommenceTime:   time.Date(2025, 9, 5, 0, 20, 0, 0, time.UTC),
			EventName:      "Chiefs @ Ravens",
			Book:           "DraftKings",
			Player:         "Patrick Mahomes",
			OutcomeType:    "Over",
			BetType:        "Pass Yds",
			Point:          fp(269.5),
			Price:          -110,
			ReferenceQuote: "272.5 @ -110",
			ProbDelta:      0.0,
			PointDelta:     3,
			IsFavorable:    "Y",
		}},
	}

	if err := w.Write(batch, result); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Props", "Diff Points", "Same Points"} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("expected sheet %q to exist", sheet)
		}
	}

	header, err := f.GetCellValue("Props", "A1")
	if err != nil || header != "Event" {
		t.Errorf("expected Props!A1 = Event, got %q (err %v)", header, err)
	}
	player, err := f.GetCellValue("Props", "C2")
	if err != nil || player != "Patrick Mahomes" {
		t.Errorf("expected Props!C2 = Patrick Mahomes, got %q (err %v)", player, err)
	}
	pick, err := f.GetCellValue("Diff Points", "D2")
	if err != nil || pick != "Patrick Mahomes" {
		t.Errorf("expected Diff Points!D2 = Patrick Mahomes, got %q (err %v)", pick, err)
	}
}

func TestExcelWriterEmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player_props.xlsx")
	w := NewExcelWriter(path, time.UTC)

	batch := testBatch("snap-1", time.Now().UTC())
	if err := w.Write(batch, &models.AnalysisResult{}); err != nil {
		t.Fatalf("write with no rows should still produce a workbook: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue("Diff Points", "A1")
	if err != nil || header != "Commence (ET)" {
		t.Errorf("expected header row on empty sheet, got %q (err %v)", header, err)
	}
}
