package projections

import (
	"encoding/csv"
	"math"
	"os"
	"testing"
	"time"

	"propflow/models"
)

func fp(v float64) *float64 { return &v }

// ouRow builds an Over row with both sides of the quote attached, the
// shape LatestLines returns for over/under markets.
func ouRow(event, player, market string, point, overPrice, underPrice float64) models.PlayerPropRow {
	return models.PlayerPropRow{
		EventID:      event,
		EventName:    event,
		PlayerName:   player,
		MarketKey:    market,
		OutcomeType:  "Over",
		BookmakerKey: "pinnacle",
		Point:        fp(point),
		Price:        overPrice,
		OverPrice:    fp(overPrice),
		UnderPrice:   fp(underPrice),
	}
}

func ynRow(event, player, market, outcome string, price float64) models.PlayerPropRow {
	return models.PlayerPropRow{
		EventID:      event,
		EventName:    event,
		PlayerName:   player,
		MarketKey:    market,
		OutcomeType:  outcome,
		BookmakerKey: "pinnacle",
		Price:        price,
	}
}

func TestBuildScoring(t *testing.T) {
	// Symmetric prices make the vig-free projection equal the line, so
	// the totals stay hand-checkable.
	rows := []models.PlayerPropRow{
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_yds", 275.5, -110, -110),
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_tds", 2.5, -110, -110),
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_interceptions", 0.5, -110, -110),
	}

	projections := Build(rows)
	if len(projections) != 1 {
		t.Fatalf("expected 1 projection, got %d", len(projections))
	}

	// 275.5/25 + 2.5*4 - 0.5*2 = 11.02 + 10 - 1 = 20.02
	want := 275.5/25 + 2.5*4 - 0.5*2
	if math.Abs(projections[0].Total-want) > 1e-9 {
		t.Errorf("expected total %.2f, got %.2f", want, projections[0].Total)
	}
	if len(projections[0].Components) != 3 {
		t.Errorf("expected 3 components, got %d", len(projections[0].Components))
	}
}

func TestBuildUsesVigFreeProjection(t *testing.T) {
	// receptions 5.5 quoted +200/-300: normalized probs 4/13 over, 9/13
	// under, so the projected stat is 4/13*6 + 9/13*5 = 69/13.
	rows := []models.PlayerPropRow{
		ouRow("Chiefs @ Ravens", "Travis Kelce", "player_receptions", 5.5, 200, -300),
	}

	projections := Build(rows)
	if len(projections) != 1 {
		t.Fatalf("expected 1 projection, got %d", len(projections))
	}

	want := 69.0 / 13.0
	got := projections[0].Total
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("expected projected value %.4f, got %.4f", want, got)
	}
	if math.Abs(got-5.5) < 1e-6 {
		t.Errorf("projection must not be the raw line value")
	}
}

func TestBuildSkipsRowsMissingASide(t *testing.T) {
	row := ouRow("Chiefs @ Ravens", "Travis Kelce", "player_receptions", 5.5, -110, -110)
	row.UnderPrice = nil

	if projections := Build([]models.PlayerPropRow{row}); len(projections) != 0 {
		t.Errorf("expected one-sided quote to be skipped, got %d projections", len(projections))
	}
}

func TestBuildAnytimeTD(t *testing.T) {
	rows := []models.PlayerPropRow{
		ynRow("Chiefs @ Ravens", "Isiah Pacheco", "player_anytime_td", "Yes", 100),
	}

	projections := Build(rows)
	if len(projections) != 1 {
		t.Fatalf("expected 1 projection, got %d", len(projections))
	}

	// Even odds imply 0.5 touchdowns, worth 3 points.
	if math.Abs(projections[0].Total-3.0) > 1e-9 {
		t.Errorf("expected 3.0 points, got %.2f", projections[0].Total)
	}
}

func TestBuildGroupsByEventAndPlayer(t *testing.T) {
	rows := []models.PlayerPropRow{
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_yds", 275.5, -110, -110),
		ouRow("Bengals @ Chiefs", "Patrick Mahomes", "player_pass_yds", 290.5, -110, -110),
	}

	projections := Build(rows)
	if len(projections) != 2 {
		t.Fatalf("expected one projection per event, got %d", len(projections))
	}
	for _, proj := range projections {
		if proj.Player != "Patrick Mahomes" {
			t.Errorf("unexpected player %q", proj.Player)
		}
	}
	if projections[0].EventName == projections[1].EventName {
		t.Errorf("expected distinct events, both were %q", projections[0].EventName)
	}
	// 290.5 line outscores 275.5.
	if projections[0].EventName != "Bengals @ Chiefs" {
		t.Errorf("expected the higher-line event first, got %q", projections[0].EventName)
	}
}

func TestBuildSortsByTotal(t *testing.T) {
	rows := []models.PlayerPropRow{
		ouRow("Chiefs @ Ravens", "Travis Kelce", "player_receptions", 5.5, -110, -110),
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_yds", 275.5, -110, -110),
	}

	projections := Build(rows)
	if len(projections) != 2 {
		t.Fatalf("expected 2 projections, got %d", len(projections))
	}
	if projections[0].Player != "Patrick Mahomes" {
		t.Errorf("expected highest total first, got %s", projections[0].Player)
	}
}

func TestBuildIgnoresUnknownMarkets(t *testing.T) {
	rows := []models.PlayerPropRow{
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_attempts", 35.5, -110, -110),
	}

	if projections := Build(rows); len(projections) != 0 {
		t.Errorf("expected no projections for unscored markets, got %d", len(projections))
	}
}

func TestWriteCSV(t *testing.T) {
	projections := Build([]models.PlayerPropRow{
		ouRow("Chiefs @ Ravens", "Patrick Mahomes", "player_pass_yds", 275.5, -110, -110),
	})

	dir := t.TempDir()
	now := time.Date(2025, 9, 4, 15, 30, 0, 0, time.UTC)
	path, err := WriteCSV(dir, projections, now)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus 1 record, got %d rows", len(records))
	}
	if records[0][0] != "Player" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[1][0] != "Patrick Mahomes" {
		t.Errorf("unexpected player %q", records[1][0])
	}
	if records[1][len(records[1])-1] != "11.02" {
		t.Errorf("unexpected total %q", records[1][len(records[1])-1])
	}
}
