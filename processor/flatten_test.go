package processor

import (
	"testing"
	"time"

	appconfig "propflow/config"
	"propflow/models"
)

func fp(v float64) *float64 { return &v }

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		ID:   "snap-1",
		Time: time.Date(2024, 10, 6, 12, 0, 0, 0, time.UTC),
	}
}

func testPayload() *models.EventOdds {
	return &models.EventOdds{
		ID:           "evt-1",
		SportKey:     "americanfootball_nfl",
		CommenceTime: time.Date(2024, 10, 6, 17, 0, 0, 0, time.UTC),
		HomeTeam:     "Chiefs",
		AwayTeam:     "Saints",
		Bookmakers: []models.Bookmaker{
			{
				Key:   "draftkings",
				Title: "DraftKings",
				Markets: []models.Market{
					{
						Key:        "player_pass_yds",
						LastUpdate: time.Date(2024, 10, 6, 16, 0, 0, 0, time.UTC),
						Outcomes: []models.Outcome{
							{Name: "Over", Description: "Patrick Mahomes", Price: -110, Point: fp(272.5)},
							{Name: "Under", Description: "Patrick Mahomes", Price: -110, Point: fp(272.5)},
						},
					},
				},
			},
			{
				Key:   "fanduel",
				Title: "FanDuel",
				Markets: []models.Market{
					{
						Key: "player_pass_yds",
						Outcomes: []models.Outcome{
							{Name: "Over", Description: "Patrick Mahomes", Price: -115, Point: fp(270.5)},
							{Name: "Under", Description: "Patrick Mahomes", Price: -105, Point: fp(270.5)},
						},
					},
				},
			},
		},
	}
}

func TestFlattenProducesRowPerOutcome(t *testing.T) {
	f := NewFlattener(&appconfig.Config{})
	batch := f.Flatten([]*models.EventOdds{testPayload()}, testSnapshot())

	if batch.RecordCount != 4 {
		t.Fatalf("expected 4 rows, got %d", batch.RecordCount)
	}
	if batch.Dropped != 0 {
		t.Errorf("expected no drops, got %d", batch.Dropped)
	}

	row := batch.Rows[0]
	if row.EventID != "evt-1" || row.EventName != "Saints @ Chiefs" {
		t.Errorf("unexpected event fields: %+v", row)
	}
	if row.PlayerName != "Patrick Mahomes" || row.MarketKey != "player_pass_yds" {
		t.Errorf("unexpected prop fields: %+v", row)
	}
	if row.Point == nil || *row.Point != 272.5 {
		t.Errorf("unexpected point: %+v", row.Point)
	}
	if row.SnapshotID != "snap-1" {
		t.Errorf("snapshot id not applied: %s", row.SnapshotID)
	}
	if row.OverPrice == nil || *row.OverPrice != -110 || row.UnderPrice == nil || *row.UnderPrice != -110 {
		t.Errorf("side prices not paired: %+v", row)
	}
}

func TestFlattenDropsIncompleteEntries(t *testing.T) {
	payload := testPayload()
	// Blank out the player name on one outcome.
	payload.Bookmakers[0].Markets[0].Outcomes[0].Description = ""

	f := NewFlattener(&appconfig.Config{})
	batch := f.Flatten([]*models.EventOdds{payload}, testSnapshot())

	if batch.RecordCount != 3 {
		t.Fatalf("expected 3 rows after drop, got %d", batch.RecordCount)
	}
	if batch.Dropped != 1 {
		t.Errorf("expected 1 dropped entry, got %d", batch.Dropped)
	}
}

func TestFlattenMissingEventID(t *testing.T) {
	payload := testPayload()
	payload.ID = ""

	f := NewFlattener(&appconfig.Config{})
	batch := f.Flatten([]*models.EventOdds{payload}, testSnapshot())

	if batch.RecordCount != 0 {
		t.Fatalf("expected all rows dropped, got %d", batch.RecordCount)
	}
	if batch.Dropped != 4 {
		t.Errorf("expected 4 dropped entries, got %d", batch.Dropped)
	}
}

func TestFlattenEmptyPayloads(t *testing.T) {
	f := NewFlattener(&appconfig.Config{})
	batch := f.Flatten(nil, testSnapshot())
	if batch.RecordCount != 0 || len(batch.Rows) != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestFlattenUniqueRowKeys(t *testing.T) {
	f := NewFlattener(&appconfig.Config{})
	batch := f.Flatten([]*models.EventOdds{testPayload()}, testSnapshot())

	type rowKey struct {
		event, player, market, outcome, book string
	}
	seen := make(map[rowKey]bool)
	for _, r := range batch.Rows {
		k := rowKey{r.EventID, r.PlayerName, r.MarketKey, r.OutcomeType, r.BookmakerKey}
		if seen[k] {
			t.Fatalf("duplicate row key: %+v", k)
		}
		seen[k] = true
	}
}
