package writer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"propflow/models"
)

func fp(v float64) *float64 { return &v }

func testBatch(snapshotID string, snapshotTime time.Time, rows ...models.PlayerPropRow) models.PropBatch {
	for i := range rows {
		rows[i].SnapshotID = snapshotID
		rows[i].SnapshotTime = snapshotTime
	}
	return models.PropBatch{
		Snapshot:    models.Snapshot{ID: snapshotID, Time: snapshotTime},
		Rows:        rows,
		RecordCount: len(rows),
	}
}

func testRow(player, market, outcome string, point *float64, price float64) models.PlayerPropRow {
	return models.PlayerPropRow{
		EventID:        "evt1",
		EventName:      "Chiefs @ Ravens",
		SportKey:       "americanfootball_nfl",
		CommenceTime:   time.Date(2025, 9, 5, 0, 20, 0, 0, time.UTC),
		PlayerName:     player,
		MarketKey:      market,
		OutcomeType:    outcome,
		BookmakerKey:   "pinnacle",
		BookmakerTitle: "Pinnacle",
		Point:          point,
		Price:          price,
		LastUpdate:     time.Date(2025, 9, 4, 12, 0, 0, 0, time.UTC),
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "odds.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendSnapshotAndCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snapID := uuid.New().String()
	batch := testBatch(snapID, time.Now().UTC(),
		testRow("Patrick Mahomes", "player_pass_yds", "Over", fp(272.5), -110),
		testRow("Patrick Mahomes", "player_pass_yds", "Under", fp(272.5), -110),
	)

	if err := store.AppendSnapshot(ctx, batch); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	count, err := store.CountRows(ctx, snapID)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows for snapshot, got %d", count)
	}

	// A second append must add, never replace.
	if err := store.AppendSnapshot(ctx, testBatch(uuid.New().String(), time.Now().UTC(),
		testRow("Patrick Mahomes", "player_pass_yds", "Over", fp(274.5), -115),
	)); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	total, err := store.CountRows(ctx, "")
	if err != nil {
		t.Fatalf("total count failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 total rows, got %d", total)
	}
}

func TestAppendSnapshotEmptyBatch(t *testing.T) {
	store := openTestStore(t)

	if err := store.AppendSnapshot(context.Background(), models.PropBatch{}); err != nil {
		t.Fatalf("empty batch should be a no-op, got: %v", err)
	}
}

func TestEarliestLinesExcludesCurrentSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	first := testBatch("snap-1", base,
		testRow("Patrick Mahomes", "player_pass_yds", "Over", fp(270.5), -105),
	)
	second := testBatch("snap-2", base.Add(time.Hour),
		testRow("Patrick Mahomes", "player_pass_yds", "Over", fp(272.5), -110),
	)
	current := testBatch("snap-3", base.Add(2*time.Hour),
		testRow("Patrick Mahomes", "player_pass_yds", "Over", fp(275.5), -115),
	)
	for _, b := range []models.PropBatch{first, second, current} {
		if err := store.AppendSnapshot(ctx, b); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	earliest, err := store.EarliestLines(ctx, "pinnacle", "snap-3")
	if err != nil {
		t.Fatalf("earliest lines failed: %v", err)
	}

	key := models.LineKey{MarketKey: "player_pass_yds", OutcomeType: "Over", PlayerName: "Patrick Mahomes"}
	line, ok := earliest[key]
	if !ok {
		t.Fatalf("expected earliest line for %+v", key)
	}
	if line.Point == nil || *line.Point != 270.5 {
		t.Errorf("expected earliest point 270.5, got %v", line.Point)
	}
	if line.Price != -105 {
		t.Errorf("expected earliest price -105, got %v", line.Price)
	}
}

func TestEarliestLinesFirstRun(t *testing.T) {
	store := openTestStore(t)

	earliest, err := store.EarliestLines(context.Background(), "pinnacle", "snap-1")
	if err != nil {
		t.Fatalf("earliest lines failed: %v", err)
	}
	if len(earliest) != 0 {
		t.Errorf("expected no history on first run, got %d lines", len(earliest))
	}
}

func TestLatestLines(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := testRow("Travis Kelce", "player_reception_yds", "Over", fp(68.5), -110)
	older.LastUpdate = time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)
	newer := testRow("Travis Kelce", "player_reception_yds", "Over", fp(71.5), -115)
	newer.LastUpdate = time.Date(2025, 9, 4, 12, 0, 0, 0, time.UTC)

	if err := store.AppendSnapshot(ctx, testBatch("snap-1", time.Now().UTC(), older)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := store.AppendSnapshot(ctx, testBatch("snap-2", time.Now().UTC(), newer)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	rows, err := store.LatestLines(ctx, "pinnacle", []string{"player_reception_yds"})
	if err != nil {
		t.Fatalf("latest lines failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 deduplicated row, got %d", len(rows))
	}
	if rows[0].Point == nil || *rows[0].Point != 71.5 {
		t.Errorf("expected latest point 71.5, got %v", rows[0].Point)
	}
}

func TestPruneCommenced(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 9, 5, 12, 0, 0, 0, time.UTC)
	past := testRow("Lamar Jackson", "player_rush_yds", "Over", fp(55.5), -110)
	past.CommenceTime = now.Add(-3 * time.Hour)
	future := testRow("Lamar Jackson", "player_rush_yds", "Under", fp(55.5), -110)
	future.CommenceTime = now.Add(3 * time.Hour)

	if err := store.AppendSnapshot(ctx, testBatch("snap-1", now, past, future)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	pruned, err := store.PruneCommenced(ctx, now)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned row, got %d", pruned)
	}

	total, err := store.CountRows(ctx, "")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 remaining row, got %d", total)
	}
}
