package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"propflow/logger"
	"propflow/models"
)

// PlayerProp is the persistence shape of a PlayerPropRow. The table is
// append-only: every run inserts a fresh snapshot batch and existing
// rows are never updated.
type PlayerProp struct {
	ID             uint   `gorm:"primaryKey"`
	EventID        string `gorm:"index"`
	EventName      string
	SportKey       string
	MarketKey      string `gorm:"index:idx_line"`
	OutcomeType    string `gorm:"index:idx_line"`
	PlayerName     string `gorm:"index:idx_line"`
	BookmakerKey   string `gorm:"index"`
	BookmakerTitle string
	Point          *float64
	Price          float64
	OverPrice      *float64
	UnderPrice     *float64
	CommenceTime   time.Time
	LastUpdate     time.Time
	SnapshotID     string    `gorm:"index"`
	SnapshotTime   time.Time `gorm:"index"`
}

func (PlayerProp) TableName() string { return "player_props" }

// Store wraps the SQLite odds history database.
type Store struct {
	db  *gorm.DB
	log *logger.Log
}

// NewStore opens (or creates) the database file and migrates the schema.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&PlayerProp{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db, log: logger.GetLogger()}, nil
}

// AppendSnapshot inserts the whole batch inside one transaction so a
// failure partway through never leaves a partial snapshot behind.
func (s *Store) AppendSnapshot(ctx context.Context, batch models.PropBatch) error {
	if len(batch.Rows) == 0 {
		s.log.WithComponent("store").Info("empty batch, nothing to append")
		return nil
	}

	records := make([]PlayerProp, len(batch.Rows))
	for i, row := range batch.Rows {
		records[i] = fromRow(row)
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(records, 500).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append snapshot %s: %w", batch.Snapshot.ID, err)
	}

	logger.AddRowsWritten(int64(len(records)))
	logger.LogPerformanceEntry(s.log.WithComponent("store"), "store", "append_snapshot", time.Since(start), logger.Fields{
		"snapshot_id": batch.Snapshot.ID,
		"rows":        len(records),
	})

	return nil
}

// EarliestLines returns the first stored quote per line for the given
// bookmaker. Rows belonging to excludeSnapshotID are ignored so the
// current run's freshly appended batch does not count as history.
func (s *Store) EarliestLines(ctx context.Context, bookmakerKey, excludeSnapshotID string) (map[models.LineKey]models.EarliestLine, error) {
	var records []PlayerProp
	query := s.db.WithContext(ctx).
		Where("bookmaker_key = ?", bookmakerKey).
		Order("snapshot_time ASC")
	if excludeSnapshotID != "" {
		query = query.Where("snapshot_id <> ?", excludeSnapshotID)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query earliest lines: %w", err)
	}

	earliest := make(map[models.LineKey]models.EarliestLine)
	for _, r := range records {
		key := models.LineKey{
			MarketKey:   r.MarketKey,
			OutcomeType: r.OutcomeType,
			PlayerName:  r.PlayerName,
		}
		if _, ok := earliest[key]; ok {
			continue
		}
		earliest[key] = models.EarliestLine{Point: r.Point, Price: r.Price}
	}

	return earliest, nil
}

// LatestLines returns the most recent quote per (event, player, market,
// outcome) for the given bookmaker, restricted to the listed markets.
// Most recent means the latest market update the book reported.
func (s *Store) LatestLines(ctx context.Context, bookmakerKey string, markets []string) ([]models.PlayerPropRow, error) {
	var records []PlayerProp
	query := s.db.WithContext(ctx).
		Where("bookmaker_key = ?", bookmakerKey).
		Order("last_update DESC")
	if len(markets) > 0 {
		query = query.Where("market_key IN ?", markets)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query latest lines: %w", err)
	}

	type lineID struct {
		event, player, market, outcome string
	}
	seen := make(map[lineID]bool)
	var rows []models.PlayerPropRow
	for _, r := range records {
		id := lineID{r.EventName, r.PlayerName, r.MarketKey, r.OutcomeType}
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, toRow(r))
	}

	return rows, nil
}

// PruneCommenced removes rows for events that started before now. Off by
// default; the history is append-only unless the retention option is
// explicitly enabled.
func (s *Store) PruneCommenced(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("commence_time < ?", now).
		Delete(&PlayerProp{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune commenced events: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		s.log.WithComponent("store").WithFields(logger.Fields{
			"rows": res.RowsAffected,
		}).Info("pruned commenced events")
	}

	return res.RowsAffected, nil
}

// CountRows reports the total number of stored rows, and the number
// belonging to the given snapshot when snapshotID is non-empty.
func (s *Store) CountRows(ctx context.Context, snapshotID string) (int64, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&PlayerProp{})
	if snapshotID != "" {
		query = query.Where("snapshot_id = ?", snapshotID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromRow(row models.PlayerPropRow) PlayerProp {
	return PlayerProp{
		EventID:        row.EventID,
		EventName:      row.EventName,
		SportKey:       row.SportKey,
		MarketKey:      row.MarketKey,
		OutcomeType:    row.OutcomeType,
		PlayerName:     row.PlayerName,
		BookmakerKey:   row.BookmakerKey,
		BookmakerTitle: row.BookmakerTitle,
		Point:          row.Point,
		Price:          row.Price,
		OverPrice:      row.OverPrice,
		UnderPrice:     row.UnderPrice,
		CommenceTime:   row.CommenceTime,
		LastUpdate:     row.LastUpdate,
		SnapshotID:     row.SnapshotID,
		SnapshotTime:   row.SnapshotTime,
	}
}

func toRow(r PlayerProp) models.PlayerPropRow {
	return models.PlayerPropRow{
		EventID:        r.EventID,
		EventName:      r.EventName,
		SportKey:       r.SportKey,
		MarketKey:      r.MarketKey,
		OutcomeType:    r.OutcomeType,
		PlayerName:     r.PlayerName,
		BookmakerKey:   r.BookmakerKey,
		BookmakerTitle: r.BookmakerTitle,
		Point:          r.Point,
		Price:          r.Price,
		OverPrice:      r.OverPrice,
		UnderPrice:     r.UnderPrice,
		CommenceTime:   r.CommenceTime,
		LastUpdate:     r.LastUpdate,
		SnapshotID:     r.SnapshotID,
		SnapshotTime:   r.SnapshotTime,
	}
}
