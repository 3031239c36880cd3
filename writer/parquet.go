package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	"propflow/logger"
	"propflow/models"
)

// ParquetRecord is the columnar archive shape of a player prop row.
type ParquetRecord struct {
	EventID        string   `parquet:"name=event_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	EventName      string   `parquet:"name=event_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	SportKey       string   `parquet:"name=sport_key, type=BYTE_ARRAY, convertedtype=UTF8"`
	CommenceTime   int64    `parquet:"name=commence_time, type=INT64"`
	PlayerName     string   `parquet:"name=player_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	MarketKey      string   `parquet:"name=market_key, type=BYTE_ARRAY, convertedtype=UTF8"`
	OutcomeType    string   `parquet:"name=outcome_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	BookmakerKey   string   `parquet:"name=bookmaker_key, type=BYTE_ARRAY, convertedtype=UTF8"`
	BookmakerTitle string   `parquet:"name=bookmaker_title, type=BYTE_ARRAY, convertedtype=UTF8"`
	Point          *float64 `parquet:"name=point, type=DOUBLE, repetitiontype=OPTIONAL"`
	Price          float64  `parquet:"name=price, type=DOUBLE"`
	OverPrice      *float64 `parquet:"name=over_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	UnderPrice     *float64 `parquet:"name=under_price, type=DOUBLE, repetitiontype=OPTIONAL"`
	LastUpdate     int64    `parquet:"name=last_update, type=INT64"`
	SnapshotID     string   `parquet:"name=snapshot_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SnapshotTime   int64    `parquet:"name=snapshot_time, type=INT64"`
}

// ParquetArchiver writes one parquet file per snapshot into the archive
// directory. The archive directory keeps one file per run so a later
// batch job can load them without touching the live database.
type ParquetArchiver struct {
	dir string
	log *logger.Log
}

func NewParquetArchiver(dir string) *ParquetArchiver {
	return &ParquetArchiver{dir: dir, log: logger.GetLogger()}
}

// Archive writes the batch as a snappy-compressed parquet file and
// returns its path.
func (a *ParquetArchiver) Archive(batch models.PropBatch) (string, error) {
	if len(batch.Rows) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	start := time.Now()
	name := fmt.Sprintf("props_%s.parquet", batch.Snapshot.Time.UTC().Format("20060102150405"))
	path := filepath.Join(a.dir, name)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	pw, err := parquetwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		fw.Close()
		return "", fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range batch.Rows {
		record := ParquetRecord{
			EventID:        row.EventID,
			EventName:      row.EventName,
			SportKey:       row.SportKey,
			CommenceTime:   row.CommenceTime.UnixMilli(),
			PlayerName:     row.PlayerName,
			MarketKey:      row.MarketKey,
			OutcomeType:    row.OutcomeType,
			BookmakerKey:   row.BookmakerKey,
			BookmakerTitle: row.BookmakerTitle,
			Point:          row.Point,
			Price:          row.Price,
			OverPrice:      row.OverPrice,
			UnderPrice:     row.UnderPrice,
			LastUpdate:     row.LastUpdate.UnixMilli(),
			SnapshotID:     row.SnapshotID,
			SnapshotTime:   row.SnapshotTime.UnixMilli(),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			fw.Close()
			return "", fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return "", fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive file: %w", err)
	}

	logger.LogPerformanceEntry(a.log.WithComponent("archive"), "archive", "write_parquet", time.Since(start), logger.Fields{
		"path": path,
		"rows": len(batch.Rows),
	})

	return path, nil
}
