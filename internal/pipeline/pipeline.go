package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	appconfig "propflow/config"
	"propflow/logger"
	"propflow/models"
	"propflow/processor"
	"propflow/reader/oddsapi"
	"propflow/writer"
)

// Pipeline runs one fetch, transform, export cycle. A run is a single
// snapshot: every exported row carries the same snapshot id and time.
type Pipeline struct {
	config    *appconfig.Config
	client    *oddsapi.Client
	flattener *processor.Flattener
	analyzer  *processor.Analyzer
	location  *time.Location
	log       *logger.Log
}

func New(cfg *appconfig.Config) (*Pipeline, error) {
	loc, err := time.LoadLocation(cfg.Analysis.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", cfg.Analysis.Timezone, err)
	}

	return &Pipeline{
		config:    cfg,
		client:    oddsapi.NewClient(cfg),
		flattener: processor.NewFlattener(cfg),
		analyzer:  processor.NewAnalyzer(cfg),
		location:  loc,
		log:       logger.GetLogger(),
	}, nil
}

// Run executes the full cycle. Any stage failure aborts the run; the
// database append happens before the presentation sinks so history is
// preserved even when a later export fails.
func (p *Pipeline) Run(ctx context.Context) error {
	snapshot := models.Snapshot{
		ID:   uuid.New().String(),
		Time: time.Now().UTC(),
	}

	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{
		"snapshot_id": snapshot.ID,
	})
	log.Info("starting run")
	start := time.Now()

	payloads, err := p.fetch(ctx, log)
	if err != nil {
		return err
	}

	batch := p.flattener.Flatten(payloads, snapshot)
	logger.LogDataFlowEntry(log, "the-odds-api", "transform", batch.RecordCount, "player_prop_rows")

	store, err := writer.NewStore(p.config.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AppendSnapshot(ctx, batch); err != nil {
		return err
	}

	if p.config.Database.PruneCommenced {
		if _, err := store.PruneCommenced(ctx, snapshot.Time); err != nil {
			return err
		}
	}

	// History for movement analysis excludes the batch appended above.
	earliest, err := store.EarliestLines(ctx, p.config.API.SelectedBook, snapshot.ID)
	if err != nil {
		return err
	}

	result := &models.AnalysisResult{}
	for _, payload := range payloads {
		processor.Merge(result, p.analyzer.Analyze(payload, earliest))
	}
	processor.SortResult(result)

	if err := p.export(ctx, batch, result); err != nil {
		return err
	}

	logger.LogPerformanceEntry(log, "pipeline", "run", time.Since(start), logger.Fields{
		"events":          len(payloads),
		"rows":            batch.RecordCount,
		"dropped":         batch.Dropped,
		"diff_points":     len(result.DiffPoints),
		"same_points":     len(result.SamePoints),
		"quota_used":      p.client.QuotaUsed(),
		"quota_remaining": p.client.QuotaRemaining(),
	})
	logger.LogRunSummary(p.log)

	return nil
}

// fetch lists events per sport, filters out commenced games and pulls
// the per-event odds payloads.
func (p *Pipeline) fetch(ctx context.Context, log *logger.Entry) ([]*models.EventOdds, error) {
	now := time.Now()

	var payloads []*models.EventOdds
	for _, sport := range p.config.Sports {
		events, err := p.client.ListEvents(ctx, sport)
		if err != nil {
			return nil, fmt.Errorf("failed to list events for %s: %w", sport, err)
		}

		upcoming := processor.FilterUpcoming(events, now, p.location)
		log.WithFields(logger.Fields{
			"sport":    sport,
			"events":   len(events),
			"upcoming": len(upcoming),
		}).Info("fetched event list")

		for _, event := range upcoming {
			payload, err := p.client.EventOdds(ctx, sport, event.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch odds for event %s: %w", event.ID, err)
			}
			payloads = append(payloads, payload)
		}
	}

	return payloads, nil
}

// export writes the presentation sinks, then the optional archive and
// artifact upload.
func (p *Pipeline) export(ctx context.Context, batch models.PropBatch, result *models.AnalysisResult) error {
	for _, path := range []string{p.config.Output.ExcelPath, p.config.Output.HTMLPath} {
		if err := writer.EnsureDir(path); err != nil {
			return fmt.Errorf("failed to prepare output directory for %s: %w", path, err)
		}
	}

	excel := writer.NewExcelWriter(p.config.Output.ExcelPath, p.location)
	if err := excel.Write(batch, result); err != nil {
		return err
	}

	html, err := writer.NewHTMLWriter(p.config.Output.HTMLPath, p.location)
	if err != nil {
		return err
	}
	if err := html.Write(batch, result); err != nil {
		return err
	}

	var artifacts []string
	if p.config.Archive.Enabled {
		path, err := writer.NewParquetArchiver(p.config.Archive.Dir).Archive(batch)
		if err != nil {
			return err
		}
		if path != "" {
			artifacts = append(artifacts, path)
		}
	}

	if p.config.Storage.S3.Enabled {
		uploader, err := writer.NewUploader(ctx, p.config)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, p.config.Output.ExcelPath, p.config.Output.HTMLPath)
		for _, artifact := range artifacts {
			if err := uploader.UploadFile(ctx, artifact, batch.Snapshot.Time); err != nil {
				return err
			}
		}
	}

	return nil
}
