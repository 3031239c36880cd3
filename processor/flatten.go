package processor

import (
	appconfig "propflow/config"
	"propflow/logger"
	"propflow/models"
)

// Flattener reshapes nested odds payloads into flat PlayerPropRow
// records. Entries missing a required field (event id, player name,
// market key) are dropped silently; the drop count is reported on the
// batch, never as an error.
type Flattener struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewFlattener(cfg *appconfig.Config) *Flattener {
	return &Flattener{
		config: cfg,
		log:    logger.GetLogger(),
	}
}

// Flatten produces one row per bookmaker outcome across all payloads,
// preserving API response order. Every row carries the run's snapshot id
// and time.
func (f *Flattener) Flatten(payloads []*models.EventOdds, snapshot models.Snapshot) models.PropBatch {
	log := f.log.WithComponent("flattener").WithFields(logger.Fields{
		"snapshot_id": snapshot.ID,
		"payloads":    len(payloads),
	})

	batch := models.PropBatch{Snapshot: snapshot}
	for _, payload := range payloads {
		if payload == nil {
			continue
		}
		rows, dropped := f.flattenEvent(payload, snapshot)
		batch.Rows = append(batch.Rows, rows...)
		batch.Dropped += dropped
	}
	batch.RecordCount = len(batch.Rows)

	log.WithFields(logger.Fields{
		"rows":    batch.RecordCount,
		"dropped": batch.Dropped,
	}).Info("payloads flattened")

	return batch
}

func (f *Flattener) flattenEvent(payload *models.EventOdds, snapshot models.Snapshot) ([]models.PlayerPropRow, int) {
	var rows []models.PlayerPropRow
	dropped := 0

	for _, bookmaker := range payload.Bookmakers {
		for _, market := range bookmaker.Markets {
			overs, unders := sidePrices(market.Outcomes)
			for _, outcome := range market.Outcomes {
				if payload.ID == "" || outcome.Description == "" || market.Key == "" {
					dropped++
					continue
				}

				row := models.PlayerPropRow{
					EventID:        payload.ID,
					EventName:      payload.Name(),
					SportKey:       payload.SportKey,
					CommenceTime:   payload.CommenceTime,
					PlayerName:     outcome.Description,
					MarketKey:      market.Key,
					OutcomeType:    outcome.Name,
					BookmakerKey:   bookmaker.Key,
					BookmakerTitle: bookmaker.Title,
					Point:          outcome.Point,
					Price:          outcome.Price,
					LastUpdate:     market.LastUpdate,
					SnapshotID:     snapshot.ID,
					SnapshotTime:   snapshot.Time,
				}
				if p, ok := overs[outcome.Description]; ok {
					price := p
					row.OverPrice = &price
				}
				if p, ok := unders[outcome.Description]; ok {
					price := p
					row.UnderPrice = &price
				}
				rows = append(rows, row)
			}
		}
	}

	return rows, dropped
}

// sidePrices indexes the over and under prices by player so both sides of
// a quote can be attached to each row.
func sidePrices(outcomes []models.Outcome) (map[string]float64, map[string]float64) {
	overs := make(map[string]float64)
	unders := make(map[string]float64)
	for _, o := range outcomes {
		switch o.Name {
		case "Over":
			overs[o.Description] = o.Price
		case "Under":
			unders[o.Description] = o.Price
		}
	}
	return overs, unders
}
