package projections

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"propflow/logger"
	"propflow/models"
	"propflow/processor"
)

// pprWeights maps a market to the fantasy points awarded per unit of the
// quoted line, PPR scoring.
var pprWeights = map[string]float64{
	"player_pass_yds":           1.0 / 25.0,
	"player_pass_tds":           4.0,
	"player_pass_interceptions": -2.0,
	"player_reception_yds":      1.0 / 10.0,
	"player_receptions":         1.0,
	"player_rush_yds":           1.0 / 10.0,
	"player_kicking_points":     1.0,
}

// anytimeTDPoints is the award for a touchdown; the yes price converts
// to an expected count through its implied probability.
const anytimeTDPoints = 6.0

// Markets returns the market keys the projection consumes.
func Markets() []string {
	keys := make([]string, 0, len(pprWeights)+1)
	for k := range pprWeights {
		keys = append(keys, k)
	}
	keys = append(keys, "player_anytime_td")
	sort.Strings(keys)
	return keys
}

// Projection is one player's PPR estimate assembled from their most
// recent quoted lines.
type Projection struct {
	Player     string
	EventName  string
	Components map[string]float64
	Total      float64
}

type projectionKey struct {
	event  string
	player string
}

// Build converts the latest stored lines into projections, one per
// (event, player), sorted by total descending.
func Build(rows []models.PlayerPropRow) []Projection {
	log := logger.GetLogger().WithComponent("projections")

	byKey := make(map[projectionKey]*Projection)
	var order []projectionKey
	for _, row := range rows {
		points, ok := marketPoints(row)
		if !ok {
			continue
		}

		key := projectionKey{event: row.EventName, player: row.PlayerName}
		proj := byKey[key]
		if proj == nil {
			proj = &Projection{
				Player:     row.PlayerName,
				EventName:  row.EventName,
				Components: make(map[string]float64),
			}
			byKey[key] = proj
			order = append(order, key)
		}
		if _, seen := proj.Components[row.MarketKey]; seen {
			continue
		}
		proj.Components[row.MarketKey] = points
		proj.Total += points
	}

	projections := make([]Projection, 0, len(order))
	for _, key := range order {
		projections = append(projections, *byKey[key])
	}
	sort.SliceStable(projections, func(i, j int) bool {
		return projections[i].Total > projections[j].Total
	})

	log.WithFields(logger.Fields{
		"players": len(projections),
		"rows":    len(rows),
	}).Info("built projections")

	return projections
}

// marketPoints converts one quoted line into fantasy points. Over/Under
// markets use the vig-free projected value from the over/under price
// pair as the stat estimate; the anytime TD market uses the implied
// probability of the yes side. Rows missing either side of the pair are
// skipped.
func marketPoints(row models.PlayerPropRow) (float64, bool) {
	if row.MarketKey == "player_anytime_td" {
		if row.OutcomeType != "Yes" {
			return 0, false
		}
		prob, err := processor.AmericanToImplied(row.Price)
		if err != nil {
			return 0, false
		}
		return prob * anytimeTDPoints, true
	}

	weight, ok := pprWeights[row.MarketKey]
	if !ok || row.OutcomeType != "Over" || row.Point == nil {
		return 0, false
	}
	if row.OverPrice == nil || row.UnderPrice == nil {
		return 0, false
	}
	projected, err := processor.ProjectedValue(*row.OverPrice, *row.UnderPrice, *row.Point)
	if err != nil {
		return 0, false
	}
	return projected * weight, true
}

// WriteCSV writes the projections to a timestamped file in dir and
// returns its path.
func WriteCSV(dir string, projections []Projection, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create projections directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("ppr_projections_%s.csv", now.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create projections file: %w", err)
	}
	defer f.Close()

	markets := Markets()
	header := append([]string{"Player", "Event"}, marketHeaders(markets)...)
	header = append(header, "PPR Total")

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, proj := range projections {
		record := []string{proj.Player, proj.EventName}
		for _, market := range markets {
			if v, ok := proj.Components[market]; ok {
				record = append(record, strconv.FormatFloat(v, 'f', 2, 64))
			} else {
				record = append(record, "")
			}
		}
		record = append(record, strconv.FormatFloat(proj.Total, 'f', 2, 64))
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush projections: %w", err)
	}

	return path, nil
}

func marketHeaders(markets []string) []string {
	headers := make([]string, len(markets))
	for i, market := range markets {
		headers[i] = processor.MarketLabel(market)
	}
	return headers
}
