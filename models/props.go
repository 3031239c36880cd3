package models

import (
	"time"
)

// Snapshot identifies a single pipeline run. Every row produced by the
// run carries the same snapshot id and time.
type Snapshot struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
}

// PlayerPropRow represents a single flattened player-prop quote from one
// bookmaker. Rows are immutable once created.
type PlayerPropRow struct {
	EventID        string     `json:"event_id"`
	EventName      string     `json:"event_name"`
	SportKey       string     `json:"sport_key"`
	CommenceTime   time.Time  `json:"commence_time"`
	PlayerName     string     `json:"player_name"`
	MarketKey      string     `json:"market_key"`
	OutcomeType    string     `json:"outcome_type"` // "Over", "Under", "Yes", "No"
	BookmakerKey   string     `json:"bookmaker_key"`
	BookmakerTitle string     `json:"bookmaker_title"`
	Point          *float64   `json:"point,omitempty"` // nil for yes/no markets
	Price          float64    `json:"price"`           // American odds
	OverPrice      *float64   `json:"over_price,omitempty"`
	UnderPrice     *float64   `json:"under_price,omitempty"`
	LastUpdate     time.Time  `json:"last_update"`
	SnapshotID     string     `json:"snapshot_id"`
	SnapshotTime   time.Time  `json:"snapshot_time"`
}

// PropBatch represents the full output of one run's transform stage.
type PropBatch struct {
	Snapshot    Snapshot        `json:"snapshot"`
	Rows        []PlayerPropRow `json:"rows"`
	RecordCount int             `json:"record_count"`
	Dropped     int             `json:"dropped"`
}

// Pick is one favorable-line candidate produced by comparing a bookmaker
// quote against the reference book.
type Pick struct {
	CommenceTime      time.Time `json:"commence_time"`
	EventName         string    `json:"event_name"`
	Book              string    `json:"book"`
	Player            string    `json:"player"`
	OutcomeType       string    `json:"outcome_type"`
	BetType           string    `json:"bet_type"` // readable market name
	Point             *float64  `json:"point,omitempty"`
	Price             float64   `json:"price"`
	ReferenceQuote    string    `json:"reference_quote"`
	ProbDelta         float64   `json:"prob_delta"`
	PointDelta        float64   `json:"point_delta"`
	ProjectedValue    *float64  `json:"projected_value,omitempty"`
	RefProjectedValue *float64  `json:"ref_projected_value,omitempty"`
	ProjectedDelta    *float64  `json:"projected_delta,omitempty"`
	PointMove         *float64  `json:"point_move,omitempty"`
	OddsPctMove       *float64  `json:"odds_pct_move,omitempty"`
	IsFavorable       string    `json:"is_favorable"` // "Y", "N" or "" when unknown
}

// LineKey identifies a quoted line independent of snapshot, used to look
// up the earliest stored price for movement comparisons.
type LineKey struct {
	MarketKey   string
	OutcomeType string
	PlayerName  string
}

// EarliestLine is the first stored quote for a LineKey.
type EarliestLine struct {
	Point *float64
	Price float64
}

// AnalysisResult groups picks the way the report pages present them:
// lines quoted at a different point than the reference book, and lines
// at the same point but with a better price.
type AnalysisResult struct {
	DiffPoints []Pick `json:"diff_points"`
	SamePoints []Pick `json:"same_points"`
}
