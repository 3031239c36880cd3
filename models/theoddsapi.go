package models

import (
	"time"
)

// Event represents an entry from The Odds API events endpoint.
type Event struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	SportTitle   string    `json:"sport_title"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
}

// Name renders the event the way the report pages label it.
func (e Event) Name() string {
	return e.AwayTeam + " @ " + e.HomeTeam
}

// EventOdds represents the per-event odds response, nested as
// bookmakers -> markets -> outcomes.
type EventOdds struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Name renders the event the way the report pages label it.
func (e EventOdds) Name() string {
	return e.AwayTeam + " @ " + e.HomeTeam
}

// Bookmaker is one book's set of quoted markets for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is a single prop market quoted by a bookmaker.
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is one side of a market. For player props the player name
// arrives in Description and the line in Point; yes/no markets carry no
// point at all.
type Outcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
}
