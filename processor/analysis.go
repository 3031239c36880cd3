package processor

import (
	"fmt"
	"sort"

	appconfig "propflow/config"
	"propflow/logger"
	"propflow/models"
)

// Probability-delta thresholds for classifying a line quoted at a
// different or the same point as the reference book.
const (
	diffPointsProbDelta = 0.02
	samePointsProbDelta = 0.03
)

// Analyzer compares every bookmaker's quotes against the reference book
// (pinnacle by default) and picks out lines that look favorable: a softer
// point than the reference, or the same point at a better price.
type Analyzer struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewAnalyzer(cfg *appconfig.Config) *Analyzer {
	return &Analyzer{
		config: cfg,
		log:    logger.GetLogger(),
	}
}

type valuedOutcome struct {
	models.Outcome
	projected *float64
}

// Analyze evaluates one event's payload. earliest carries the first
// stored quote per line from the database and feeds the movement fields;
// it may be nil when history is empty. A payload without reference-book
// data yields an empty result, not an error.
func (a *Analyzer) Analyze(payload *models.EventOdds, earliest map[models.LineKey]models.EarliestLine) *models.AnalysisResult {
	result := &models.AnalysisResult{}

	log := a.log.WithComponent("analyzer").WithFields(logger.Fields{
		"event_id": payload.ID,
	})

	reference := a.referenceBook(payload)
	if reference == nil {
		log.Warn("reference book not found for event, skipping analysis")
		return result
	}

	for _, bookmaker := range payload.Bookmakers {
		if bookmaker.Key == reference.Key {
			continue
		}

		for _, market := range bookmaker.Markets {
			refMarket := findMarket(reference.Markets, market.Key)
			if refMarket == nil {
				continue
			}

			betType := MarketLabel(market.Key)
			outcomes := addProjectedValues(market.Outcomes)
			refOutcomes := addProjectedValues(refMarket.Outcomes)

			for _, outcome := range outcomes {
				refOutcome := findOutcome(refOutcomes, outcome.Description, outcome.Name)
				if refOutcome == nil {
					continue
				}
				a.evaluate(result, payload, bookmaker, market.Key, betType, outcome, *refOutcome, earliest)
			}
		}
	}

	return result
}

func (a *Analyzer) evaluate(result *models.AnalysisResult, payload *models.EventOdds, bookmaker models.Bookmaker, marketKey, betType string, outcome, refOutcome valuedOutcome, earliest map[models.LineKey]models.EarliestLine) {
	switch outcome.Name {
	case "Over", "Under", "Yes", "No":
	default:
		return
	}

	refProb, err := AmericanToImplied(refOutcome.Price)
	if err != nil {
		return
	}
	prob, err := AmericanToImplied(outcome.Price)
	if err != nil {
		return
	}
	probDelta := refProb - prob

	pick := models.Pick{
		CommenceTime:      payload.CommenceTime,
		EventName:         payload.Name(),
		Book:              bookmaker.Title,
		Player:            outcome.Description,
		OutcomeType:       outcome.Name,
		BetType:           betType,
		Point:             outcome.Point,
		Price:             outcome.Price,
		ReferenceQuote:    referenceQuote(refOutcome.Outcome),
		ProbDelta:         probDelta,
		PointDelta:        pointDelta(outcome.Outcome, refOutcome.Outcome),
		ProjectedValue:    outcome.projected,
		RefProjectedValue: refOutcome.projected,
	}
	if outcome.projected != nil && refOutcome.projected != nil {
		delta := *refOutcome.projected - *outcome.projected
		pick.ProjectedDelta = &delta
	}

	a.applyMovement(&pick, marketKey, outcome, refOutcome, earliest)

	// Classification follows the line state: softer point than the
	// reference goes to DiffPoints, same point at a better price to
	// SamePoints. "No" sides are stored but never picked.
	if outcome.Point == nil {
		if outcome.Name != "No" && probDelta >= a.config.Analysis.MinProbDelta && refOutcome.Price <= a.config.Analysis.MaxReferencePrice {
			result.SamePoints = append(result.SamePoints, pick)
		}
		return
	}
	if refOutcome.Point == nil {
		return
	}

	softer := (outcome.Name == "Over" && *outcome.Point < *refOutcome.Point) ||
		(outcome.Name == "Under" && *outcome.Point > *refOutcome.Point)
	switch {
	case softer && refProb >= 0.5 && (pick.PointDelta >= 1 || probDelta >= diffPointsProbDelta):
		result.DiffPoints = append(result.DiffPoints, pick)
	case *outcome.Point == *refOutcome.Point && probDelta > samePointsProbDelta:
		result.SamePoints = append(result.SamePoints, pick)
	}
}

// applyMovement fills the fields derived from the earliest stored line:
// how far the reference point and price have moved since first sighting,
// and the Y/N favorable verdict.
func (a *Analyzer) applyMovement(pick *models.Pick, marketKey string, outcome, refOutcome valuedOutcome, earliest map[models.LineKey]models.EarliestLine) {
	if outcome.Name != "Over" && outcome.Name != "Under" && outcome.Name != "Yes" {
		return
	}
	if earliest == nil {
		return
	}

	key := models.LineKey{
		MarketKey:   marketKey,
		OutcomeType: outcome.Name,
		PlayerName:  outcome.Description,
	}
	first, ok := earliest[key]
	if !ok {
		return
	}

	if refOutcome.Point != nil && first.Point != nil {
		move := *refOutcome.Point - *first.Point
		pick.PointMove = &move
	}
	refProb, errRef := AmericanToImplied(refOutcome.Price)
	firstProb, errFirst := AmericanToImplied(first.Price)
	if errRef == nil && errFirst == nil {
		move := refProb - firstProb
		pick.OddsPctMove = &move
	}

	switch outcome.Name {
	case "Over":
		if refOutcome.Point != nil && first.Point != nil {
			if *refOutcome.Point > *first.Point {
				pick.IsFavorable = "Y"
			} else if *refOutcome.Point == *first.Point && refOutcome.Price < first.Price {
				pick.IsFavorable = "Y"
			} else {
				pick.IsFavorable = "N"
			}
		}
	case "Under":
		if refOutcome.Point != nil && first.Point != nil {
			if *refOutcome.Point < *first.Point {
				pick.IsFavorable = "Y"
			} else if *refOutcome.Point == *first.Point && refOutcome.Price < first.Price {
				pick.IsFavorable = "Y"
			} else {
				pick.IsFavorable = "N"
			}
		}
	case "Yes":
		if refOutcome.Price < first.Price {
			pick.IsFavorable = "Y"
		} else {
			pick.IsFavorable = "N"
		}
	}
}

// Merge appends src's picks into dst.
func Merge(dst, src *models.AnalysisResult) {
	dst.DiffPoints = append(dst.DiffPoints, src.DiffPoints...)
	dst.SamePoints = append(dst.SamePoints, src.SamePoints...)
}

// SortResult orders both pick sets by point delta then probability
// delta, descending, the order the report pages present them in.
func SortResult(result *models.AnalysisResult) {
	sortPicks(result.DiffPoints)
	sortPicks(result.SamePoints)
}

func sortPicks(picks []models.Pick) {
	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].PointDelta != picks[j].PointDelta {
			return picks[i].PointDelta > picks[j].PointDelta
		}
		return picks[i].ProbDelta > picks[j].ProbDelta
	})
}

func (a *Analyzer) referenceBook(payload *models.EventOdds) *models.Bookmaker {
	for i := range payload.Bookmakers {
		if payload.Bookmakers[i].Key == a.config.API.SelectedBook {
			return &payload.Bookmakers[i]
		}
	}
	return nil
}

func findMarket(markets []models.Market, key string) *models.Market {
	for i := range markets {
		if markets[i].Key == key {
			return &markets[i]
		}
	}
	return nil
}

func findOutcome(outcomes []valuedOutcome, description, name string) *valuedOutcome {
	for i := range outcomes {
		if outcomes[i].Description == description && outcomes[i].Name == name {
			return &outcomes[i]
		}
	}
	return nil
}

// addProjectedValues pairs each player's over and under quotes and
// attaches the vig-free projected value to both sides. Outcomes without
// a matching pair pass through without a projection.
func addProjectedValues(outcomes []models.Outcome) []valuedOutcome {
	valued := make([]valuedOutcome, len(outcomes))
	for i, o := range outcomes {
		valued[i] = valuedOutcome{Outcome: o}
	}

	overs := make(map[string]int)
	unders := make(map[string]int)
	for i, o := range outcomes {
		switch o.Name {
		case "Over":
			overs[o.Description] = i
		case "Under":
			unders[o.Description] = i
		}
	}

	for desc, oi := range overs {
		ui, ok := unders[desc]
		if !ok {
			continue
		}
		over := outcomes[oi]
		under := outcomes[ui]
		if over.Point == nil {
			continue
		}
		pv, err := ProjectedValue(over.Price, under.Price, *over.Point)
		if err != nil {
			continue
		}
		valued[oi].projected = &pv
		valued[ui].projected = &pv
	}

	return valued
}

func pointDelta(outcome, reference models.Outcome) float64 {
	if outcome.Point == nil {
		return 0
	}
	refPoint := 0.0
	if reference.Point != nil {
		refPoint = *reference.Point
	}
	if outcome.Name == "Over" {
		return refPoint - *outcome.Point
	}
	return *outcome.Point - refPoint
}

func referenceQuote(o models.Outcome) string {
	if o.Point != nil {
		return fmt.Sprintf("%s %s %g @ %g", o.Description, o.Name, *o.Point, o.Price)
	}
	return fmt.Sprintf("%s %s @ %g", o.Description, o.Name, o.Price)
}
