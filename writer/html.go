package writer

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"propflow/logger"
	"propflow/models"
	"propflow/processor"
)

// htmlPage is the template input for the report page.
type htmlPage struct {
	Title       string
	GeneratedAt string
	SnapshotID  string
	Events      []htmlEvent
	DiffPoints  []models.Pick
	SamePoints  []models.Pick
	Location    *time.Location
}

type htmlEvent struct {
	Name     string
	Commence string
	Rows     []htmlRow
}

type htmlRow struct {
	Player     string
	Market     string
	Outcome    string
	Book       string
	Point      string
	Price      float64
	LastUpdate string
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
<link rel="stylesheet" href="https://cdn.datatables.net/1.13.8/css/dataTables.bootstrap5.min.css">
</head>
<body class="container-fluid py-3">
<h1>{{.Title}}</h1>
<p class="text-muted">Generated {{.GeneratedAt}} &middot; snapshot {{.SnapshotID}}</p>

{{if .DiffPoints}}
<h2>Different Points</h2>
<table class="table table-striped table-sm props-table">
<thead><tr>
<th>Commence</th><th>Event</th><th>Book</th><th>Player</th><th>Bet</th><th>Side</th>
<th>Point</th><th>Price</th><th>Reference</th><th>Prob &Delta;</th><th>Point &Delta;</th><th>Favorable</th>
</tr></thead>
<tbody>
{{range .DiffPoints}}<tr>
<td>{{fmtTime .CommenceTime $.Location}}</td><td>{{.EventName}}</td><td>{{.Book}}</td>
<td>{{.Player}}</td><td>{{.BetType}}</td><td>{{.OutcomeType}}</td>
<td>{{fmtPoint .Point}}</td><td>{{fmtPrice .Price}}</td><td>{{.ReferenceQuote}}</td>
<td>{{fmtPct .ProbDelta}}</td><td>{{printf "%.1f" .PointDelta}}</td><td>{{.IsFavorable}}</td>
</tr>{{end}}
</tbody>
</table>
{{end}}

{{if .SamePoints}}
<h2>Same Points</h2>
<table class="table table-striped table-sm props-table">
<thead><tr>
<th>Commence</th><th>Event</th><th>Book</th><th>Player</th><th>Bet</th><th>Side</th>
<th>Point</th><th>Price</th><th>Reference</th><th>Prob &Delta;</th><th>Favorable</th>
</tr></thead>
<tbody>
{{range .SamePoints}}<tr>
<td>{{fmtTime .CommenceTime $.Location}}</td><td>{{.EventName}}</td><td>{{.Book}}</td>
<td>{{.Player}}</td><td>{{.BetType}}</td><td>{{.OutcomeType}}</td>
<td>{{fmtPoint .Point}}</td><td>{{fmtPrice .Price}}</td><td>{{.ReferenceQuote}}</td>
<td>{{fmtPct .ProbDelta}}</td><td>{{.IsFavorable}}</td>
</tr>{{end}}
</tbody>
</table>
{{end}}

{{if .Events}}
{{range .Events}}
<h2>{{.Name}} <small class="text-muted">{{.Commence}}</small></h2>
<table class="table table-striped table-sm props-table">
<thead><tr>
<th>Player</th><th>Market</th><th>Side</th><th>Book</th><th>Point</th><th>Price</th><th>Updated</th>
</tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Player}}</td><td>{{.Market}}</td><td>{{.Outcome}}</td><td>{{.Book}}</td>
<td>{{.Point}}</td><td>{{fmtPrice .Price}}</td><td>{{.LastUpdate}}</td>
</tr>{{end}}
</tbody>
</table>
{{end}}
{{else}}
<div class="alert alert-warning">No upcoming player props were found for this run.</div>
{{end}}

<script src="https://code.jquery.com/jquery-3.7.1.min.js"></script>
<script src="https://cdn.datatables.net/1.13.8/js/jquery.dataTables.min.js"></script>
<script src="https://cdn.datatables.net/1.13.8/js/dataTables.bootstrap5.min.js"></script>
<script>
$(function () { $(".props-table").DataTable({ pageLength: 25 }); });
</script>
</body>
</html>
`

// HTMLWriter renders the report page for the current snapshot.
type HTMLWriter struct {
	path string
	loc  *time.Location
	tmpl *template.Template
	log  *logger.Log
}

func NewHTMLWriter(path string, loc *time.Location) (*HTMLWriter, error) {
	funcs := template.FuncMap{
		"fmtTime": func(t time.Time, loc *time.Location) string {
			return t.In(loc).Format("Mon Jan 2 15:04")
		},
		"fmtPoint": formatPoint,
		"fmtPrice": formatPrice,
		"fmtPct": func(v float64) string {
			return fmt.Sprintf("%.2f%%", v*100)
		},
	}
	tmpl, err := template.New("report").Funcs(funcs).Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &HTMLWriter{path: path, loc: loc, tmpl: tmpl, log: logger.GetLogger()}, nil
}

// Write renders the page into a temp file and renames it into place.
func (w *HTMLWriter) Write(batch models.PropBatch, result *models.AnalysisResult) error {
	start := time.Now()

	page := htmlPage{
		Title:       "Player Props",
		GeneratedAt: batch.Snapshot.Time.In(w.loc).Format("2006-01-02 15:04 MST"),
		SnapshotID:  batch.Snapshot.ID,
		Events:      groupByEvent(batch.Rows, w.loc),
		DiffPoints:  result.DiffPoints,
		SamePoints:  result.SamePoints,
		Location:    w.loc,
	}

	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, page); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", w.path, err)
	}

	logger.LogPerformanceEntry(w.log.WithComponent("html"), "html", "write_report", time.Since(start), logger.Fields{
		"path":   w.path,
		"events": len(page.Events),
		"bytes":  buf.Len(),
	})

	return nil
}

// groupByEvent orders rows by commence time, then event, then player so
// the page reads top to bottom in game order.
func groupByEvent(rows []models.PlayerPropRow, loc *time.Location) []htmlEvent {
	byEvent := make(map[string][]models.PlayerPropRow)
	var order []string
	for _, row := range rows {
		if _, ok := byEvent[row.EventID]; !ok {
			order = append(order, row.EventID)
		}
		byEvent[row.EventID] = append(byEvent[row.EventID], row)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byEvent[order[i]][0].CommenceTime.Before(byEvent[order[j]][0].CommenceTime)
	})

	events := make([]htmlEvent, 0, len(order))
	for _, id := range order {
		group := byEvent[id]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].PlayerName != group[j].PlayerName {
				return group[i].PlayerName < group[j].PlayerName
			}
			return group[i].MarketKey < group[j].MarketKey
		})

		ev := htmlEvent{
			Name:     group[0].EventName,
			Commence: group[0].CommenceTime.In(loc).Format("Mon Jan 2 15:04"),
		}
		for _, row := range group {
			ev.Rows = append(ev.Rows, htmlRow{
				Player:     row.PlayerName,
				Market:     processor.MarketLabel(row.MarketKey),
				Outcome:    row.OutcomeType,
				Book:       row.BookmakerTitle,
				Point:      formatPoint(row.Point),
				Price:      row.Price,
				LastUpdate: row.LastUpdate.In(loc).Format("15:04"),
			})
		}
		events = append(events, ev)
	}

	return events
}

func formatPoint(p *float64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *p)
}

func formatPrice(price float64) string {
	if price > 0 {
		return fmt.Sprintf("+%.0f", price)
	}
	return fmt.Sprintf("%.0f", price)
}
