// Package tui renders the dashboard in a terminal with termui.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
)

// recentRows is how many events the list shows.
const recentRows = 15

// Snapshot is everything one frame displays.
type Snapshot struct {
	Summary      services.Summary
	Confusion    services.Confusion
	Distribution services.Distribution
	Timeline     []services.TimelinePoint
	Recent       []services.EventView
}

// Source produces snapshots.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// ServiceSource reads snapshots from a dashboard service, reloading the
// traffic log first.
type ServiceSource struct {
	Service *services.DashboardService
	Window  services.Window
}

func (s ServiceSource) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if _, err := s.Service.Refresh(ctx); err != nil {
		return snap, err
	}
	var err error
	if snap.Summary, err = s.Service.Summary(s.Window); err != nil {
		return snap, err
	}
	if snap.Confusion, err = s.Service.Confusion(s.Window); err != nil {
		return snap, err
	}
	if snap.Distribution, err = s.Service.Distribution(s.Window); err != nil {
		return snap, err
	}
	if snap.Timeline, err = s.Service.Timeline(s.Window, services.BucketMinute); err != nil {
		return snap, err
	}
	if snap.Recent, err = s.Service.Recent(s.Window, recentRows); err != nil {
		return snap, err
	}
	return snap, nil
}

// Dashboard holds the widgets. Update only touches widget state, so it
// works without an initialised terminal.
type Dashboard struct {
	KPI       *widgets.Paragraph
	Confusion *widgets.Table
	Timeline  *widgets.Plot
	Pie       *widgets.PieChart
	Events    *widgets.List
	Status    *widgets.Paragraph
}

func NewDashboard() *Dashboard {
	d := &Dashboard{
		KPI:       widgets.NewParagraph(),
		Confusion: widgets.NewTable(),
		Timeline:  widgets.NewPlot(),
		Pie:       widgets.NewPieChart(),
		Events:    widgets.NewList(),
		Status:    widgets.NewParagraph(),
	}

	d.KPI.Title = "Traffic"
	d.KPI.BorderStyle.Fg = ui.ColorCyan

	d.Confusion.Title = "Confusion matrix"
	d.Confusion.TextAlignment = ui.AlignCenter
	d.Confusion.RowSeparator = true

	d.Timeline.Title = "Per minute (DDoS red, Benigno green)"
	d.Timeline.LineColors = []ui.Color{ui.ColorRed, ui.ColorGreen}
	d.Timeline.AxesColor = ui.ColorWhite

	d.Pie.Title = "Predicted result"
	d.Pie.Colors = []ui.Color{ui.ColorRed, ui.ColorGreen}

	d.Events.Title = "Recent events"
	d.Events.BorderStyle.Fg = ui.ColorYellow

	d.Status.Border = false
	d.Status.Text = "loading... (q to quit)"

	d.Update(Snapshot{})
	return d
}

// Update copies snap into the widgets.
func (d *Dashboard) Update(snap Snapshot) {
	s := snap.Summary
	d.KPI.Text = fmt.Sprintf(
		"Total: %d\nDDoS detected: %d\nBenigno: %d\nMalicious simulated: %d\nAccuracy: %.2f%%\nAvg confidence: %.4f",
		s.Total, s.DDoS, s.Benign, s.MaliciousSimulated, s.Accuracy*100, s.AvgConfidence)

	c := snap.Confusion
	d.Confusion.Rows = [][]string{
		{"", "pred DDoS", "pred Benigno"},
		{"MALICIOSO", fmt.Sprint(c.TruePositives), fmt.Sprint(c.FalseNegatives)},
		{"BENIGNO", fmt.Sprint(c.FalsePositives), fmt.Sprint(c.TrueNegatives)},
		{"P / R / F1", fmt.Sprintf("%.2f / %.2f", c.Precision, c.Recall), fmt.Sprintf("%.2f", c.F1)},
	}

	d.Timeline.Data = timelineSeries(snap.Timeline)

	ddos := float64(snap.Distribution.ByResult[classifier.LabelDDoS])
	benign := float64(snap.Distribution.ByResult[classifier.LabelBenign])
	if ddos+benign == 0 {
		d.Pie.Data = []float64{1}
		d.Pie.LabelFormatter = func(int, float64) string { return "no data" }
	} else {
		d.Pie.Data = []float64{ddos, benign}
		d.Pie.LabelFormatter = func(i int, v float64) string {
			return fmt.Sprintf("%.0f%%", 100*v/(ddos+benign))
		}
	}

	rows := make([]string, len(snap.Recent))
	for i, e := range snap.Recent {
		color := "green"
		if e.Result == classifier.LabelDDoS {
			color = "red"
		}
		rows[i] = fmt.Sprintf("%s [%-9s] [%s](fg:%s) %.4f", e.Timestamp, e.SimulatedType, e.Result, color, e.Confidence)
	}
	if len(rows) == 0 {
		rows = []string{"no events yet"}
	}
	d.Events.Rows = rows
}

// timelineSeries returns the DDoS and Benigno series. Plots need at least
// two points per series.
func timelineSeries(points []services.TimelinePoint) [][]float64 {
	ddos := make([]float64, 0, len(points)+1)
	benign := make([]float64, 0, len(points)+1)
	for _, p := range points {
		ddos = append(ddos, float64(p.DDoS))
		benign = append(benign, float64(p.Benign))
	}
	for len(ddos) < 2 {
		ddos = append([]float64{0}, ddos...)
		benign = append([]float64{0}, benign...)
	}
	return [][]float64{ddos, benign}
}

// Grid lays the widgets out to fill width x height.
func (d *Dashboard) Grid(width, height int) *ui.Grid {
	grid := ui.NewGrid()
	grid.SetRect(0, 0, width, height)
	grid.Set(
		ui.NewRow(0.35,
			ui.NewCol(0.3, d.KPI),
			ui.NewCol(0.4, d.Confusion),
			ui.NewCol(0.3, d.Pie),
		),
		ui.NewRow(0.3, ui.NewCol(1, d.Timeline)),
		ui.NewRow(0.3, ui.NewCol(1, d.Events)),
		ui.NewRow(0.05, ui.NewCol(1, d.Status)),
	)
	return grid
}

var ErrInvalidInterval = errors.New("redraw interval must be positive")

// Run takes over the terminal and redraws every interval until ctx is done
// or the user presses q or Ctrl-C.
func Run(ctx context.Context, src Source, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	if err := ui.Init(); err != nil {
		return fmt.Errorf("initialize termui: %w", err)
	}
	defer ui.Close()

	d := NewDashboard()
	grid := d.Grid(ui.TerminalDimensions())

	refresh := func() {
		snap, err := src.Snapshot(ctx)
		if err != nil {
			d.Status.Text = "refresh failed: " + err.Error()
		} else {
			d.Update(snap)
			d.Status.Text = "updated " + time.Now().Format("15:04:05") + " (q to quit)"
		}
		ui.Render(grid)
	}
	refresh()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				ui.Render(grid)
			}
		}
	}
}
