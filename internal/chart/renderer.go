package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

// Series colours of the report chart.
const (
	ColorRxCount       = "#4CAF50"
	ColorDeliveries    = "#2196F3"
	ColorRxPerDelivery = "#FFC107"
	ColorServices      = "#9C27B0"

	defaultWidth  = 1024
	defaultHeight = 400
	lineTension   = 0.4
)

var (
	// ErrDisposed is wrapped by RenderError once the renderer was disposed.
	ErrDisposed = errors.New("chart renderer disposed")
	// ErrNoInstance is wrapped by RenderError when nothing was rendered yet.
	ErrNoInstance = errors.New("no chart instance")
	// ErrNoData is wrapped by RenderError when the instance has no points to draw.
	ErrNoData = errors.New("chart has no data points")
)

// Dataset is one plotted line.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	Fill            bool      `json:"fill"`
	Tension         float64   `json:"tension"`
}

// Data holds the labels and the aligned datasets.
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Options mirror the page chart options.
type Options struct {
	Responsive          bool   `json:"responsive"`
	MaintainAspectRatio bool   `json:"maintainAspectRatio"`
	Scales              Scales `json:"scales"`
}

type Scales struct {
	Y Axis `json:"y"`
}

type Axis struct {
	BeginAtZero bool `json:"beginAtZero"`
}

// Config is the line chart configuration consumed by the dashboard page.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Instance is the single live chart. Its ID is stable across updates and
// Revision counts in-place updates.
type Instance struct {
	ID       string `json:"id"`
	Revision int    `json:"revision"`
	Config   Config `json:"config"`
}

// Renderer owns at most one chart instance at a time.
type Renderer struct {
	mu       sync.Mutex
	logger   *zap.Logger
	width    int
	height   int
	created  int
	current  *Instance
	disposed bool
}

// NewRenderer builds a renderer drawing PNGs of width x height pixels; zero
// values fall back to 1024x400.
func NewRenderer(width, height int, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Renderer{logger: logger, width: width, height: height}
}

// Render creates the chart on first use and updates it in place afterwards.
func (r *Renderer) Render(series []reporting.Point) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return Instance{}, &models.RenderError{Op: "render", Err: ErrDisposed}
	}

	cfg := BuildConfig(series)
	if r.current == nil {
		r.created++
		r.current = &Instance{ID: fmt.Sprintf("report-chart-%d", r.created)}
		r.logger.Debug("chart instance created", zap.String("id", r.current.ID))
	}
	r.current.Revision++
	r.current.Config = cfg

	r.logger.Debug("chart updated",
		zap.String("id", r.current.ID),
		zap.Int("revision", r.current.Revision),
		zap.Int("points", len(cfg.Data.Labels)))
	return *r.current, nil
}

// Current returns the live instance, if any.
func (r *Renderer) Current() (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return Instance{}, false
	}
	return *r.current, true
}

// Dispose releases the instance. Later Render or WritePNG calls fail.
func (r *Renderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.logger.Debug("chart instance disposed", zap.String("id", r.current.ID))
	}
	r.current = nil
	r.disposed = true
}

// WritePNG draws the live instance as a PNG image.
func (r *Renderer) WritePNG(w io.Writer) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return &models.RenderError{Op: "draw", Err: ErrDisposed}
	}
	if r.current == nil {
		r.mu.Unlock()
		return &models.RenderError{Op: "draw", Err: ErrNoInstance}
	}
	cfg := r.current.Config
	width, height := r.width, r.height
	r.mu.Unlock()

	return DrawPNG(w, cfg, width, height)
}

// BuildConfig maps a time series onto the four aligned datasets.
func BuildConfig(series []reporting.Point) Config {
	labels := make([]string, len(series))
	rx := make([]float64, len(series))
	deliveries := make([]float64, len(series))
	ratio := make([]float64, len(series))
	services := make([]float64, len(series))

	for i, p := range series {
		labels[i] = p.Date
		rx[i] = float64(p.RxCount)
		deliveries[i] = float64(p.Deliveries)
		ratio[i] = p.RxPerDelivery
		services[i] = float64(p.Services)
	}

	return Config{
		Type: "line",
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{
				newDataset("Rx Count", rx, ColorRxCount),
				newDataset("Deliveries", deliveries, ColorDeliveries),
				newDataset("Rx per Delivery", ratio, ColorRxPerDelivery),
				newDataset("Services", services, ColorServices),
			},
		},
		Options: Options{
			Responsive:          true,
			MaintainAspectRatio: false,
			Scales:              Scales{Y: Axis{BeginAtZero: true}},
		},
	}
}

func newDataset(label string, data []float64, color string) Dataset {
	return Dataset{
		Label:           label,
		Data:            data,
		BorderColor:     color,
		BackgroundColor: color,
		Fill:            false,
		Tension:         lineTension,
	}
}

// DrawPNG renders a configuration with go-chart. X values are point indexes
// labelled with the dates; a single point is widened to two so the x range
// is not empty.
func DrawPNG(w io.Writer, cfg Config, width, height int) error {
	n := len(cfg.Data.Labels)
	if n == 0 {
		return &models.RenderError{Op: "draw", Err: ErrNoData}
	}

	xs := make([]float64, n)
	ticks := make([]gochart.Tick, n)
	for i, label := range cfg.Data.Labels {
		xs[i] = float64(i)
		ticks[i] = gochart.Tick{Value: float64(i), Label: label}
	}
	if n == 1 {
		xs = append(xs, 1)
		ticks = append(ticks, gochart.Tick{Value: 1, Label: ""})
	}

	maxY := 1.0
	series := make([]gochart.Series, 0, len(cfg.Data.Datasets))
	for _, ds := range cfg.Data.Datasets {
		ys := make([]float64, 0, len(xs))
		ys = append(ys, ds.Data...)
		if len(ys) != n {
			return &models.RenderError{Op: "draw", Err: fmt.Errorf("dataset %q has %d values for %d labels", ds.Label, len(ys), n)}
		}
		if n == 1 {
			ys = append(ys, ys[0])
		}
		for _, y := range ys {
			if y > maxY {
				maxY = y
			}
		}

		color := drawing.ColorFromHex(strings.TrimPrefix(ds.BorderColor, "#"))
		series = append(series, gochart.ContinuousSeries{
			Name:    ds.Label,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}

	graph := gochart.Chart{
		Width:      width,
		Height:     height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Ticks: ticks},
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: maxY * 1.1}},
		Series:     series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return &models.RenderError{Op: "draw", Err: err}
	}
	return nil
}
