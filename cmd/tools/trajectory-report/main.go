// Command trajectory-report renders an offline report for a recorded
// period: distance-from-home over time, events per hour, summary
// statistics, and a trajectory scatter plot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/store"
	"github.com/elmbrook/wanderguard/internal/wander"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	dbPath  = flag.String("db", "wanderguard.db", "Path to the sqlite database")
	date    = flag.String("date", "", "Report date (YYYY-MM-DD, local); defaults to today")
	outDir  = flag.String("out", "report", "Output directory")
	maxPts  = flag.Int("max-points", 20000, "Maximum samples to load")
	verbose = flag.Bool("v", false, "Print summary statistics to stdout")
)

func main() {
	flag.Parse()

	day := time.Now()
	if *date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			log.Fatalf("invalid -date: %v", err)
		}
		day = parsed
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	end := start.Add(24 * time.Hour)

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	samples, err := st.ListSamples(start.UnixMilli(), end.UnixMilli(), *maxPts)
	if err != nil {
		log.Fatalf("failed to load samples: %v", err)
	}
	events, err := st.ListEvents(start.UnixMilli(), end.UnixMilli(), 0)
	if err != nil {
		log.Fatalf("failed to load events: %v", err)
	}
	home, err := st.Home()
	if err != nil {
		log.Fatalf("failed to load home point: %v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("no samples recorded between %s and %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	distances, stepLengths := seriesFrom(samples, home)
	if *verbose {
		printSummary(samples, distances, stepLengths, events)
	}

	htmlPath := filepath.Join(*outDir, "report.html")
	if err := renderHTML(htmlPath, samples, distances, events, start); err != nil {
		log.Fatalf("failed to render HTML report: %v", err)
	}
	pngPath := filepath.Join(*outDir, "trajectory.png")
	if err := renderTrajectoryPNG(pngPath, samples, home); err != nil {
		log.Fatalf("failed to render trajectory plot: %v", err)
	}

	log.Printf("report written to %s and %s", htmlPath, pngPath)
}

// seriesFrom computes the distance-from-home series and consecutive
// step lengths in meters.
func seriesFrom(samples []geo.Point, home *geo.Point) (distances, steps []float64) {
	distances = make([]float64, len(samples))
	for i, p := range samples {
		if home != nil {
			distances[i] = geo.Haversine(p, *home)
		}
	}
	steps = make([]float64, 0, len(samples))
	for i := 1; i < len(samples); i++ {
		steps = append(steps, geo.Haversine(samples[i-1], samples[i]))
	}
	return distances, steps
}

func printSummary(samples []geo.Point, distances, steps []float64, events []wander.Event) {
	fmt.Printf("samples: %d, events: %d\n", len(samples), len(events))
	fmt.Printf("distance from home: mean %.0fm, max %.0fm, stddev %.0fm\n",
		stat.Mean(distances, nil), maxOf(distances), stat.StdDev(distances, nil))
	if len(steps) > 0 {
		sorted := append([]float64(nil), steps...)
		sort.Float64s(sorted)
		fmt.Printf("step length: mean %.1fm, p50 %.1fm, p95 %.1fm, total path %.0fm\n",
			stat.Mean(steps, nil),
			stat.Quantile(0.5, stat.Empirical, sorted, nil),
			stat.Quantile(0.95, stat.Empirical, sorted, nil),
			sum(steps))
	}
	byType := map[wander.EventType]int{}
	for _, e := range events {
		byType[e.Type]++
	}
	for t, n := range byType {
		fmt.Printf("  %s: %d\n", t, n)
	}
}

// renderHTML writes the echarts page: distance-from-home line and
// events-per-hour bar.
func renderHTML(path string, samples []geo.Point, distances []float64, events []wander.Event, start time.Time) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Distance from home",
			Subtitle: fmt.Sprintf("%s — %d samples", start.Format("2006-01-02"), len(samples)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "meters"}),
	)
	labels := make([]string, len(samples))
	lineData := make([]opts.LineData, len(samples))
	for i, p := range samples {
		labels[i] = time.UnixMilli(p.UnixMs).Format("15:04:05")
		lineData[i] = opts.LineData{Value: distances[i]}
	}
	line.SetXAxis(labels).AddSeries("distance", lineData)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Events per hour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	perHour := make([]int, 24)
	for _, e := range events {
		perHour[time.UnixMilli(e.UnixMs).Local().Hour()]++
	}
	hours := make([]string, 24)
	barData := make([]opts.BarData, 24)
	for h := 0; h < 24; h++ {
		hours[h] = fmt.Sprintf("%02d:00", h)
		barData[h] = opts.BarData{Value: perHour[h]}
	}
	bar.SetXAxis(hours).AddSeries("events", barData)

	page := components.NewPage()
	page.AddCharts(line, bar)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

// renderTrajectoryPNG draws the day's trajectory as a scatter in local
// meters east/north of the home point (or the first sample when no home
// is configured).
func renderTrajectoryPNG(path string, samples []geo.Point, home *geo.Point) error {
	origin := samples[0]
	if home != nil {
		origin = *home
	}

	pts := make(plotter.XYs, len(samples))
	for i, p := range samples {
		east := geo.Point{Lat: origin.Lat, Lng: p.Lng}
		north := geo.Point{Lat: p.Lat, Lng: origin.Lng}
		x := geo.Haversine(origin, east)
		if p.Lng < origin.Lng {
			x = -x
		}
		y := geo.Haversine(origin, north)
		if p.Lat < origin.Lat {
			y = -y
		}
		pts[i] = plotter.XY{X: x, Y: y}
	}

	pl := plot.New()
	pl.Title.Text = "Trajectory"
	pl.X.Label.Text = "East (m)"
	pl.Y.Label.Text = "North (m)"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	pl.Add(scatter, plotter.NewGrid())

	return pl.Save(6*vg.Inch, 6*vg.Inch, path)
}

func sum(v []float64) float64 {
	var t float64
	for _, x := range v {
		t += x
	}
	return t
}

func maxOf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}
