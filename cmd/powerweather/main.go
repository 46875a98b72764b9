package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/powerweather/internal/api"
	"github.com/lox/powerweather/internal/assist"
	"github.com/lox/powerweather/internal/chat"
	"github.com/lox/powerweather/internal/cityimage"
	"github.com/lox/powerweather/internal/compare"
	"github.com/lox/powerweather/internal/forecast"
	"github.com/lox/powerweather/internal/geocode"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/jobs"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/power"
	"github.com/lox/powerweather/internal/store"
)

type Globals struct {
	EnvFile kong.ConfigFlag `help:"Extra .env file to read settings from."`

	DB         string        `default:"data/powerweather.db" env:"POWERWEATHER_DB" help:"Path to SQLite database."`
	Thresholds string        `env:"POWERWEATHER_THRESHOLDS" help:"YAML file overriding insight thresholds."`
	PowerURL   string        `default:"https://power.larc.nasa.gov" env:"POWER_BASE_URL" help:"NASA POWER API base URL."`
	CacheTTL   time.Duration `default:"6h" env:"POWER_CACHE_TTL" help:"How long fetched POWER payloads are reused."`

	OpenAIKey     string        `env:"OPENAI_API_KEY" help:"Key for the OpenAI-compatible assist service. Assist falls back to local answers without it."`
	AssistModel   string        `default:"gpt-4o-mini" env:"ASSIST_MODEL" help:"Assist model name."`
	AssistBaseURL string        `env:"ASSIST_BASE_URL" help:"Base URL of an OpenAI-compatible endpoint."`
	AssistTimeout time.Duration `default:"10s" env:"ASSIST_TIMEOUT" help:"Timeout for one assist call."`

	UnsplashKey  string `env:"UNSPLASH_ACCESS_KEY" help:"Unsplash access key for comparison images."`
	GoogleKey    string `env:"GOOGLE_GEOCODING_KEY" help:"Google Geocoding key. Nominatim is used without it."`
	NominatimURL string `env:"NOMINATIM_URL" help:"Nominatim base URL."`
}

type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the dashboard server."`
	Summary SummaryCmd `cmd:"" help:"Print a weather summary for a location."`
	Compare CompareCmd `cmd:"" help:"Compare the last weeks of weather at two places."`
	Cleanup CleanupCmd `cmd:"" help:"Remove expired cached payloads and old query history."`
}

// app holds the collaborators shared by every command.
type app struct {
	db       *sql.DB
	store    *store.Store
	power    *power.Client
	facade   *assist.Facade
	geocoder geocode.Geocoder
}

func (g *Globals) open() (*app, error) {
	if dir := filepath.Dir(g.DB); dir != "." && g.DB != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	st, db, err := store.Open(g.DB)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	th := insight.DefaultThresholds()
	if g.Thresholds != "" {
		if th, err = insight.LoadThresholds(g.Thresholds); err != nil {
			db.Close()
			return nil, err
		}
		log.Printf("thresholds loaded from %s", g.Thresholds)
	}
	engine := insight.New(th)

	var remote assist.Completer
	if c, err := assist.NewOpenAI(assist.OpenAIConfig{
		APIKey:  g.OpenAIKey,
		BaseURL: g.AssistBaseURL,
		Model:   g.AssistModel,
	}); err != nil {
		log.Printf("assist disabled: %v", err)
	} else {
		remote = c
	}

	return &app{
		db:       db,
		store:    st,
		power:    power.NewClient(power.WithBaseURL(g.PowerURL), power.WithCache(st, g.CacheTTL)),
		facade:   assist.NewFacade(engine, remote, assist.WithTimeout(g.AssistTimeout)),
		geocoder: geocode.New(g.GoogleKey, g.NominatimURL),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

type ServeCmd struct {
	Port     string        `default:"8080" env:"PORT" help:"HTTP server port."`
	NoJobs   bool          `help:"Disable background maintenance jobs."`
	Prefetch []string      `sep:";" env:"POWERWEATHER_PREFETCH" help:"Locations to fetch daily, as lat,lon[,name] separated by semicolons."`
	Retain   time.Duration `default:"168h" help:"How long cached payloads are kept."`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	sessions := chat.NewSessions()
	images := cityimage.NewClient(g.UnsplashKey)
	server := api.NewServer(api.Deps{
		Store:    a.store,
		Weather:  a.power,
		Facade:   a.facade,
		Compare:  compare.NewService(a.power, images, a.facade),
		Geocoder: a.geocoder,
		Sessions: sessions,
		Forecast: forecast.NewLinear(),
	}, c.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !c.NoJobs {
		cfg := jobs.DefaultConfig()
		cfg.Retention = c.Retain
		scheduler := jobs.New(a.store, cfg)
		scheduler.SetSessions(sessions)
		if len(c.Prefetch) > 0 {
			locs, err := parseLocations(c.Prefetch)
			if err != nil {
				return err
			}
			scheduler.SetPrefetch(a.power, locs)
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	} else {
		log.Println("background jobs disabled (--no-jobs)")
	}

	return server.Run(ctx)
}

// parseLocations reads "lat,lon[,name]" entries.
func parseLocations(entries []string) ([]models.Location, error) {
	var out []models.Location
	for _, e := range entries {
		parts := strings.SplitN(strings.TrimSpace(e), ",", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("prefetch location %q: want lat,lon[,name]", e)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("prefetch location %q: %w", e, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("prefetch location %q: %w", e, err)
		}
		loc := models.Location{Latitude: lat, Longitude: lon}
		if len(parts) == 3 {
			loc.Name = strings.TrimSpace(parts[2])
		}
		out = append(out, loc)
	}
	return out, nil
}

type SummaryCmd struct {
	Place    string   `arg:"" optional:"" help:"Place name to geocode. Overrides --lat and --lon."`
	Lat      float64  `help:"Latitude."`
	Lon      float64  `help:"Longitude."`
	Temporal string   `default:"daily" enum:"daily,monthly" help:"Temporal resolution."`
	Start    string   `help:"Start date (YYYYMMDD, or YYYY for monthly)."`
	End      string   `help:"End date (YYYYMMDD, or YYYY for monthly)."`
	Days     int      `default:"30" help:"Days to cover when --start is not given."`
	Params   []string `default:"T2M,PRECTOTCORR,WS2M" help:"Parameter codes."`
	Model    string   `default:"linear" enum:"linear,moving-average" help:"Forecast model."`
}

func (c *SummaryCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	loc := models.Location{Latitude: c.Lat, Longitude: c.Lon}
	if c.Place != "" {
		if loc, err = a.geocoder.Search(ctx, c.Place); err != nil {
			return err
		}
	}

	req, err := c.request(loc)
	if err != nil {
		return err
	}
	res, err := a.power.Fetch(ctx, req)
	if err != nil {
		return err
	}
	model, err := forecast.ByName(c.Model)
	if err != nil {
		return err
	}

	in := insight.SummaryInput{Series: res.Series, Forecasts: forecast.ForSeries(model, res.Series)}
	reply := a.facade.Summary(ctx, in)

	fmt.Printf("%s observations", humanize.Comma(int64(len(res.Series.Observations))))
	if n := dropped(res.Dropped); n > 0 {
		fmt.Printf(", %s readings missing or out of range", humanize.Comma(int64(n)))
	}
	fmt.Printf(" (%s)\n\n", reply.Source)
	fmt.Println(reply.Text)
	return nil
}

func (c *SummaryCmd) request(loc models.Location) (power.Request, error) {
	temporal := models.Temporal(c.Temporal)
	params := models.ParseParameters(upper(c.Params))
	if len(params) == 0 {
		return power.Request{}, errors.New("no valid parameters")
	}

	end := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	if c.End != "" {
		t, err := parseCLIDate(c.End)
		if err != nil {
			return power.Request{}, err
		}
		end = t
	}
	start := end.AddDate(0, 0, -(c.Days - 1))
	if c.Start != "" {
		t, err := parseCLIDate(c.Start)
		if err != nil {
			return power.Request{}, err
		}
		start = t
	}
	return power.Request{Location: loc, Temporal: temporal, Parameters: params, Start: start, End: end}, nil
}

func parseCLIDate(v string) (time.Time, error) {
	for _, layout := range []string{"20060102", "2006-01-02", "2006"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func dropped(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

type CompareCmd struct {
	A       string `arg:"" help:"First place."`
	B       string `arg:"" help:"Second place."`
	Purpose string `help:"What the comparison is for, e.g. vacation, work or health."`
	Days    int    `default:"30" help:"Days of history to compare."`
}

func (c *CompareCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	locA, err := a.geocoder.Search(ctx, c.A)
	if err != nil {
		return err
	}
	locB, err := a.geocoder.Search(ctx, c.B)
	if err != nil {
		return err
	}
	// Keep the names short in the output.
	locA.Name, locB.Name = c.A, c.B

	svc := compare.NewService(a.power, cityimage.NewClient(g.UnsplashKey), a.facade)
	res, err := svc.Compare(ctx, compare.Request{A: locA, B: locB, Purpose: c.Purpose, Days: c.Days})
	if err != nil {
		return err
	}

	for _, side := range []compare.Side{res.A, res.B} {
		p := side.Profile
		fmt.Printf("%s: avg %.1f°C, %.0f%% hot days, %.2f mm/day, %.0f%% rainy days, wind %.1f m/s\n",
			p.Name, p.AvgTemp, p.HotDaysPct, p.AvgPrecip, p.RainyDaysPct, p.AvgWind)
		if side.Image != "" {
			fmt.Printf("  image: %s\n", side.Image)
		}
	}
	fmt.Printf("\n%s\n\n%s\n", res.Headline, res.Recommendation.Text)
	return nil
}

type CleanupCmd struct {
	Retain time.Duration `default:"168h" help:"Keep payloads fetched within this window."`
	Keep   int           `default:"50" help:"Query history rows to keep."`
}

func (c *CleanupCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := jobs.DefaultConfig()
	cfg.Retention = c.Retain
	cfg.KeepQueries = c.Keep
	if err := jobs.New(a.store, cfg).RunCleanup(); err != nil {
		return err
	}

	stats, err := a.store.PayloadStats()
	if err != nil {
		return err
	}
	fmt.Printf("%s cached payloads (%s)\n", humanize.Comma(int64(stats.TotalCount)), humanize.Bytes(uint64(stats.TotalSizeBytes)))
	return nil
}

// newParser builds the CLI parser. Entries in envFiles fill any flag whose
// env tag names them; missing files are skipped.
func newParser(cli *CLI, envFiles ...string) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("powerweather"),
		kong.Description("NASA POWER weather dashboard with summaries, chat and location comparison."),
		kong.UsageOnError(),
		kong.Configuration(kongdotenv.ENVFileReader, envFiles...),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, ".env")
	if err != nil {
		log.Fatalf("build cli: %v", err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
