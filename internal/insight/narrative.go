package insight

import (
	"fmt"
	"math"
	"strings"

	"github.com/lox/powerweather/internal/models"
)

type Section struct {
	Parameter models.Parameter `json:"parameter"`
	Heading   string           `json:"heading"`
	Text      string           `json:"text"`
}

// Narrative is the assembled description of a series. The zero value is the
// no-data narrative.
type Narrative struct {
	Header   string    `json:"header"`
	Sections []Section `json:"sections"`
	Overall  string    `json:"overall"`
	Insight  string    `json:"insight,omitempty"`
}

func (n Narrative) Empty() bool {
	return n.Header == "" && len(n.Sections) == 0 && n.Overall == ""
}

// String joins the narrative into paragraphs separated by blank lines.
func (n Narrative) String() string {
	if n.Empty() {
		return NoDataMessage
	}
	parts := []string{n.Header}
	for _, s := range n.Sections {
		parts = append(parts, s.Text)
	}
	parts = append(parts, n.Overall)
	if n.Insight != "" {
		parts = append(parts, "Additional insight: "+n.Insight)
	}
	return strings.Join(parts, "\n\n")
}

type SummaryInput struct {
	Series    models.Series
	Forecasts models.Forecasts
	// Insight is optional free text from an upstream analysis, appended verbatim.
	Insight string
}

// Summarize builds the narrative for a series. The output depends only on the
// input and the engine thresholds.
func (e *Engine) Summarize(in SummaryInput) Narrative {
	s := in.Series
	if s.Empty() {
		return Narrative{}
	}

	n := Narrative{
		Header:  header(s),
		Insight: strings.TrimSpace(in.Insight),
	}

	var (
		tempPeriod   TempPeriod
		precipPeriod PrecipPeriod
	)
	for _, p := range describedParameters(s) {
		stats := ComputeStats(s.Column(p))
		n.Sections = append(n.Sections, Section{
			Parameter: p,
			Heading:   p.Label(),
			Text:      e.section(s, p, stats, in.Forecasts),
		})
		if !stats.OK() {
			continue
		}
		switch p {
		case models.ParamTemperature:
			tempPeriod = e.TempPeriod(stats.Mean)
		case models.ParamPrecipitation:
			precipPeriod = e.PrecipPeriod(stats.Sum)
		}
	}
	n.Overall = "Overall, this location has experienced " + Overall(tempPeriod, precipPeriod)
	return n
}

// Interpret describes a single parameter using the same text as its
// narrative section.
func (e *Engine) Interpret(s models.Series, p models.Parameter, f models.Forecasts) string {
	if s.Empty() {
		return NoDataMessage
	}
	return e.section(s, p, ComputeStats(s.Column(p)), f)
}

func describedParameters(s models.Series) []models.Parameter {
	if len(s.Parameters) > 0 {
		return s.Parameters
	}
	var out []models.Parameter
	for _, p := range models.AllParameters {
		for _, o := range s.Observations {
			if o.Value(p).Valid {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func header(s models.Series) string {
	start, end := s.Span()
	layout := "2 Jan 2006"
	if s.Temporal == models.TemporalMonthly {
		layout = "Jan 2006"
	}
	return fmt.Sprintf("This weather analysis covers the period from %s to %s for %s.",
		start.Format(layout), end.Format(layout), s.Location.DisplayName())
}

func (e *Engine) section(s models.Series, p models.Parameter, st Stats, f models.Forecasts) string {
	if !st.OK() {
		return fmt.Sprintf("No %s readings were available for this period.", p.Noun())
	}

	unit := s.Unit(p)
	step := periodWord(s.Temporal)
	var b strings.Builder

	switch p {
	case models.ParamTemperature:
		fmt.Fprintf(&b, "The temperature during this period has been quite %s, averaging %s. ",
			e.TempPeriod(st.Mean), withUnit(st.Mean, unit))
		fmt.Fprintf(&b, "The warmest %s reached %s, while the coolest dropped to %s. ",
			step, withUnit(st.Max, unit), withUnit(st.Min, unit))
		b.WriteString(trendSentence(e.Trend(s.Present(p)), unit))

	case models.ParamPrecipitation:
		total := withUnit(st.Sum, "mm")
		switch e.PrecipPeriod(st.Sum) {
		case PeriodDry:
			fmt.Fprintf(&b, "This has been a relatively dry period with only %s of total rainfall. ", total)
		case PeriodModerateWet:
			fmt.Fprintf(&b, "Rainfall has been moderate during this period, totaling %s. ", total)
		default:
			fmt.Fprintf(&b, "This has been quite a wet period with %s of total precipitation. ", total)
		}
		rainy := 0
		for _, v := range s.Present(p) {
			if e.IsRainy(v) {
				rainy++
			}
		}
		switch {
		case rainy == 0:
			fmt.Fprintf(&b, "No %s recorded measurable rainfall.", step)
		case st.Max > e.th.HeavyDayAbove:
			fmt.Fprintf(&b, "%s with measurable rainfall, including one particularly heavy %s with %s.",
				thereWere(rainy, step), step, withUnit(st.Max, "mm"))
		default:
			fmt.Fprintf(&b, "%s with measurable rainfall, with the heaviest %s receiving %s.",
				thereWere(rainy, step), step, withUnit(st.Max, "mm"))
		}

	case models.ParamWind:
		avg := withUnit(st.Mean, unit)
		switch e.WindPeriod(st.Mean) {
		case PeriodCalm:
			fmt.Fprintf(&b, "Wind conditions have been generally calm, averaging %s.", avg)
		case PeriodLightBreeze:
			fmt.Fprintf(&b, "There's been a light breeze throughout the period, with average wind speeds of %s.", avg)
		default:
			fmt.Fprintf(&b, "It's been quite breezy, with average wind speeds reaching %s.", avg)
		}
		if st.Max > e.th.PeakWindAbove {
			fmt.Fprintf(&b, " The windiest %s peaked at %s.", step, withUnit(st.Max, unit))
		}

	case models.ParamHumidity:
		avg := withUnit(st.Mean, unit)
		switch e.HumidityPeriod(st.Mean) {
		case PeriodDryAir:
			fmt.Fprintf(&b, "The air has been dry, with relative humidity averaging %s.", avg)
		case PeriodComfortable:
			fmt.Fprintf(&b, "Humidity has stayed comfortable, averaging %s.", avg)
		default:
			fmt.Fprintf(&b, "Conditions have been humid, with relative humidity averaging %s.", avg)
		}
		fmt.Fprintf(&b, " Readings ranged from %s to %s.", withUnit(st.Min, unit), withUnit(st.Max, unit))

	case models.ParamSnowDepth:
		if st.Max <= 0 {
			b.WriteString("No snow cover was recorded during this period.")
		} else {
			fmt.Fprintf(&b, "Snow depth averaged %s and peaked at %s.", withUnit(st.Mean, unit), withUnit(st.Max, unit))
		}

	default:
		fmt.Fprintf(&b, "%s averaged %s, ranging from %s to %s.",
			p.Label(), withUnit(st.Mean, unit), withUnit(st.Min, unit), withUnit(st.Max, unit))
	}

	if fp, ok := f.Next(p); ok {
		fmt.Fprintf(&b, " %s", forecastSentence(p, fp, unit))
	}
	return strings.TrimSpace(b.String())
}

func trendSentence(t Trend, unit string) string {
	switch t.Direction {
	case Increasing:
		return fmt.Sprintf("Recently, temperatures have been trending upward (%s change).", withUnit(t.Magnitude, unit))
	case Decreasing:
		return fmt.Sprintf("Recently, temperatures have been cooling down (%s change).", withUnit(t.Magnitude, unit))
	case Stable:
		return "Temperature patterns have remained relatively stable."
	default:
		return "There are too few readings to identify a trend."
	}
}

func forecastSentence(p models.Parameter, fp models.ForecastPoint, unit string) string {
	return fmt.Sprintf("Looking ahead, the forecast model predicts %s around %s with %d%% confidence.",
		p.Noun(), withUnit(fp.Value, unit), ConfidencePercent(fp.Confidence))
}

// ConfidencePercent converts a [0,1] confidence to a whole percentage.
func ConfidencePercent(c float64) int {
	if math.IsNaN(c) || c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return int(math.Round(c * 100))
}

func withUnit(v float64, unit string) string {
	switch unit {
	case "", "°C", "%":
		return fmt.Sprintf("%.1f%s", v, unit)
	case "mm":
		return fmt.Sprintf("%.1fmm", v)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

func periodWord(t models.Temporal) string {
	if t == models.TemporalMonthly {
		return "month"
	}
	return "day"
}

func thereWere(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("There was 1 %s", word)
	}
	return fmt.Sprintf("There were %d %ss", n, word)
}
