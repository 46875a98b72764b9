package insight

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/dustin/go-humanize"

	"github.com/lox/powerweather/internal/models"
)

type ChatInput struct {
	Question  string
	Series    models.Series
	Forecasts models.Forecasts
	Insight   string
}

type intent struct {
	name     string
	keywords []string
	answer   func(e *Engine, in ChatInput) (string, bool)
}

// intents are tried in order; an intent that cannot answer from the data
// hands over to the next one that matches.
var intents = []intent{
	{"outdoor", []string{"outside", "go out", "outdoor", "should i"}, (*Engine).answerOutdoor},
	{"temperature", []string{"temperature", "temp", "hot", "cold", "warm", "freeze", "freezing"}, (*Engine).answerTemperature},
	{"precipitation", []string{"rain", "precipitation", "wet", "dry"}, (*Engine).answerPrecipitation},
	{"forecast", []string{"forecast", "predict", "future", "tomorrow"}, (*Engine).answerForecast},
	{"wind", []string{"wind", "windy", "breeze", "breezy"}, (*Engine).answerWind},
	{"humidity", []string{"humidity", "humid", "muggy"}, (*Engine).answerHumidity},
	{"trend", []string{"trend", "changing", "pattern"}, (*Engine).answerTrend},
	{"overview", []string{"summary", "overview", "tell me"}, (*Engine).answerOverview},
}

// Answer responds to a free-form question from the series alone. It always
// returns text: the help message when nothing else applies.
func (e *Engine) Answer(in ChatInput) string {
	if in.Series.Empty() {
		return NoChatDataMessage
	}
	q := strings.ToLower(in.Question)
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, it := range intents {
		if !matches(q, words, it.keywords) {
			continue
		}
		if text, ok := it.answer(e, in); ok {
			return text
		}
	}
	return helpText(in.Question)
}

// Intent returns the name of the first intent the question matches, or "help".
func Intent(question string) string {
	q := strings.ToLower(question)
	words := strings.FieldsFunc(q, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, it := range intents {
		if matches(q, words, it.keywords) {
			return it.name
		}
	}
	return "help"
}

// matches is a substring check, plus a one-edit tolerance for single-word
// keywords of seven letters or more so that typos still route. Shorter
// keywords stay exact: "freeze" is one edit from "breeze".
func matches(q string, words, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
		if len(kw) < minFuzzyKeyword || strings.Contains(kw, " ") {
			continue
		}
		for _, w := range words {
			if abs(len(w)-len(kw)) <= 1 && levenshtein.ComputeDistance(w, kw) <= 1 {
				return true
			}
		}
	}
	return false
}

const minFuzzyKeyword = 7

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

var tempAdvice = map[TempBand]string{
	TempHot:      "Hot! Stay hydrated and seek shade.",
	TempPleasant: "Pleasant for outdoor activities.",
	TempCool:     "Cool, consider a light jacket.",
	TempCold:     "Cold, dress warmly.",
}

var precipAdvice = map[PrecipBand]string{
	PrecipHeavy: "Rainy, bring an umbrella!",
	PrecipLight: "Light rain possible.",
	PrecipNone:  "No rain expected.",
}

var windAdvice = map[WindBand]string{
	WindVeryWindy: "Very windy, secure loose items.",
	WindBreezy:    "Breezy conditions.",
	WindCalm:      "Calm winds.",
}

var recommendationText = map[Recommendation]string{
	StayIndoors:      "Stay indoors due to rain.",
	LimitOutdoorTime: "Extreme temperature, limit outdoor time.",
	BeCautious:       "Very windy, be cautious outdoors.",
	GoodConditions:   "Good conditions for outdoor activities!",
}

// RecommendationText is the sentence shown for an outdoor recommendation.
func RecommendationText(r Recommendation) string {
	return recommendationText[r]
}

func (e *Engine) answerOutdoor(in ChatInput) (string, bool) {
	latest, ok := in.Series.LatestReported()
	if !ok {
		return "", false
	}
	c := e.Conditions(latest)
	if !c.Any() {
		return "", false
	}
	s := in.Series
	var b strings.Builder
	b.WriteString("Outdoor conditions assessment:\n\n")
	if c.Temperature != "" {
		fmt.Fprintf(&b, "Temperature: %s - %s\n", withUnit(latest.Value(models.ParamTemperature).Float64, s.Unit(models.ParamTemperature)), tempAdvice[c.Temperature])
	}
	if c.Precipitation != "" {
		fmt.Fprintf(&b, "Precipitation: %s - %s\n", withUnit(latest.Value(models.ParamPrecipitation).Float64, "mm"), precipAdvice[c.Precipitation])
	}
	if c.Wind != "" {
		fmt.Fprintf(&b, "Wind: %s - %s\n", withUnit(latest.Value(models.ParamWind).Float64, s.Unit(models.ParamWind)), windAdvice[c.Wind])
	}
	fmt.Fprintf(&b, "\nRecommendation: %s", RecommendationText(c.Recommendation))
	return b.String(), true
}

func (e *Engine) answerTemperature(in ChatInput) (string, bool) {
	st := StatsOf(in.Series.Present(models.ParamTemperature))
	if !st.OK() {
		return "", false
	}
	unit := in.Series.Unit(models.ParamTemperature)
	return fmt.Sprintf("Temperature analysis:\n- Current: %s\n- Average: %s\n- Range: %s to %s\n\nThe location shows %s temperatures overall.",
		withUnit(st.Latest, unit), withUnit(st.Mean, unit), withUnit(st.Min, unit), withUnit(st.Max, unit),
		e.TempPeriod(st.Mean)), true
}

var precipVerdict = map[PrecipPeriod]string{
	PeriodDry:         "relatively dry",
	PeriodModerateWet: "moderately wet",
	PeriodWet:         "quite wet",
}

func (e *Engine) answerPrecipitation(in ChatInput) (string, bool) {
	values := in.Series.Present(models.ParamPrecipitation)
	st := StatsOf(values)
	if !st.OK() {
		return "", false
	}
	rainy := 0
	for _, v := range values {
		if e.IsRainy(v) {
			rainy++
		}
	}
	return fmt.Sprintf("Precipitation analysis:\n- Latest: %.2fmm\n- Total: %s\n- Average: %.2fmm\n- Rainy %ss: %s\n\nThis location is %s.",
		st.Latest, withUnit(st.Sum, "mm"), st.Mean, periodWord(in.Series.Temporal), humanize.Comma(int64(rainy)),
		precipVerdict[e.PrecipPeriod(st.Sum)]), true
}

func (e *Engine) answerForecast(in ChatInput) (string, bool) {
	var lines []string
	for _, p := range models.AllParameters {
		fp, ok := in.Forecasts.Next(p)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%d%% confidence)",
			p.Label(), withUnit(fp.Value, in.Series.Unit(p)), ConfidencePercent(fp.Confidence)))
	}
	if len(lines) == 0 {
		return "No forecast data is available. The forecast model needs more data to make predictions.", true
	}
	return "Forecast summary:\n" + strings.Join(lines, "\n"), true
}

var windVerdict = map[WindPeriod]string{
	PeriodCalm:        "calm",
	PeriodLightBreeze: "light",
	PeriodBreezy:      "breezy",
}

func (e *Engine) answerWind(in ChatInput) (string, bool) {
	st := StatsOf(in.Series.Present(models.ParamWind))
	if !st.OK() {
		return "", false
	}
	unit := in.Series.Unit(models.ParamWind)
	return fmt.Sprintf("Wind analysis:\n- Current: %s\n- Average: %s\n- Maximum: %s\n\nWind conditions are %s.",
		withUnit(st.Latest, unit), withUnit(st.Mean, unit), withUnit(st.Max, unit),
		windVerdict[e.WindPeriod(st.Mean)]), true
}

func (e *Engine) answerHumidity(in ChatInput) (string, bool) {
	st := StatsOf(in.Series.Present(models.ParamHumidity))
	if !st.OK() {
		return "", false
	}
	unit := in.Series.Unit(models.ParamHumidity)
	return fmt.Sprintf("Humidity analysis:\n- Current: %s\n- Average: %s\n- Range: %s to %s\n\nThe air has been %s overall.",
		withUnit(st.Latest, unit), withUnit(st.Mean, unit), withUnit(st.Min, unit), withUnit(st.Max, unit),
		e.HumidityPeriod(st.Mean)), true
}

func (e *Engine) answerTrend(in ChatInput) (string, bool) {
	t := e.Trend(in.Series.Present(models.ParamTemperature))
	if !t.OK() {
		return "", false
	}
	text := fmt.Sprintf("Trend analysis:\nTemperature is %s over the data period (%s change).",
		t.Direction, withUnit(t.Magnitude, in.Series.Unit(models.ParamTemperature)))
	if in.Insight != "" {
		return text + "\n\nInsights: " + truncate(in.Insight, 200), true
	}
	return text + "\n\nRun the full analysis for more detailed insights.", true
}

func (e *Engine) answerOverview(in ChatInput) (string, bool) {
	s := in.Series
	forecasts := "not available"
	if len(in.Forecasts) > 0 {
		forecasts = "available"
	}
	return fmt.Sprintf("Data overview:\n- Location: %s\n- Parameters: %d weather variables\n- Data points: %s %ss\n- Forecasts: %s\n\nAsk me about temperature, rain, wind, or forecasts!",
		s.Location.DisplayName(), len(describedParameters(s)), humanize.Comma(int64(len(s.Observations))),
		periodWord(s.Temporal), forecasts), true
}

func helpText(question string) string {
	return fmt.Sprintf("I understand you're asking about %q. I can help with:\n"+
		"- Outdoor activity advice (\"Should I go outside?\")\n"+
		"- Temperature analysis\n"+
		"- Precipitation data\n"+
		"- Wind and humidity conditions\n"+
		"- Weather forecasts\n"+
		"- Trend analysis", strings.TrimSpace(question))
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
