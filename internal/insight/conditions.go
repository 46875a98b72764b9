package insight

import "github.com/lox/powerweather/internal/models"

// TempBand classifies a single temperature reading.
type TempBand string

const (
	TempCold     TempBand = "cold"
	TempCool     TempBand = "cool"
	TempPleasant TempBand = "pleasant"
	TempHot      TempBand = "hot"
)

type PrecipBand string

const (
	PrecipNone  PrecipBand = "none"
	PrecipLight PrecipBand = "light"
	PrecipHeavy PrecipBand = "heavy"
)

type WindBand string

const (
	WindCalm      WindBand = "calm"
	WindBreezy    WindBand = "breezy"
	WindVeryWindy WindBand = "very windy"
)

// Recommendation is the single outdoor advice chosen for the latest reading.
type Recommendation string

const (
	StayIndoors      Recommendation = "stay indoors"
	LimitOutdoorTime Recommendation = "limit outdoor time"
	BeCautious       Recommendation = "be cautious"
	GoodConditions   Recommendation = "good conditions"
)

func (e *Engine) TempBand(v float64) TempBand {
	switch {
	case v >= e.th.HotFrom:
		return TempHot
	case v >= e.th.PleasantFrom:
		return TempPleasant
	case v >= e.th.CoolFrom:
		return TempCool
	default:
		return TempCold
	}
}

func (e *Engine) PrecipBand(v float64) PrecipBand {
	switch {
	case v >= e.th.HeavyRainFrom:
		return PrecipHeavy
	case v >= e.th.LightRainFrom:
		return PrecipLight
	default:
		return PrecipNone
	}
}

func (e *Engine) WindBand(v float64) WindBand {
	switch {
	case v >= e.th.VeryWindyFrom:
		return WindVeryWindy
	case v >= e.th.BreezyFrom:
		return WindBreezy
	default:
		return WindCalm
	}
}

// Conditions holds the bands for one observation. A band is empty when the
// reading was absent.
type Conditions struct {
	Observation    models.Observation
	Temperature    TempBand
	Precipitation  PrecipBand
	Wind           WindBand
	Recommendation Recommendation
}

// Any reports whether at least one band could be classified.
func (c Conditions) Any() bool {
	return c.Temperature != "" || c.Precipitation != "" || c.Wind != ""
}

// Conditions classifies the observation and picks the outdoor recommendation.
// Rules are checked in a fixed order and the first match wins: heavy rain,
// extreme temperature, strong wind. A missing reading never matches a rule.
func (e *Engine) Conditions(o models.Observation) Conditions {
	c := Conditions{Observation: o, Recommendation: GoodConditions}

	temp := o.Value(models.ParamTemperature)
	precip := o.Value(models.ParamPrecipitation)
	wind := o.Value(models.ParamWind)

	if temp.Valid {
		c.Temperature = e.TempBand(temp.Float64)
	}
	if precip.Valid {
		c.Precipitation = e.PrecipBand(precip.Float64)
	}
	if wind.Valid {
		c.Wind = e.WindBand(wind.Float64)
	}

	switch {
	case c.Precipitation == PrecipHeavy:
		c.Recommendation = StayIndoors
	case temp.Valid && (temp.Float64 < e.th.ExtremeColdBelow || temp.Float64 > e.th.ExtremeHotAbove):
		c.Recommendation = LimitOutdoorTime
	case wind.Valid && wind.Float64 >= e.th.CautionWindFrom:
		c.Recommendation = BeCautious
	}
	return c
}
