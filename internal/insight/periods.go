package insight

// Period bands classify a whole series rather than a single reading.

type TempPeriod string

const (
	PeriodWarm     TempPeriod = "warm"
	PeriodModerate TempPeriod = "moderate"
	PeriodCool     TempPeriod = "cool"
)

type PrecipPeriod string

const (
	PeriodDry         PrecipPeriod = "dry"
	PeriodModerateWet PrecipPeriod = "moderate"
	PeriodWet         PrecipPeriod = "wet"
)

type WindPeriod string

const (
	PeriodCalm        WindPeriod = "calm"
	PeriodLightBreeze WindPeriod = "light breeze"
	PeriodBreezy      WindPeriod = "breezy"
)

type HumidityPeriod string

const (
	PeriodDryAir      HumidityPeriod = "dry"
	PeriodComfortable HumidityPeriod = "comfortable"
	PeriodHumid       HumidityPeriod = "humid"
)

// TempPeriod classifies a period by its mean temperature.
func (e *Engine) TempPeriod(mean float64) TempPeriod {
	switch {
	case mean > e.th.WarmPeriodAbove:
		return PeriodWarm
	case mean > e.th.ModeratePeriodAbove:
		return PeriodModerate
	default:
		return PeriodCool
	}
}

// PrecipPeriod classifies a period by its total precipitation.
func (e *Engine) PrecipPeriod(total float64) PrecipPeriod {
	switch {
	case total < e.th.DryTotalBelow:
		return PeriodDry
	case total < e.th.WetTotalFrom:
		return PeriodModerateWet
	default:
		return PeriodWet
	}
}

func (e *Engine) WindPeriod(mean float64) WindPeriod {
	switch {
	case mean < e.th.CalmWindBelow:
		return PeriodCalm
	case mean < e.th.LightBreezeBelow:
		return PeriodLightBreeze
	default:
		return PeriodBreezy
	}
}

func (e *Engine) HumidityPeriod(mean float64) HumidityPeriod {
	switch {
	case mean < e.th.DryAirBelow:
		return PeriodDryAir
	case mean < e.th.HumidAirFrom:
		return PeriodComfortable
	default:
		return PeriodHumid
	}
}

// IsRainy reports whether a day's precipitation counts as measurable rain.
func (e *Engine) IsRainy(v float64) bool {
	return e.PrecipBand(v) != PrecipNone
}

type overallKey struct {
	temp   TempPeriod
	precip PrecipPeriod
}

const defaultOverall = "typical seasonal weather patterns for this geographic region."

var overallTable = map[overallKey]string{
	{PeriodWarm, PeriodDry}:             "warm and dry conditions, ideal for outdoor activities.",
	{PeriodWarm, PeriodModerateWet}:     "warm conditions with occasional rainfall.",
	{PeriodWarm, PeriodWet}:             "warm and humid conditions with significant rainfall.",
	{PeriodModerate, PeriodDry}:         "mild and mostly dry conditions.",
	{PeriodModerate, PeriodModerateWet}: defaultOverall,
	{PeriodModerate, PeriodWet}:         "mild conditions with frequent rainfall.",
	{PeriodCool, PeriodDry}:             "cool and dry conditions.",
	{PeriodCool, PeriodModerateWet}:     "cooler weather conditions with some rainfall.",
	{PeriodCool, PeriodWet}:             "cool and wet weather patterns.",
}

// Overall returns the composite description for a period. Either band may be
// empty when its parameter was not requested or had no readings.
func Overall(temp TempPeriod, precip PrecipPeriod) string {
	if s, ok := overallTable[overallKey{temp, precip}]; ok {
		return s
	}
	return defaultOverall
}
