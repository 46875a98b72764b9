package insight

import (
	"fmt"
	"math"
	"strings"

	"github.com/lox/powerweather/internal/models"
)

// Profile is the per-location summary used to compare two places.
// Percentages are over present readings and are zero when none exist.
type Profile struct {
	Name         string  `json:"name"`
	AvgTemp      float64 `json:"avg_temp"`
	HotDaysPct   float64 `json:"hot_days_pct"`
	AvgPrecip    float64 `json:"avg_precip"`
	RainyDaysPct float64 `json:"rainy_days_pct"`
	AvgWind      float64 `json:"avg_wind"`
	HasTemp      bool    `json:"has_temp"`
	HasPrecip    bool    `json:"has_precip"`
}

func (e *Engine) Profile(s models.Series) Profile {
	p := Profile{Name: s.Location.DisplayName()}

	temps := s.Present(models.ParamTemperature)
	if st := StatsOf(temps); st.OK() {
		p.HasTemp = true
		p.AvgTemp = st.Mean
		hot := 0
		for _, v := range temps {
			if e.TempBand(v) == TempHot {
				hot++
			}
		}
		p.HotDaysPct = pct(hot, len(temps))
	}

	precip := s.Present(models.ParamPrecipitation)
	if st := StatsOf(precip); st.OK() {
		p.HasPrecip = true
		p.AvgPrecip = st.Mean
		rainy := 0
		for _, v := range precip {
			if e.IsRainy(v) {
				rainy++
			}
		}
		p.RainyDaysPct = pct(rainy, len(precip))
	}

	if st := StatsOf(s.Present(models.ParamWind)); st.OK() {
		p.AvgWind = st.Mean
	}
	return p
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

type Verdict struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

func (v Verdict) String() string {
	return fmt.Sprintf("WINNER: %s\n\nREASON: %s", v.Winner, v.Reason)
}

type purpose struct {
	keywords []string
	// better reports whether a is preferable to b; ties keep the first location.
	better func(e *Engine, a, b Profile) bool
	reason string
}

var purposes = []purpose{
	{
		keywords: []string{"vacation", "holiday", "tourism"},
		better: func(e *Engine, a, b Profile) bool {
			ca, cb := e.vacationFriendly(a), e.vacationFriendly(b)
			if ca != cb {
				return ca
			}
			if a.RainyDaysPct != b.RainyDaysPct {
				return a.RainyDaysPct < b.RainyDaysPct
			}
			return a.HotDaysPct <= b.HotDaysPct
		},
		reason: "%s offers better vacation weather with comfortable temperatures and fewer rainy days, ideal for outdoor sightseeing and activities.",
	},
	{
		keywords: []string{"work", "job", "business"},
		better: func(e *Engine, a, b Profile) bool {
			return a.AvgTemp <= b.AvgTemp
		},
		reason: "%s has more comfortable temperatures that enhance productivity and reduce heat-related stress during work hours.",
	},
	{
		keywords: []string{"health", "medical"},
		better: func(e *Engine, a, b Profile) bool {
			ma, mb := e.healthFriendly(a), e.healthFriendly(b)
			if ma != mb {
				return ma
			}
			return math.Abs(a.AvgTemp-healthIdeal) <= math.Abs(b.AvgTemp-healthIdeal)
		},
		reason: "%s offers moderate temperatures that are generally better for health and well-being, avoiding extreme heat or cold.",
	},
}

var defaultPurpose = purpose{
	better: func(e *Engine, a, b Profile) bool {
		return a.HotDaysPct <= b.HotDaysPct
	},
	reason: "%s has fewer extremely hot days, providing more comfortable overall weather conditions.",
}

const healthIdeal = 21.5

// vacationFriendly means a pleasant average with rain on under 30% of days.
func (e *Engine) vacationFriendly(p Profile) bool {
	return p.HasTemp && e.TempBand(p.AvgTemp) == TempPleasant && p.RainyDaysPct < 30
}

// healthFriendly means an average that is neither cool nor hot.
func (e *Engine) healthFriendly(p Profile) bool {
	if !p.HasTemp {
		return false
	}
	band := e.TempBand(p.AvgTemp)
	return e.TempPeriod(p.AvgTemp) != PeriodCool && band != TempHot
}

// Recommend picks the better location for the stated purpose. Both profiles
// go through the same test so swapping the arguments never changes a strict
// winner.
func (e *Engine) Recommend(a, b Profile, purposeText string) Verdict {
	q := strings.ToLower(purposeText)
	chosen := defaultPurpose
	for _, p := range purposes {
		if containsAny(q, p.keywords) {
			chosen = p
			break
		}
	}
	winner := b
	if chosen.better(e, a, b) {
		winner = a
	}
	return Verdict{Winner: winner.Name, Reason: fmt.Sprintf(chosen.reason, winner.Name)}
}

// Headline states which location is cooler by share of hot days.
func Headline(a, b Profile) string {
	if a.HotDaysPct <= b.HotDaysPct {
		return fmt.Sprintf("%s is cooler with %.0f%% hot days vs %.0f%%", a.Name, a.HotDaysPct, b.HotDaysPct)
	}
	return fmt.Sprintf("%s is cooler with %.0f%% hot days vs %.0f%%", b.Name, b.HotDaysPct, a.HotDaysPct)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
