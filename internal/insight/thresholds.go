package insight

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Thresholds is the single set of band boundaries shared by every caller of
// the engine. Lower bounds are inclusive.
type Thresholds struct {
	TrendWindow  int     `yaml:"trend_window" validate:"gte=1"`
	TrendEpsilon float64 `yaml:"trend_epsilon" validate:"gte=0"`

	// Latest-reading bands.
	CoolFrom      float64 `yaml:"cool_from"`
	PleasantFrom  float64 `yaml:"pleasant_from" validate:"gtfield=CoolFrom"`
	HotFrom       float64 `yaml:"hot_from" validate:"gtfield=PleasantFrom"`
	LightRainFrom float64 `yaml:"light_rain_from" validate:"gte=0"`
	HeavyRainFrom float64 `yaml:"heavy_rain_from" validate:"gtfield=LightRainFrom"`
	BreezyFrom    float64 `yaml:"breezy_from" validate:"gte=0"`
	VeryWindyFrom float64 `yaml:"very_windy_from" validate:"gtfield=BreezyFrom"`

	// Outdoor recommendation.
	ExtremeColdBelow float64 `yaml:"extreme_cold_below"`
	ExtremeHotAbove  float64 `yaml:"extreme_hot_above" validate:"gtfield=ExtremeColdBelow"`
	CautionWindFrom  float64 `yaml:"caution_wind_from" validate:"gte=0"`

	// Whole-period bands used by the narrative, chat and comparison.
	WarmPeriodAbove     float64 `yaml:"warm_period_above" validate:"gtfield=ModeratePeriodAbove"`
	ModeratePeriodAbove float64 `yaml:"moderate_period_above"`
	DryTotalBelow       float64 `yaml:"dry_total_below" validate:"gte=0"`
	WetTotalFrom        float64 `yaml:"wet_total_from" validate:"gtfield=DryTotalBelow"`
	CalmWindBelow       float64 `yaml:"calm_wind_below" validate:"gte=0"`
	LightBreezeBelow    float64 `yaml:"light_breeze_below" validate:"gtfield=CalmWindBelow"`
	PeakWindAbove       float64 `yaml:"peak_wind_above" validate:"gte=0"`
	HeavyDayAbove       float64 `yaml:"heavy_day_above" validate:"gte=0"`
	DryAirBelow         float64 `yaml:"dry_air_below" validate:"gte=0,lte=100"`
	HumidAirFrom        float64 `yaml:"humid_air_from" validate:"gtfield=DryAirBelow,lte=100"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TrendWindow:  7,
		TrendEpsilon: 0,

		CoolFrom:      10,
		PleasantFrom:  20,
		HotFrom:       30,
		LightRainFrom: 0.1,
		HeavyRainFrom: 5,
		BreezyFrom:    5,
		VeryWindyFrom: 10,

		ExtremeColdBelow: 5,
		ExtremeHotAbove:  35,
		CautionWindFrom:  15,

		WarmPeriodAbove:     25,
		ModeratePeriodAbove: 15,
		DryTotalBelow:       10,
		WetTotalFrom:        50,
		CalmWindBelow:       2,
		LightBreezeBelow:    5,
		PeakWindAbove:       10,
		HeavyDayAbove:       20,
		DryAirBelow:         30,
		HumidAirFrom:        60,
	}
}

var validate = validator.New()

func (t Thresholds) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	return nil
}

// LoadThresholds reads a YAML file over the defaults. Keys missing from the
// file keep their default value. An empty path returns the defaults.
func LoadThresholds(path string) (Thresholds, error) {
	th := DefaultThresholds()
	if path == "" {
		return th, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return th, fmt.Errorf("read thresholds: %w", err)
	}
	return ParseThresholds(data)
}

func ParseThresholds(data []byte) (Thresholds, error) {
	th := DefaultThresholds()
	if err := yaml.Unmarshal(data, &th); err != nil {
		return th, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := th.Validate(); err != nil {
		return th, err
	}
	return th, nil
}
