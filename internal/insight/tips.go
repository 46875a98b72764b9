package insight

import (
	"fmt"

	"github.com/lox/powerweather/internal/models"
)

type Tip struct {
	Parameter models.Parameter `json:"parameter"`
	Latest    float64          `json:"latest"`
	Mean      float64          `json:"mean"`
	Direction string           `json:"direction"`
	Text      string           `json:"text"`
}

// Tips compares each parameter's latest reading with its period mean.
func (e *Engine) Tips(s models.Series) []Tip {
	var tips []Tip
	for _, p := range describedParameters(s) {
		st := StatsOf(s.Present(p))
		if !st.OK() {
			continue
		}
		dir := "Stable"
		switch {
		case st.Latest > st.Mean:
			dir = "Rising"
		case st.Latest < st.Mean:
			dir = "Falling"
		}
		unit := s.Unit(p)
		tips = append(tips, Tip{
			Parameter: p,
			Latest:    st.Latest,
			Mean:      st.Mean,
			Direction: dir,
			Text: fmt.Sprintf("%s: %s latest vs %s average (%s)",
				p.Label(), withUnit(st.Latest, unit), withUnit(st.Mean, unit), dir),
		})
	}
	return tips
}
