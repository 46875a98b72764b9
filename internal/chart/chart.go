// Package chart renders a series and its forecast as a PNG with one panel per
// parameter.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
)

const (
	Width       = 800
	PanelHeight = 220

	marginLeft   = 56
	marginRight  = 16
	marginTop    = 28
	marginBottom = 24
	dashLength   = 6
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	axis       = color.RGBA{0x99, 0x99, 0x99, 0xff}
	textColor  = color.RGBA{0x22, 0x22, 0x22, 0xff}
	forecastC  = color.RGBA{0xe0, 0x6c, 0x00, 0xff}
)

var palette = map[models.Parameter]color.RGBA{
	models.ParamTemperature:   {0xd6, 0x27, 0x28, 0xff},
	models.ParamPrecipitation: {0x1f, 0x77, 0xb4, 0xff},
	models.ParamWind:          {0x2c, 0xa0, 0x2c, 0xff},
	models.ParamHumidity:      {0x94, 0x67, 0xbd, 0xff},
	models.ParamSnowDepth:     {0x17, 0xbe, 0xcf, 0xff},
}

// Render draws params (all series parameters when empty). Forecast points are
// drawn dashed to the right of a separator at the last observation.
func Render(s models.Series, f models.Forecasts, params []models.Parameter) ([]byte, error) {
	if s.Empty() {
		return nil, insight.ErrInsufficientData
	}
	if len(params) == 0 {
		params = s.Parameters
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: no parameters", insight.ErrInvalidInput)
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, PanelHeight*len(params)))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i, p := range params {
		panel := image.Rect(0, i*PanelHeight, Width, (i+1)*PanelHeight)
		drawPanel(img, panel, s, p, f[p])
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawPanel(img *image.RGBA, panel image.Rectangle, s models.Series, p models.Parameter, fc []models.ForecastPoint) {
	plot := image.Rect(panel.Min.X+marginLeft, panel.Min.Y+marginTop, panel.Max.X-marginRight, panel.Max.Y-marginBottom)
	drawText(img, title(p, s.Unit(p)), panel.Min.X+marginLeft, panel.Min.Y+18, textColor)

	col := s.Column(p)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range col {
		if v.Valid {
			lo, hi = math.Min(lo, v.Float64), math.Max(hi, v.Float64)
		}
	}
	for _, fp := range fc {
		lo, hi = math.Min(lo, fp.Value), math.Max(hi, fp.Value)
	}

	hline(img, plot.Min.X, plot.Max.X, plot.Max.Y, axis)
	vline(img, plot.Min.X, plot.Min.Y, plot.Max.Y, axis, false)

	if math.IsInf(lo, 1) {
		drawText(img, "no data", plot.Min.X+8, plot.Min.Y+plot.Dy()/2, axis)
		return
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	drawText(img, fmt.Sprintf("%.1f", hi), panel.Min.X+4, plot.Min.Y+10, textColor)
	drawText(img, fmt.Sprintf("%.1f", lo), panel.Min.X+4, plot.Max.Y, textColor)

	total := len(col) + len(fc)
	x := func(i int) int {
		if total <= 1 {
			return plot.Min.X + plot.Dx()/2
		}
		return plot.Min.X + i*plot.Dx()/(total-1)
	}
	y := func(v float64) int {
		return plot.Max.Y - int(math.Round((v-lo)/(hi-lo)*float64(plot.Dy())))
	}

	first, last := s.Span()
	drawText(img, first.Format(s.Temporal.DateLayout()), plot.Min.X, panel.Max.Y-6, textColor)
	drawText(img, last.Format(s.Temporal.DateLayout()), x(len(col)-1)-48, panel.Max.Y-6, textColor)

	c := palette[p]
	if c.A == 0 {
		c = textColor
	}
	prev := -1
	for i, v := range col {
		if !v.Valid {
			prev = -1
			continue
		}
		if prev >= 0 {
			line(img, x(prev), y(col[prev].Float64), x(i), y(v.Float64), c, false)
		} else {
			img.Set(x(i), y(v.Float64), c)
		}
		prev = i
	}

	if len(fc) == 0 {
		return
	}
	sep := x(len(col) - 1)
	vline(img, sep, plot.Min.Y, plot.Max.Y, axis, true)
	px, py := -1, 0
	if prev == len(col)-1 {
		px, py = x(prev), y(col[prev].Float64)
	}
	for j, fp := range fc {
		fx, fy := x(len(col)+j), y(fp.Value)
		if px >= 0 {
			line(img, px, py, fx, fy, forecastC, true)
		}
		px, py = fx, fy
	}
}

// title keeps labels within the ASCII range basicfont can draw.
func title(p models.Parameter, unit string) string {
	unit = strings.ReplaceAll(unit, "°", "deg ")
	if unit == "" {
		return p.Label()
	}
	return fmt.Sprintf("%s (%s)", p.Label(), strings.TrimSpace(unit))
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func hline(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.Color, dashed bool) {
	for y := y0; y <= y1; y++ {
		if dashed && (y/dashLength)%2 == 1 {
			continue
		}
		img.Set(x, y, c)
	}
}

// line draws with Bresenham's algorithm. Dashed lines skip alternate runs of
// dashLength pixels.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color, dashed bool) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for n := 0; ; n++ {
		if !dashed || (n/dashLength)%2 == 0 {
			img.Set(x0, y0, c)
			img.Set(x0, y0+1, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
