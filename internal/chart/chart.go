// Package chart draws the monthly income/expense bar chart as a PNG.
package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/shopspring/decimal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

var (
	background   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	axisColor    = color.RGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
	gridColor    = color.RGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}
	incomeColor  = color.RGBA{R: 0x36, G: 0xa2, B: 0xeb, A: 0xff}
	expenseColor = color.RGBA{R: 0xff, G: 0x63, B: 0x84, A: 0xff}
)

const (
	marginLeft   = 80
	marginRight  = 20
	marginTop    = 50
	marginBottom = 50
	gridLines    = 5
)

type Renderer struct {
	Width  int
	Height int
}

func NewRenderer() *Renderer {
	return &Renderer{Width: 900, Height: 500}
}

// RenderIncomeExpenseChart draws one income and one expense bar per month,
// in the order given. It fails with ErrInsufficientData when there is
// nothing to draw.
func (r *Renderer) RenderIncomeExpenseChart(aggregates []model.MonthlyAggregate) ([]byte, error) {
	peak := maxValue(aggregates)
	if len(aggregates) == 0 || !peak.IsPositive() {
		return nil, model.ErrInsufficientData
	}

	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, r.Width-marginRight, r.Height-marginBottom)
	scaleMax, _ := peak.Float64()

	for i := 0; i <= gridLines; i++ {
		y := plot.Max.Y - plot.Dy()*i/gridLines
		fill(img, image.Rect(plot.Min.X, y, plot.Max.X, y+1), gridColor)
		label := peak.Mul(decimal.NewFromInt(int64(i))).Div(decimal.NewFromInt(gridLines)).Round(0).String()
		text(img, label, 8, y+4, axisColor)
	}

	slot := plot.Dx() / len(aggregates)
	barWidth := slot * 2 / 5
	for i, agg := range aggregates {
		x := plot.Min.X + i*slot + (slot-2*barWidth)/2
		bar(img, plot, x, barWidth, agg.Income, scaleMax, incomeColor)
		bar(img, plot, x+barWidth, barWidth, agg.Expense, scaleMax, expenseColor)
		text(img, agg.Month, plot.Min.X+i*slot+slot/2-len(agg.Month)*7/2, plot.Max.Y+20, axisColor)
	}

	fill(img, image.Rect(plot.Min.X, plot.Min.Y, plot.Min.X+1, plot.Max.Y+1), axisColor)
	fill(img, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisColor)

	text(img, "Income and expense by month", marginLeft, 22, axisColor)
	legend(img, r.Width-220, 22, "income", incomeColor)
	legend(img, r.Width-120, 22, "expense", expenseColor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func maxValue(aggregates []model.MonthlyAggregate) decimal.Decimal {
	peak := decimal.Zero
	for _, a := range aggregates {
		peak = decimal.Max(peak, a.Income, a.Expense)
	}
	return peak
}

func bar(img *image.RGBA, plot image.Rectangle, x, width int, value decimal.Decimal, scaleMax float64, c color.Color) {
	v, _ := value.Float64()
	if v <= 0 {
		return
	}
	height := int(float64(plot.Dy()) * v / scaleMax)
	if height < 1 {
		height = 1
	}
	fill(img, image.Rect(x, plot.Max.Y-height, x+width, plot.Max.Y), c)
}

func legend(img *image.RGBA, x, y int, label string, c color.Color) {
	fill(img, image.Rect(x, y-10, x+12, y+2), c)
	text(img, label, x+18, y, axisColor)
}

func fill(img *image.RGBA, rect image.Rectangle, c color.Color) {
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

func text(img *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
