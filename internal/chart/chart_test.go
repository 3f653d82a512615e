package chart

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

func month(name string, income, expense int64) model.MonthlyAggregate {
	return model.MonthlyAggregate{Month: name, Income: decimal.NewFromInt(income), Expense: decimal.NewFromInt(expense)}
}

func TestRenderProducesPNG(t *testing.T) {
	r := NewRenderer()
	out, err := r.RenderIncomeExpenseChart([]model.MonthlyAggregate{
		month("2024-01", 5000, 3200),
		month("2024-02", 5200, 6100),
		month("2024-03", 0, 150),
	})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 900, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())
}

func TestRenderTallestBarReachesTop(t *testing.T) {
	r := &Renderer{Width: 300, Height: 200}
	out, err := r.RenderIncomeExpenseChart([]model.MonthlyAggregate{month("2024-01", 100, 0)})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	slot := 300 - marginLeft - marginRight
	barWidth := slot * 2 / 5
	x := marginLeft + (slot-2*barWidth)/2 + barWidth/2
	assert.Equal(t, incomeColor, toRGBA(img.At(x, marginTop+1)))
	assert.Equal(t, background, toRGBA(img.At(x+barWidth, marginTop+1)), "empty expense bar")
}

func TestRenderWithoutDataFails(t *testing.T) {
	r := NewRenderer()

	_, err := r.RenderIncomeExpenseChart(nil)
	assert.ErrorIs(t, err, model.ErrInsufficientData)

	_, err = r.RenderIncomeExpenseChart([]model.MonthlyAggregate{month("2024-01", 0, 0)})
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func toRGBA(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
