// Package projection computes the latte factor: what a small recurring
// expense adds up to over the years.
package projection

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"atm/app/models"
	"atm/pkg/log"
	"atm/pkg/response"
)

const (
	chartYears = 5
	places     = 2

	datasetLabel    = "Latte Factor"
	backgroundColor = "rgba(75, 192, 192, 0.2)"
	borderColor     = "rgba(75, 192, 192, 1)"
	borderWidth     = 1
)

// Compute returns price * units per week * weeks per year * years, and the
// running total of years 1 to 5 as a line chart.
func Compute(in *models.NewProjection) (*models.Projection, error) {
	if err := in.Validate(); err != nil {
		return nil, response.NewError(response.CodeBadRequest, err.Error())
	}

	yearly := decimal.NewFromFloat(in.UnitPrice).
		Mul(decimal.NewFromInt(in.UnitsPerWeek)).
		Mul(decimal.NewFromInt(in.WeeksPerYear))

	chart := &models.Chart{
		Type:        "line",
		BeginAtZero: true,
		Datasets: []*models.Dataset{{
			Label:           datasetLabel,
			BackgroundColor: backgroundColor,
			BorderColor:     borderColor,
			BorderWidth:     borderWidth,
		}},
	}
	for year := int64(1); year <= chartYears; year++ {
		chart.Labels = append(chart.Labels, fmt.Sprintf("Year %d", year))
		chart.Datasets[0].Data = append(chart.Datasets[0].Data, YearValue(yearly, year))
	}

	return &models.Projection{
		YearlyExpense: yearly.StringFixed(places),
		Total:         YearValue(yearly, in.YearsInvested),
		Chart:         chart,
	}, nil
}

// YearValue is the amount spent after the given number of years.
func YearValue(yearly decimal.Decimal, year int64) string {
	return yearly.Mul(decimal.NewFromInt(year)).StringFixed(places)
}

// Manager computes projections and hands their charts to the sink.
type Manager struct {
	Sink Sink
}

func (m *Manager) Project(ctx context.Context, in *models.NewProjection) (*models.Projection, error) {
	out, err := Compute(in)
	if err != nil {
		return nil, err
	}

	log.AddFields(ctx, "yearly", out.YearlyExpense, "total", out.Total)
	if m.Sink != nil {
		m.Sink.Render(ctx, out.Chart)
	}
	return out, nil
}
