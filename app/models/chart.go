package models

import (
	"math"

	"github.com/pkg/errors"
)

// Dataset is one line of a chart. Values are fixed-point strings.
type Dataset struct {
	Label           string   `json:"label"`
	Data            []string `json:"data"`
	BackgroundColor string   `json:"backgroundColor"`
	BorderColor     string   `json:"borderColor"`
	BorderWidth     int      `json:"borderWidth"`
}

// Chart is the labeled dataset accepted by a chart renderer.
type Chart struct {
	Type        string     `json:"type"`
	Labels      []string   `json:"labels"`
	Datasets    []*Dataset `json:"datasets"`
	BeginAtZero bool       `json:"beginAtZero"`
}

// NewProjection holds the inputs of the latte factor calculator.
type NewProjection struct {
	UnitPrice     float64 `json:"unit_price"`
	UnitsPerWeek  int64   `json:"units_per_week"`
	WeeksPerYear  int64   `json:"weeks_per_year"`
	YearsInvested int64   `json:"years_invested"`
}

func (p *NewProjection) Validate() error {
	if math.IsNaN(p.UnitPrice) || math.IsInf(p.UnitPrice, 0) {
		return errors.New("unit price must be a finite number")
	}

	if p.UnitPrice < 0 {
		return errors.New("unit price cannot be negative")
	}

	if p.UnitsPerWeek < 0 || p.WeeksPerYear < 0 || p.YearsInvested < 0 {
		return errors.New("units per week, weeks per year and years invested cannot be negative")
	}

	return nil
}

// Projection is the latte factor result.
type Projection struct {
	YearlyExpense string `json:"yearly_expense"`
	Total         string `json:"total"`
	Chart         *Chart `json:"chart"`
}
