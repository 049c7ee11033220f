package reports

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthlySummary aggregates the profit reports of a fiscal period.
type MonthlySummary struct {
	FiscalYear   int             `json:"fiscal_year"`
	FiscalMonth  int             `json:"fiscal_month"`
	OrderCount   int             `json:"order_count"`
	Revenue      decimal.Decimal `json:"revenue"`
	CostOfGoods  decimal.Decimal `json:"cost_of_goods"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// Service is the read side for profit reporting.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports: repository is required")
	}
	return &Service{repo: repo}, nil
}

// GetByOrder returns the profit report for a fulfilled order.
func (s *Service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.ProfitReport, error) {
	report, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "profit report not found").
				WithDetails(map[string]any{"order_id": orderID.String()})
		}
		return nil, err
	}
	return report, nil
}

// MonthlySummary aggregates all reports stamped with the given fiscal period.
// Margin is recomputed from the summed totals rather than averaged.
func (s *Service) MonthlySummary(ctx context.Context, year, month int) (*MonthlySummary, error) {
	if month < 1 || month > 12 {
		return nil, apperrors.New(apperrors.CodeValidation, "fiscal month out of range").
			WithDetails(map[string]any{"fiscal_month": month})
	}
	list, err := s.repo.ListByFiscalPeriod(ctx, year, month)
	if err != nil {
		return nil, err
	}

	summary := &MonthlySummary{FiscalYear: year, FiscalMonth: month, OrderCount: len(list)}
	for _, report := range list {
		summary.Revenue = summary.Revenue.Add(report.Revenue)
		summary.CostOfGoods = summary.CostOfGoods.Add(report.CostOfGoods)
		summary.GrossProfit = summary.GrossProfit.Add(report.GrossProfit)
		summary.NetProfit = summary.NetProfit.Add(report.NetProfit)
	}
	if summary.Revenue.IsPositive() {
		summary.ProfitMargin = summary.NetProfit.
			Div(summary.Revenue).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	return summary, nil
}
