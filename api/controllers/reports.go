package controllers

import (
	"net/http"
	"time"

	"github.com/emiliomarin/wholesale-backend/api/responses"
	"github.com/emiliomarin/wholesale-backend/api/validators"
	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/internal/reports"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
	"github.com/emiliomarin/wholesale-backend/pkg/pagination"
	"github.com/emiliomarin/wholesale-backend/pkg/types"
)

// ProfitReportByOrder returns the immutable profit snapshot of one order.
func ProfitReportByOrder(svc *reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := svc.GetByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// ProfitSummary aggregates profit reports for one fiscal month.
func ProfitSummary(svc *reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now()

		year, err := validators.ParseQueryInt(r, "year", now.Year(), 2000, 2200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		month, err := validators.ParseQueryInt(r, "month", int(now.Month()), 1, 12)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.MonthlySummary(ctx, year, month)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// LedgerEntries lists the append-only ledger for one fiscal month.
func LedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now()

		year, err := validators.ParseQueryInt(r, "year", now.Year(), 2000, 2200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		month, err := validators.ParseQueryInt(r, "month", int(now.Month()), 1, 12)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entries, err := svc.ListByFiscalPeriod(ctx, year, month, limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteList(w, map[string]any{"entries": entries}, types.ListMeta{
			Limit:  limit,
			Offset: offset,
			Count:  len(entries),
		})
	}
}
