package services

import (
	"context"
	"errors"

	"raffle-admin/internal/models"
	"raffle-admin/internal/raffle"

	"github.com/google/logger"
	"github.com/google/uuid"
)

// ImportEntries replays pre-parsed rows through Submit one at a time, so an
// import obeys the same validation, dedup and capacity rules as live entries.
// Once the event stops accepting entries the remaining rows are skipped.
func (s *EventService) ImportEntries(ctx context.Context, id uuid.UUID, rows []models.ImportRow) (*models.ImportReport, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &models.ImportReport{Rows: make([]models.ImportRowResult, 0, len(rows))}
	var stop error
	for i, row := range rows {
		res := models.ImportRowResult{Row: i + 1}
		if stop == nil && ctx.Err() != nil {
			stop = ctx.Err()
		}
		if stop != nil {
			res.Status = models.ImportSkipped
			res.Code = raffle.Code(stop)
			if errors.Is(stop, context.Canceled) || errors.Is(stop, context.DeadlineExceeded) {
				res.Code = "cancelled"
			}
			report.Skipped++
			report.Rows = append(report.Rows, res)
			continue
		}

		entry, err := c.Submit(ctx, row.Values, row.DedupKey)
		if err != nil {
			res.Status = models.ImportRejected
			res.Code = raffle.Code(err)
			res.Error = err.Error()
			report.Rejected++
			if stopsImport(err) {
				stop = err
			}
		} else {
			res.Status = models.ImportAccepted
			res.EntryID = entry.ID
			report.Accepted++
		}
		report.Rows = append(report.Rows, res)
	}

	logger.Infof("[EventService] Import into %s: %d accepted, %d rejected, %d skipped",
		id, report.Accepted, report.Rejected, report.Skipped)
	return report, nil
}

// stopsImport reports errors after which no later row can succeed.
func stopsImport(err error) bool {
	var (
		phase *raffle.InvalidPhaseError
		full  *raffle.CapacityExceededError
	)
	return errors.As(err, &phase) || errors.As(err, &full) ||
		errors.Is(err, raffle.ErrNotYetOpen) || errors.Is(err, ErrEventNotFound)
}
