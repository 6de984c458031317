package models

import (
	"time"

	"raffle-admin/internal/raffle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateEventRequest struct {
	Name     string    `json:"name" binding:"required"`
	OpenAt   time.Time `json:"open_at" binding:"required"`
	CloseAt  time.Time `json:"close_at" binding:"required"`
	Capacity *int      `json:"capacity"`
	// BlankSchema skips the default name/email/phone/ETH/SOL fields.
	BlankSchema bool `json:"blank_schema"`
}

type AddFieldRequest struct {
	Name     string             `json:"name" binding:"required"`
	Kind     raffle.FieldKind   `json:"kind"`
	Format   raffle.FieldFormat `json:"format"`
	Required bool               `json:"required"`
	DedupKey bool               `json:"dedup_key"`
}

type SetFieldRequiredRequest struct {
	Required bool `json:"required"`
}

type AddPrizeRequest struct {
	Name        string          `json:"name" binding:"required"`
	WinnerQuota int             `json:"winner_quota" binding:"required"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
}

type SetCapacityRequest struct {
	Capacity *int `json:"capacity"`
}

type SetWindowRequest struct {
	OpenAt  time.Time `json:"open_at" binding:"required"`
	CloseAt time.Time `json:"close_at" binding:"required"`
}

type SubmitEntryRequest struct {
	Values   map[string]string `json:"values" binding:"required"`
	DedupKey string            `json:"dedup_key"`
}

// RunDrawRequest carries either an explicit seed or a nonce to derive one.
type RunDrawRequest struct {
	Seed  *string `json:"seed"`
	Nonce string  `json:"nonce"`
}

type ImportRow struct {
	DedupKey string            `json:"dedup_key"`
	Values   map[string]string `json:"values"`
}

type ImportEntriesRequest struct {
	Rows []ImportRow `json:"rows" binding:"required"`
}

// Response DTOs

type ImportStatus string

const (
	ImportAccepted ImportStatus = "accepted"
	ImportRejected ImportStatus = "rejected"
	ImportSkipped  ImportStatus = "skipped"
)

type ImportRowResult struct {
	Row     int          `json:"row"`
	Status  ImportStatus `json:"status"`
	EntryID int64        `json:"entry_id,omitempty"`
	Code    string       `json:"code,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type ImportReport struct {
	Accepted int               `json:"accepted"`
	Rejected int               `json:"rejected"`
	Skipped  int               `json:"skipped"`
	Rows     []ImportRowResult `json:"rows"`
}

type EventSummary struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Phase       raffle.Phase `json:"phase"`
	OpenAt      time.Time    `json:"open_at"`
	CloseAt     time.Time    `json:"close_at"`
	Capacity    *int         `json:"capacity"`
	EntryCount  int64        `json:"entry_count"`
	WinnerCount int64        `json:"winner_count"`
	CreatedAt   time.Time    `json:"created_at"`
}

// EventView is a consistent snapshot of one event
type EventView struct {
	ID              uuid.UUID                `json:"id"`
	OwnerID         uint                     `json:"owner_id"`
	Name            string                   `json:"name"`
	Slug            string                   `json:"slug"`
	EntryURL        string                   `json:"entry_url,omitempty"`
	Phase           raffle.Phase             `json:"phase"`
	OpenAt          time.Time                `json:"open_at"`
	CloseAt         time.Time                `json:"close_at"`
	CloseReason     *CloseReason             `json:"close_reason,omitempty"`
	Capacity        *int                     `json:"capacity"`
	EntryCount      int                      `json:"entry_count"`
	Fields          []raffle.FieldDefinition `json:"fields"`
	Prizes          []raffle.Prize           `json:"prizes"`
	TotalQuota      int                      `json:"total_quota"`
	TotalPrizeValue decimal.Decimal          `json:"total_prize_value"`
	Result          *raffle.Result           `json:"result,omitempty"`
}

// MaskedEntry is the public view of an entry.
type MaskedEntry struct {
	ID     int64             `json:"id"`
	Values map[string]string `json:"values"`
}

// EventArchive is the document written to cold storage when an event is retired.
type EventArchive struct {
	Event      Event                    `json:"event"`
	Fields     []raffle.FieldDefinition `json:"fields"`
	Prizes     []raffle.Prize           `json:"prizes"`
	Entries    []raffle.Entry           `json:"entries"`
	Result     *raffle.Result           `json:"result,omitempty"`
	ArchivedAt time.Time                `json:"archived_at"`
}
