package models

import (
	"encoding/json"
	"fmt"
	"time"

	"raffle-admin/internal/raffle"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CloseReason string

const (
	CloseReasonDeadline CloseReason = "deadline"
	CloseReasonOperator CloseReason = "operator"
)

// Event is the stored header of a raffle event
type Event struct {
	ID           uuid.UUID    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID      uint         `gorm:"not null;index" json:"owner_id"`
	Name         string       `gorm:"size:255;not null" json:"name"`
	Slug         string       `gorm:"size:255;uniqueIndex" json:"slug"`
	OpenAt       time.Time    `gorm:"not null" json:"open_at"`
	CloseAt      time.Time    `gorm:"not null;index" json:"close_at"`
	Capacity     *int         `json:"capacity"`
	Phase        raffle.Phase `gorm:"size:20;not null;default:draft;index" json:"phase"`
	CloseReason  *CloseReason `gorm:"size:20" json:"close_reason,omitempty"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`
	DrawSeed     *string      `gorm:"size:32" json:"draw_seed,omitempty"` // uint64 in decimal
	DrawNonce    *string      `gorm:"size:255" json:"draw_nonce,omitempty"`
	ResultDigest *string      `gorm:"size:64" json:"result_digest,omitempty"`
	DrawnAt      *time.Time   `json:"drawn_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

// EventField is one row of an event's field schema
type EventField struct {
	ID       uint               `gorm:"primaryKey" json:"-"`
	EventID  uuid.UUID          `gorm:"type:char(36);not null;uniqueIndex:idx_event_field" json:"event_id"`
	FieldID  int                `gorm:"not null;uniqueIndex:idx_event_field" json:"field_id"`
	Position int                `gorm:"not null" json:"position"`
	Name     string             `gorm:"size:100;not null" json:"name"`
	Kind     raffle.FieldKind   `gorm:"size:10;not null" json:"kind"`
	Format   raffle.FieldFormat `gorm:"size:20;not null;default:text" json:"format"`
	Required bool               `gorm:"not null;default:false" json:"required"`
	Locked   bool               `gorm:"not null;default:false" json:"locked"`
	DedupKey bool               `gorm:"not null;default:false" json:"dedup_key"`
}

func (EventField) TableName() string {
	return "event_fields"
}

type EventPrize struct {
	ID          uint            `gorm:"primaryKey" json:"-"`
	EventID     uuid.UUID       `gorm:"type:char(36);not null;uniqueIndex:idx_event_prize_rank" json:"event_id"`
	Rank        int             `gorm:"column:tier;not null;uniqueIndex:idx_event_prize_rank" json:"rank"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	WinnerQuota int             `gorm:"not null" json:"winner_quota"`
	Value       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"value"`
}

func (EventPrize) TableName() string {
	return "event_prizes"
}

// EventEntry is an append-only ledger row. Rows are never updated.
type EventEntry struct {
	ID          uint           `gorm:"primaryKey" json:"-"`
	EventID     uuid.UUID      `gorm:"type:char(36);not null;uniqueIndex:idx_entry_number;uniqueIndex:idx_entry_dedup" json:"event_id"`
	EntryNumber int64          `gorm:"not null;uniqueIndex:idx_entry_number" json:"entry_number"`
	DedupKey    string         `gorm:"size:255;not null;uniqueIndex:idx_entry_dedup" json:"dedup_key"`
	Values      datatypes.JSON `json:"values"`
	SubmittedAt time.Time      `gorm:"not null" json:"submitted_at"`
}

func (EventEntry) TableName() string {
	return "event_entries"
}

// EventWinner stores one winning slot; Position is the draw order inside a tier.
type EventWinner struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	EventID     uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_winner_entry;uniqueIndex:idx_winner_slot" json:"event_id"`
	PrizeRank   int       `gorm:"not null;uniqueIndex:idx_winner_slot" json:"prize_rank"`
	PrizeName   string    `gorm:"size:255;not null" json:"prize_name"`
	Position    int       `gorm:"not null;uniqueIndex:idx_winner_slot" json:"position"`
	EntryNumber int64     `gorm:"not null;uniqueIndex:idx_winner_entry" json:"entry_number"`
	DedupKey    string    `gorm:"size:255;not null" json:"dedup_key"`
}

func (EventWinner) TableName() string {
	return "event_winners"
}

// EventAggregate is everything stored for one event
type EventAggregate struct {
	Event   Event
	Fields  []EventField
	Prizes  []EventPrize
	Entries []EventEntry
	Winners []EventWinner
}

func NewFieldRows(eventID uuid.UUID, schema raffle.FieldSchema) []EventField {
	defs := schema.Fields()
	rows := make([]EventField, len(defs))
	for i, d := range defs {
		rows[i] = EventField{
			EventID:  eventID,
			FieldID:  d.ID,
			Position: i,
			Name:     d.Name,
			Kind:     d.Kind,
			Format:   d.Format,
			Required: d.Required,
			Locked:   d.Locked,
			DedupKey: d.DedupKey,
		}
	}
	return rows
}

func (f EventField) Definition() raffle.FieldDefinition {
	return raffle.FieldDefinition{
		ID:       f.FieldID,
		Name:     f.Name,
		Kind:     f.Kind,
		Format:   f.Format,
		Required: f.Required,
		Locked:   f.Locked,
		DedupKey: f.DedupKey,
	}
}

func NewPrizeRows(eventID uuid.UUID, table raffle.PrizeTable) []EventPrize {
	prizes := table.Prizes()
	rows := make([]EventPrize, len(prizes))
	for i, p := range prizes {
		rows[i] = EventPrize{
			EventID:     eventID,
			Rank:        p.Rank,
			Name:        p.Name,
			Description: p.Description,
			WinnerQuota: p.WinnerQuota,
			Value:       p.Value,
		}
	}
	return rows
}

func (p EventPrize) Prize() raffle.Prize {
	return raffle.Prize{
		Rank:        p.Rank,
		Name:        p.Name,
		WinnerQuota: p.WinnerQuota,
		Description: p.Description,
		Value:       p.Value,
	}
}

func NewEntryRow(eventID uuid.UUID, e raffle.Entry) (*EventEntry, error) {
	values, err := json.Marshal(e.Values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry values: %w", err)
	}
	return &EventEntry{
		EventID:     eventID,
		EntryNumber: e.ID,
		DedupKey:    e.DedupKey,
		Values:      datatypes.JSON(values),
		SubmittedAt: e.SubmittedAt.UTC(),
	}, nil
}

func (e EventEntry) Entry() (raffle.Entry, error) {
	values := map[string]string{}
	if len(e.Values) > 0 {
		if err := json.Unmarshal(e.Values, &values); err != nil {
			return raffle.Entry{}, fmt.Errorf("failed to decode entry #%d: %w", e.EntryNumber, err)
		}
	}
	return raffle.Entry{
		ID:          e.EntryNumber,
		DedupKey:    e.DedupKey,
		Values:      values,
		SubmittedAt: e.SubmittedAt,
	}, nil
}

func NewWinnerRows(eventID uuid.UUID, result raffle.Result) []EventWinner {
	var rows []EventWinner
	for _, tier := range result.Tiers {
		for pos, w := range tier.Winners {
			rows = append(rows, EventWinner{
				EventID:     eventID,
				PrizeRank:   tier.PrizeRank,
				PrizeName:   tier.PrizeName,
				Position:    pos,
				EntryNumber: w.EntryID,
				DedupKey:    w.DedupKey,
			})
		}
	}
	return rows
}
