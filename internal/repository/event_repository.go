package repository

import (
	"context"
	"time"

	"raffle-admin/internal/models"
	"raffle-admin/internal/raffle"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateEvent stores an event together with its initial schema and prizes
func (r *Repository) CreateEvent(ctx context.Context, ev *models.Event, fields []models.EventField, prizes []models.EventPrize) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ev).Error; err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := tx.Create(&fields).Error; err != nil {
				return err
			}
		}
		if len(prizes) > 0 {
			if err := tx.Create(&prizes).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadEvent reads the event and all of its children in one snapshot
func (r *Repository) LoadEvent(ctx context.Context, id uuid.UUID) (*models.EventAggregate, error) {
	agg := &models.EventAggregate{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&agg.Event).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Order("position ASC").Find(&agg.Fields).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Order("tier ASC").Find(&agg.Prizes).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", id).Order("entry_number ASC").Find(&agg.Entries).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ?", id).Order("prize_rank ASC, position ASC").Find(&agg.Winners).Error
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// UpdateEvent saves the event header
func (r *Repository) UpdateEvent(ctx context.Context, ev *models.Event) error {
	return r.db.WithContext(ctx).Save(ev).Error
}

// ReplaceFields swaps the stored schema of an event
func (r *Repository) ReplaceFields(ctx context.Context, eventID uuid.UUID, fields []models.EventField) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventField{}).Error; err != nil {
			return err
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Create(&fields).Error
	})
}

// ReplacePrizes swaps the stored prize table of an event
func (r *Repository) ReplacePrizes(ctx context.Context, eventID uuid.UUID, prizes []models.EventPrize) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&models.EventPrize{}).Error; err != nil {
			return err
		}
		if len(prizes) == 0 {
			return nil
		}
		return tx.Create(&prizes).Error
	})
}

// AppendEntry inserts one ledger row. The unique indexes on
// (event_id, entry_number) and (event_id, dedup_key) reject a second writer.
func (r *Repository) AppendEntry(ctx context.Context, entry *models.EventEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Event{}).
			Where("id = ?", entry.EventID).
			Update("updated_at", time.Now().UTC()).Error
	})
}

// SaveDrawResult stores the winners and the drawn event header atomically
func (r *Repository) SaveDrawResult(ctx context.Context, ev *models.Event, winners []models.EventWinner) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(winners) > 0 {
			if err := tx.CreateInBatches(&winners, 500).Error; err != nil {
				return err
			}
		}
		return tx.Save(ev).Error
	})
}

// ListEvents returns the events owned by ownerID, newest first
func (r *Repository) ListEvents(ctx context.Context, ownerID uint) ([]models.EventSummary, error) {
	var summaries []models.EventSummary
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Select(`events.id, events.name, events.slug, events.phase, events.open_at, events.close_at,
			events.capacity, events.created_at,
			(SELECT COUNT(*) FROM event_entries WHERE event_entries.event_id = events.id) AS entry_count,
			(SELECT COUNT(*) FROM event_winners WHERE event_winners.event_id = events.id) AS winner_count`).
		Where("events.owner_id = ?", ownerID).
		Order("events.created_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ListDueEvents returns open events whose close time has passed
func (r *Repository) ListDueEvents(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("phase = ? AND close_at <= ?", raffle.PhaseOpen, now.UTC()).
		Pluck("id", &ids).Error
	return ids, err
}

// ListRetiredEvents returns events drawn before the given time
func (r *Repository) ListRetiredEvents(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("phase = ? AND drawn_at < ?", raffle.PhaseDrawn, before.UTC()).
		Pluck("id", &ids).Error
	return ids, err
}

// DeleteEvent removes an event and every row that belongs to it
func (r *Repository) DeleteEvent(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&models.EventWinner{},
			&models.EventEntry{},
			&models.EventPrize{},
			&models.EventField{},
		} {
			if err := tx.Where("event_id = ?", eventID).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", eventID).Delete(&models.Event{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
