package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"raffle-admin/internal/archive"
	"raffle-admin/internal/lock"
	"raffle-admin/internal/models"
	"raffle-admin/internal/notify"
	"raffle-admin/internal/raffle"

	"github.com/google/logger"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrEventBusy     = errors.New("event is owned by another instance")
	ErrNoResult      = errors.New("event has not been drawn")
)

// ResultCache is a read-through cache for drawn results.
type ResultCache interface {
	GetResult(ctx context.Context, eventID string) (*raffle.Result, bool, error)
	SetResult(ctx context.Context, eventID string, result raffle.Result) error
	DeleteResult(ctx context.Context, eventID string) error
}

// EventService is the registry of event coordinators. Events are loaded on
// first use, each after claiming its ownership lock, and never share state.
type EventService struct {
	store     EventStore
	owners    lock.Lock
	publisher notify.Publisher
	cache     ResultCache
	archiver  archive.Archiver

	entryPageURL string
	now          func() time.Time

	mu    sync.Mutex
	slots map[uuid.UUID]*slot
}

type slot struct {
	once sync.Once
	c    *EventCoordinator
	err  error
}

// NewEventService wires the registry. cache and archiver may be nil.
func NewEventService(
	store EventStore,
	owners lock.Lock,
	publisher notify.Publisher,
	cache ResultCache,
	archiver archive.Archiver,
	entryPageURL string,
) *EventService {
	return &EventService{
		store:        store,
		owners:       owners,
		publisher:    publisher,
		cache:        cache,
		archiver:     archiver,
		entryPageURL: entryPageURL,
		now:          time.Now,
		slots:        make(map[uuid.UUID]*slot),
	}
}

// SetClock replaces the wall clock, for tests.
func (s *EventService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *EventService) deps() coordinatorDeps {
	return coordinatorDeps{
		store:        s.store,
		publisher:    s.publisher,
		now:          func() time.Time { return s.now() },
		entryPageURL: s.entryPageURL,
	}
}

// CreateEvent stores a new draft event and registers its coordinator
func (s *EventService) CreateEvent(ctx context.Context, ownerID uint, req models.CreateEventRequest) (*models.EventView, error) {
	name := strings.TrimSpace(req.Name)
	var problems []raffle.FieldProblem
	if name == "" {
		problems = append(problems, raffle.FieldProblem{Field: "name", Code: raffle.ProblemMissing, Message: "event name is required"})
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		problems = append(problems, raffle.FieldProblem{Field: "capacity", Code: raffle.ProblemInvalidField, Message: "must be at least 1"})
	}
	if len(problems) > 0 {
		return nil, &raffle.ValidationError{Problems: problems}
	}
	if err := checkWindow(req.OpenAt, req.CloseAt); err != nil {
		return nil, err
	}

	id := uuid.New()
	schema := raffle.DefaultFieldSchema()
	if req.BlankSchema {
		schema = raffle.FieldSchema{}
	}
	ev := models.Event{
		ID:       id,
		OwnerID:  ownerID,
		Name:     name,
		Slug:     eventSlug(name, id),
		OpenAt:   req.OpenAt.UTC(),
		CloseAt:  req.CloseAt.UTC(),
		Capacity: req.Capacity,
		Phase:    raffle.PhaseDraft,
	}

	if err := s.store.CreateEvent(ctx, &ev, models.NewFieldRows(id, schema), nil); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	ok, err := s.owners.Acquire(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to claim event %s: %w", id, err)
	}
	if !ok {
		return nil, ErrEventBusy
	}
	c, err := newCoordinator(ev, schema, s.deps())
	if err != nil {
		return nil, err
	}
	sl := &slot{c: c}
	sl.once.Do(func() {})
	s.mu.Lock()
	s.slots[id] = sl
	s.mu.Unlock()

	logger.Infof("[EventService] Created event %s (%q) for owner %d", id, name, ownerID)
	c.publish(ctx, notify.Message{Type: notify.EventCreated, EventID: id.String(), Phase: string(ev.Phase)})

	view := c.Snapshot()
	return &view, nil
}

// Coordinator returns the coordinator of an event, loading it if needed
func (s *EventService) Coordinator(ctx context.Context, id uuid.UUID) (*EventCoordinator, error) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	if !ok {
		sl = &slot{}
		s.slots[id] = sl
	}
	s.mu.Unlock()

	sl.once.Do(func() {
		sl.c, sl.err = s.load(ctx, id)
	})
	if sl.err != nil {
		s.evict(id, sl)
		return nil, sl.err
	}
	return sl.c, nil
}

func (s *EventService) load(ctx context.Context, id uuid.UUID) (*EventCoordinator, error) {
	ok, err := s.owners.Acquire(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to claim event %s: %w", id, err)
	}
	if !ok {
		return nil, ErrEventBusy
	}

	agg, err := s.store.LoadEvent(ctx, id)
	if err == nil {
		var c *EventCoordinator
		if c, err = restoreCoordinator(agg, s.deps()); err == nil {
			logger.Infof("[EventService] Loaded event %s (%s, %d entries)", id, c.Phase(), c.Count())
			return c, nil
		}
	}

	if releaseErr := s.owners.Release(context.WithoutCancel(ctx), id.String()); releaseErr != nil {
		logger.Warningf("[EventService] Failed to release event %s: %v", id, releaseErr)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	return nil, fmt.Errorf("failed to load event %s: %w", id, err)
}

func (s *EventService) evict(id uuid.UUID, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slots[id] == sl {
		delete(s.slots, id)
	}
}

// GetEvent returns a snapshot of the event
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*models.EventView, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return nil, err
	}
	view := c.Snapshot()
	return &view, nil
}

// Authorize reports ErrEventNotFound unless ownerID owns the event
func (s *EventService) Authorize(ctx context.Context, id uuid.UUID, ownerID uint) error {
	view, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if view.OwnerID != ownerID {
		return ErrEventNotFound
	}
	return nil
}

// ListEvents returns the owner's events with entry and winner counts
func (s *EventService) ListEvents(ctx context.Context, ownerID uint) ([]models.EventSummary, error) {
	events, err := s.store.ListEvents(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *EventService) Submit(ctx context.Context, id uuid.UUID, raw map[string]string, dedupKey string) (raffle.Entry, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return raffle.Entry{}, err
	}
	return c.Submit(ctx, raw, dedupKey)
}

func (s *EventService) AddField(ctx context.Context, id uuid.UUID, req models.AddFieldRequest) (raffle.FieldDefinition, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return raffle.FieldDefinition{}, err
	}
	return c.AddField(ctx, raffle.FieldDefinition{
		Name:     req.Name,
		Kind:     req.Kind,
		Format:   req.Format,
		Required: req.Required,
		DedupKey: req.DedupKey,
	})
}

func (s *EventService) RemoveField(ctx context.Context, id uuid.UUID, fieldID int) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}
	return c.RemoveField(ctx, fieldID)
}

func (s *EventService) SetFieldRequired(ctx context.Context, id uuid.UUID, fieldID int, required bool) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}
	return c.SetFieldRequired(ctx, fieldID, required)
}

func (s *EventService) AddPrize(ctx context.Context, id uuid.UUID, req models.AddPrizeRequest) (raffle.Prize, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return raffle.Prize{}, err
	}
	return c.AddPrize(ctx, raffle.Prize{
		Name:        req.Name,
		WinnerQuota: req.WinnerQuota,
		Description: req.Description,
		Value:       req.Value,
	})
}

func (s *EventService) RemovePrize(ctx context.Context, id uuid.UUID, rank int) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}
	return c.RemovePrize(ctx, rank)
}

func (s *EventService) SetCapacity(ctx context.Context, id uuid.UUID, capacity *int) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}
	return c.SetCapacity(ctx, capacity)
}

func (s *EventService) SetWindow(ctx context.Context, id uuid.UUID, openAt, closeAt time.Time) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}
	return c.SetWindow(ctx, openAt, closeAt)
}

func (s *EventService) Open(ctx context.Context, id uuid.UUID) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}
	return c.Open(ctx)
}

// Close ends the entry window; closing a closed event is a no-op
func (s *EventService) Close(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return false, err
	}
	return c.Close(ctx)
}

// RunDraw draws the event with seed, or with a seed derived from nonce
func (s *EventService) RunDraw(ctx context.Context, id uuid.UUID, seed *uint64, nonce string) (raffle.Result, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return raffle.Result{}, err
	}
	result, err := c.RunDraw(ctx, seed, nonce)
	if err != nil {
		return raffle.Result{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetResult(ctx, id.String(), result); err != nil {
			logger.Warningf("[EventService] Failed to cache result of %s: %v", id, err)
		}
	}
	return result, nil
}

func (s *EventService) GetEntries(ctx context.Context, id uuid.UUID) ([]raffle.Entry, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Entries(), nil
}

// GetMaskedEntries returns entries with personal values masked for public display
func (s *EventService) GetMaskedEntries(ctx context.Context, id uuid.UUID) ([]models.MaskedEntry, error) {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return nil, err
	}
	return MaskEntries(c.Schema(), c.Entries()), nil
}

// GetResult returns the draw result, from cache when possible
func (s *EventService) GetResult(ctx context.Context, id uuid.UUID) (*raffle.Result, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetResult(ctx, id.String())
		if err != nil {
			logger.Warningf("[EventService] Result cache read failed for %s: %v", id, err)
		} else if ok {
			return cached, nil
		}
	}

	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return nil, err
	}
	result := c.Result()
	if result == nil {
		return nil, ErrNoResult
	}
	if s.cache != nil {
		if err := s.cache.SetResult(ctx, id.String(), *result); err != nil {
			logger.Warningf("[EventService] Failed to cache result of %s: %v", id, err)
		}
	}
	return result, nil
}

// CloseDueEvents closes every open event whose close time has passed.
// Events owned by another instance are left to that instance.
func (s *EventService) CloseDueEvents(ctx context.Context) (int, error) {
	ids, err := s.store.ListDueEvents(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due events: %w", err)
	}

	closed := 0
	for _, id := range ids {
		c, err := s.Coordinator(ctx, id)
		if errors.Is(err, ErrEventBusy) {
			continue
		}
		if err != nil {
			logger.Errorf("[EventService] Failed to load due event %s: %v", id, err)
			continue
		}
		ok, err := c.CloseIfDue(ctx)
		if err != nil {
			logger.Errorf("[EventService] Failed to close event %s: %v", id, err)
			continue
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

// ArchiveExpired retires events drawn longer than retention ago
func (s *EventService) ArchiveExpired(ctx context.Context, retention time.Duration) (int, error) {
	ids, err := s.store.ListRetiredEvents(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to list expired events: %w", err)
	}

	archived := 0
	for _, id := range ids {
		err := s.DeleteEvent(ctx, id)
		if errors.Is(err, ErrEventBusy) {
			continue
		}
		if err != nil {
			logger.Errorf("[EventService] Failed to archive event %s: %v", id, err)
			continue
		}
		archived++
	}
	return archived, nil
}

// DeleteEvent archives the event, removes it from storage and drops its
// coordinator. Nothing is deleted when archiving fails.
func (s *EventService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	c, err := s.Coordinator(ctx, id)
	if err != nil {
		return err
	}

	err = c.retire(ctx, func(doc *models.EventArchive) error {
		if s.archiver != nil {
			key, err := s.archiver.Archive(ctx, doc)
			if err != nil {
				return err
			}
			logger.Infof("[EventService] Archived event %s to %s", id, key)
		} else {
			logger.Warningf("[EventService] No archive configured, deleting event %s without a copy", id)
		}
		if err := s.store.DeleteEvent(context.WithoutCancel(ctx), id); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.slots, id)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.DeleteResult(ctx, id.String()); err != nil {
			logger.Warningf("[EventService] Failed to drop cached result of %s: %v", id, err)
		}
	}
	if err := s.owners.Release(context.WithoutCancel(ctx), id.String()); err != nil {
		logger.Warningf("[EventService] Failed to release event %s: %v", id, err)
	}
	c.publish(ctx, notify.Message{Type: notify.EventArchived, EventID: id.String(), Phase: string(c.Phase())})
	return nil
}

// Shutdown releases every event this instance owns
func (s *EventService) Shutdown(ctx context.Context) {
	s.owners.ReleaseAll(ctx)
	s.mu.Lock()
	s.slots = make(map[uuid.UUID]*slot)
	s.mu.Unlock()
}

func eventSlug(name string, id uuid.UUID) string {
	base := slug.Make(name)
	suffix := id.String()[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
