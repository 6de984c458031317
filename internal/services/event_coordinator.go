package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffle-admin/internal/models"
	"raffle-admin/internal/notify"
	"raffle-admin/internal/raffle"

	"github.com/google/logger"
	"github.com/google/uuid"
)

// EventStore is the persistence the coordinators need. Every method is one
// atomic write or one consistent read.
type EventStore interface {
	CreateEvent(ctx context.Context, ev *models.Event, fields []models.EventField, prizes []models.EventPrize) error
	LoadEvent(ctx context.Context, id uuid.UUID) (*models.EventAggregate, error)
	UpdateEvent(ctx context.Context, ev *models.Event) error
	ReplaceFields(ctx context.Context, eventID uuid.UUID, fields []models.EventField) error
	ReplacePrizes(ctx context.Context, eventID uuid.UUID, prizes []models.EventPrize) error
	AppendEntry(ctx context.Context, entry *models.EventEntry) error
	SaveDrawResult(ctx context.Context, ev *models.Event, winners []models.EventWinner) error
	ListEvents(ctx context.Context, ownerID uint) ([]models.EventSummary, error)
	ListDueEvents(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ListRetiredEvents(ctx context.Context, before time.Time) ([]uuid.UUID, error)
	DeleteEvent(ctx context.Context, eventID uuid.UUID) error
}

type coordinatorDeps struct {
	store        EventStore
	publisher    notify.Publisher
	now          func() time.Time
	entryPageURL string
}

// EventCoordinator owns the schema, ledger, prize table and result of one
// event. mu serialises every mutation including its durable write; state
// guards the in-memory fields so readers never wait on storage.
type EventCoordinator struct {
	mu    sync.Mutex
	state sync.RWMutex

	event   models.Event
	schema  raffle.FieldSchema
	ledger  *raffle.Ledger
	prizes  raffle.PrizeTable
	result  *raffle.Result
	retired bool

	coordinatorDeps
}

func newCoordinator(ev models.Event, schema raffle.FieldSchema, deps coordinatorDeps) (*EventCoordinator, error) {
	ledger, err := raffle.NewLedger(ev.Capacity)
	if err != nil {
		return nil, err
	}
	return &EventCoordinator{
		event:           ev,
		schema:          schema,
		ledger:          ledger,
		coordinatorDeps: deps,
	}, nil
}

// restoreCoordinator rebuilds a coordinator from storage. A stored result is
// replayed against the stored ledger and must reproduce its digest.
func restoreCoordinator(agg *models.EventAggregate, deps coordinatorDeps) (*EventCoordinator, error) {
	defs := make([]raffle.FieldDefinition, len(agg.Fields))
	for i, f := range agg.Fields {
		defs[i] = f.Definition()
	}
	schema, err := raffle.NewFieldSchema(defs...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore schema: %w", err)
	}

	prizeList := make([]raffle.Prize, len(agg.Prizes))
	for i, p := range agg.Prizes {
		prizeList[i] = p.Prize()
	}
	prizes, err := raffle.NewPrizeTable(prizeList...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore prizes: %w", err)
	}

	entries := make([]raffle.Entry, len(agg.Entries))
	for i, row := range agg.Entries {
		if entries[i], err = row.Entry(); err != nil {
			return nil, err
		}
	}
	ledger, err := raffle.RestoreLedger(agg.Event.Capacity, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to restore ledger: %w", err)
	}

	c := &EventCoordinator{
		event:           agg.Event,
		schema:          schema,
		ledger:          ledger,
		prizes:          prizes,
		coordinatorDeps: deps,
	}

	if agg.Event.Phase == raffle.PhaseDrawn {
		result, err := restoreResult(agg)
		if err != nil {
			return nil, err
		}
		if err := result.Verify(entries, prizes.Prizes()); err != nil {
			return nil, fmt.Errorf("stored result of event %s does not verify: %w", agg.Event.ID, err)
		}
		c.result = result
	}
	return c, nil
}

func restoreResult(agg *models.EventAggregate) (*raffle.Result, error) {
	ev := agg.Event
	if ev.DrawSeed == nil || ev.ResultDigest == nil {
		return nil, fmt.Errorf("drawn event %s has no seed or digest", ev.ID)
	}
	seed, err := strconv.ParseUint(*ev.DrawSeed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid draw seed %q: %w", *ev.DrawSeed, err)
	}

	winners := make([]models.EventWinner, len(agg.Winners))
	copy(winners, agg.Winners)
	sort.SliceStable(winners, func(i, j int) bool {
		if winners[i].PrizeRank != winners[j].PrizeRank {
			return winners[i].PrizeRank < winners[j].PrizeRank
		}
		return winners[i].Position < winners[j].Position
	})

	result := &raffle.Result{Seed: seed, EntryCount: len(agg.Entries), Digest: *ev.ResultDigest}
	for _, w := range winners {
		n := len(result.Tiers)
		if n == 0 || result.Tiers[n-1].PrizeRank != w.PrizeRank {
			result.Tiers = append(result.Tiers, raffle.TierResult{PrizeRank: w.PrizeRank, PrizeName: w.PrizeName})
			n++
		}
		result.Tiers[n-1].Winners = append(result.Tiers[n-1].Winners, raffle.Winner{EntryID: w.EntryNumber, DedupKey: w.DedupKey})
	}
	return result, nil
}

func (c *EventCoordinator) ID() uuid.UUID {
	c.state.RLock()
	defer c.state.RUnlock()
	return c.event.ID
}

func (c *EventCoordinator) Phase() raffle.Phase {
	c.state.RLock()
	defer c.state.RUnlock()
	return c.event.Phase
}

func (c *EventCoordinator) Count() int {
	return c.ledger.Count()
}

func (c *EventCoordinator) Entries() []raffle.Entry {
	return c.ledger.All()
}

func (c *EventCoordinator) Schema() raffle.FieldSchema {
	c.state.RLock()
	defer c.state.RUnlock()
	return c.schema
}

// Result returns a copy of the draw result, or nil before the draw.
func (c *EventCoordinator) Result() *raffle.Result {
	c.state.RLock()
	defer c.state.RUnlock()
	if c.result == nil {
		return nil
	}
	r := *c.result
	r.Tiers = make([]raffle.TierResult, len(c.result.Tiers))
	for i, t := range c.result.Tiers {
		r.Tiers[i] = t
		r.Tiers[i].Winners = append([]raffle.Winner(nil), t.Winners...)
	}
	return &r
}

func (c *EventCoordinator) Snapshot() models.EventView {
	c.state.RLock()
	defer c.state.RUnlock()

	view := models.EventView{
		ID:              c.event.ID,
		OwnerID:         c.event.OwnerID,
		Name:            c.event.Name,
		Slug:            c.event.Slug,
		Phase:           c.event.Phase,
		OpenAt:          c.event.OpenAt,
		CloseAt:         c.event.CloseAt,
		CloseReason:     c.event.CloseReason,
		Capacity:        c.event.Capacity,
		EntryCount:      c.ledger.Count(),
		Fields:          c.schema.Fields(),
		Prizes:          c.prizes.Prizes(),
		TotalQuota:      c.prizes.TotalQuota(),
		TotalPrizeValue: c.prizes.TotalValue(),
	}
	if c.entryPageURL != "" {
		view.EntryURL = strings.TrimRight(c.entryPageURL, "/") + "/" + c.event.Slug
	}
	if c.result != nil {
		r := *c.result
		view.Result = &r
	}
	return view
}

// Submit validates and records one entry.
func (c *EventCoordinator) Submit(ctx context.Context, raw map[string]string, dedupKeyValue string) (raffle.Entry, error) {
	// The schema is frozen once the event is open and phases never move
	// back, so validation can run before taking the mutation lock.
	c.state.RLock()
	phase, closeAt, schema := c.event.Phase, c.event.CloseAt, c.schema
	c.state.RUnlock()
	if err := raffle.Guard(phase, raffle.OpSubmit); err != nil {
		return raffle.Entry{}, err
	}
	var validated raffle.ValidatedEntry
	if c.now().Before(closeAt) {
		v, err := schema.Validate(raw)
		if err != nil {
			return raffle.Entry{}, err
		}
		validated = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.guard(ctx, raffle.OpSubmit)
	if err != nil {
		return raffle.Entry{}, err
	}
	now := c.now()
	if now.Before(ev.OpenAt) {
		return raffle.Entry{}, raffle.ErrNotYetOpen
	}
	if validated.Values == nil {
		if validated, err = schema.Validate(raw); err != nil {
			return raffle.Entry{}, err
		}
	}

	entry, err := c.ledger.Prepare(validated, dedupKeyValue, now.UTC())
	if err != nil {
		return raffle.Entry{}, err
	}
	row, err := models.NewEntryRow(ev.ID, entry)
	if err != nil {
		return raffle.Entry{}, err
	}
	if err := c.store.AppendEntry(context.WithoutCancel(ctx), row); err != nil {
		return raffle.Entry{}, fmt.Errorf("failed to store entry: %w", err)
	}
	if err := c.ledger.Commit(entry); err != nil {
		return raffle.Entry{}, fmt.Errorf("failed to commit entry: %w", err)
	}

	c.publish(ctx, notify.Message{Type: notify.EntryAccepted, EventID: ev.ID.String(), Phase: string(ev.Phase), EntryID: entry.ID})
	return entry, nil
}

// AddField adds a field to the schema while the event is a draft.
func (c *EventCoordinator) AddField(ctx context.Context, def raffle.FieldDefinition) (raffle.FieldDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.guard(ctx, raffle.OpEditSchema); err != nil {
		return raffle.FieldDefinition{}, err
	}
	next, err := c.schema.Add(def)
	if err != nil {
		return raffle.FieldDefinition{}, err
	}
	if err := c.saveSchema(ctx, next); err != nil {
		return raffle.FieldDefinition{}, err
	}
	added, _ := next.Lookup(strings.TrimSpace(def.Name))
	return added, nil
}

func (c *EventCoordinator) RemoveField(ctx context.Context, fieldID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.guard(ctx, raffle.OpEditSchema); err != nil {
		return err
	}
	next, err := c.schema.Remove(fieldID)
	if err != nil {
		return err
	}
	return c.saveSchema(ctx, next)
}

func (c *EventCoordinator) SetFieldRequired(ctx context.Context, fieldID int, required bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.guard(ctx, raffle.OpEditSchema); err != nil {
		return err
	}
	next, err := c.schema.SetRequired(fieldID, required)
	if err != nil {
		return err
	}
	return c.saveSchema(ctx, next)
}

// AddPrize appends a prize tier. Once the event is open, prizes are frozen
// as soon as the first entry exists, and the total quota must fit the
// capacity.
func (c *EventCoordinator) AddPrize(ctx context.Context, p raffle.Prize) (raffle.Prize, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardPrizes(ctx); err != nil {
		return raffle.Prize{}, err
	}
	next, added, err := c.prizes.Add(p)
	if err != nil {
		return raffle.Prize{}, err
	}
	if err := c.checkQuota(next.TotalQuota()); err != nil {
		return raffle.Prize{}, err
	}
	if err := c.savePrizes(ctx, next); err != nil {
		return raffle.Prize{}, err
	}
	return added, nil
}

func (c *EventCoordinator) RemovePrize(ctx context.Context, rank int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.guardPrizes(ctx); err != nil {
		return err
	}
	next, err := c.prizes.Remove(rank)
	if err != nil {
		return err
	}
	return c.savePrizes(ctx, next)
}

// SetCapacity changes the entry limit; nil means unlimited. Once an open
// event has entries the limit can only be raised.
func (c *EventCoordinator) SetCapacity(ctx context.Context, limit *int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.guard(ctx, raffle.OpSetCapacity)
	if err != nil {
		return err
	}
	count := c.ledger.Count()
	current, limited := c.ledger.Capacity()

	switch {
	case limit != nil && *limit < 1:
		return &raffle.CapacityError{Requested: limit, Current: ev.Capacity, Entries: count, Reason: "capacity must be at least 1"}
	case limit != nil && *limit < count:
		return &raffle.CapacityError{Requested: limit, Current: ev.Capacity, Entries: count, Reason: fmt.Sprintf("%d entries already exist", count)}
	case ev.Phase != raffle.PhaseDraft && count > 0 && limit != nil && (!limited || *limit < current):
		return &raffle.CapacityError{Requested: limit, Current: ev.Capacity, Entries: count, Reason: "capacity can only be raised once entries exist"}
	case ev.Phase != raffle.PhaseDraft && limit != nil && *limit < c.prizes.TotalQuota():
		return &raffle.CapacityError{Requested: limit, Current: ev.Capacity, Entries: count, Reason: fmt.Sprintf("prizes need %d winners", c.prizes.TotalQuota())}
	}

	if limit != nil {
		n := *limit
		limit = &n
	}
	ev.Capacity = limit
	if err := c.store.UpdateEvent(context.WithoutCancel(ctx), &ev); err != nil {
		return fmt.Errorf("failed to update capacity: %w", err)
	}
	if err := c.ledger.SetCapacity(limit); err != nil {
		return err
	}
	c.setEvent(ev)
	return nil
}

// SetWindow changes the entry window of a draft event.
func (c *EventCoordinator) SetWindow(ctx context.Context, openAt, closeAt time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.guard(ctx, raffle.OpSetWindow)
	if err != nil {
		return err
	}
	if err := checkWindow(openAt, closeAt); err != nil {
		return err
	}
	ev.OpenAt, ev.CloseAt = openAt.UTC(), closeAt.UTC()
	if err := c.store.UpdateEvent(context.WithoutCancel(ctx), &ev); err != nil {
		return fmt.Errorf("failed to update window: %w", err)
	}
	c.setEvent(ev)
	return nil
}

// Open moves a ready draft to Open.
func (c *EventCoordinator) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.guard(ctx, raffle.OpOpen)
	if err != nil {
		return err
	}

	var reasons []string
	if err := c.schema.Ready(); err != nil {
		reasons = append(reasons, err.Error())
	}
	if c.prizes.Len() == 0 {
		reasons = append(reasons, "at least one prize is required")
	}
	if ev.Capacity != nil && c.prizes.TotalQuota() > *ev.Capacity {
		reasons = append(reasons, (&raffle.QuotaExceedsCapacityError{Quota: c.prizes.TotalQuota(), Capacity: *ev.Capacity}).Error())
	}
	if !ev.OpenAt.Before(ev.CloseAt) {
		reasons = append(reasons, "open time must be before close time")
	}
	if !c.now().Before(ev.CloseAt) {
		reasons = append(reasons, "close time has already passed")
	}
	if len(reasons) > 0 {
		return &raffle.ConfigurationError{Reasons: reasons}
	}

	if err := raffle.Transition(ev.Phase, raffle.PhaseOpen); err != nil {
		return err
	}
	ev.Phase = raffle.PhaseOpen
	if err := c.store.UpdateEvent(context.WithoutCancel(ctx), &ev); err != nil {
		return fmt.Errorf("failed to open event: %w", err)
	}
	c.setEvent(ev)

	logger.Infof("[EventCoordinator] Event %s opened (window %s - %s)", ev.ID, ev.OpenAt.Format(time.RFC3339), ev.CloseAt.Format(time.RFC3339))
	c.publish(ctx, notify.Message{Type: notify.EventOpened, EventID: ev.ID.String(), Phase: string(ev.Phase)})
	return nil
}

// Close ends the entry window now. It reports false when the event was
// already closed, by the deadline or an earlier call.
func (c *EventCoordinator) Close(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired {
		return false, ErrEventNotFound
	}
	closedByDeadline, err := c.observeDeadline(ctx)
	if err != nil || closedByDeadline {
		return false, err
	}

	phase := c.Phase()
	if phase == raffle.PhaseClosed || phase == raffle.PhaseDrawn {
		return false, nil
	}
	if err := raffle.Guard(phase, raffle.OpClose); err != nil {
		return false, err
	}
	if err := c.closeLocked(ctx, models.CloseReasonOperator); err != nil {
		return false, err
	}
	return true, nil
}

// CloseIfDue closes the event when its close time has passed.
func (c *EventCoordinator) CloseIfDue(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired {
		return false, nil
	}
	return c.observeDeadline(ctx)
}

// RunDraw draws winners once. With a nil seed the seed is derived from the
// close time and nonce.
func (c *EventCoordinator) RunDraw(ctx context.Context, seed *uint64, nonce string) (raffle.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev, err := c.guard(ctx, raffle.OpDraw)
	if err != nil {
		return raffle.Result{}, err
	}

	drawSeed := raffle.DeriveSeed(ev.CloseAt, nonce)
	if seed != nil {
		drawSeed = *seed
	}

	result, err := raffle.Draw(c.ledger.All(), c.prizes.Prizes(), drawSeed)
	if err != nil {
		var insufficient *raffle.InsufficientEntriesError
		if errors.As(err, &insufficient) {
			logger.Errorf("[EventCoordinator] Refusing to draw event %s: %v", ev.ID, err)
		}
		return raffle.Result{}, err
	}

	if err := raffle.Transition(ev.Phase, raffle.PhaseDrawn); err != nil {
		return raffle.Result{}, err
	}
	now := c.now().UTC()
	seedText := strconv.FormatUint(drawSeed, 10)
	digest := result.Digest
	ev.Phase = raffle.PhaseDrawn
	ev.DrawSeed = &seedText
	ev.ResultDigest = &digest
	ev.DrawnAt = &now
	if nonce != "" {
		ev.DrawNonce = &nonce
	}

	if err := c.store.SaveDrawResult(context.WithoutCancel(ctx), &ev, models.NewWinnerRows(ev.ID, result)); err != nil {
		return raffle.Result{}, fmt.Errorf("failed to store draw result: %w", err)
	}

	c.state.Lock()
	c.event = ev
	c.result = &result
	c.state.Unlock()

	logger.Infof("[EventCoordinator] Event %s drawn: %d winners from %d entries (digest %s)",
		ev.ID, result.WinnerCount(), result.EntryCount, result.Digest)
	c.publish(ctx, notify.Message{
		Type:       notify.EventDrawn,
		EventID:    ev.ID.String(),
		Phase:      string(ev.Phase),
		EntryCount: result.EntryCount,
		Digest:     result.Digest,
	})
	return result, nil
}

// retire builds the archive document, hands it to fn and, when fn succeeds,
// marks the coordinator unusable.
func (c *EventCoordinator) retire(ctx context.Context, fn func(doc *models.EventArchive) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired {
		return ErrEventNotFound
	}
	c.state.RLock()
	doc := &models.EventArchive{
		Event:      c.event,
		Fields:     c.schema.Fields(),
		Prizes:     c.prizes.Prizes(),
		Entries:    c.ledger.All(),
		ArchivedAt: c.now().UTC(),
	}
	if c.result != nil {
		r := *c.result
		doc.Result = &r
	}
	c.state.RUnlock()

	if err := fn(doc); err != nil {
		return err
	}
	c.retired = true
	return nil
}

// guard must be called with c.mu held. It applies a due deadline first so
// that the phase check sees the current phase.
func (c *EventCoordinator) guard(ctx context.Context, op raffle.Operation) (models.Event, error) {
	if c.retired {
		return models.Event{}, ErrEventNotFound
	}
	if _, err := c.observeDeadline(ctx); err != nil {
		return models.Event{}, err
	}
	c.state.RLock()
	ev := c.event
	c.state.RUnlock()
	if err := raffle.Guard(ev.Phase, op); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

func (c *EventCoordinator) guardPrizes(ctx context.Context) error {
	ev, err := c.guard(ctx, raffle.OpEditPrizes)
	if err != nil {
		return err
	}
	if ev.Phase != raffle.PhaseDraft && c.ledger.Count() > 0 {
		return raffle.ErrPrizesFrozen
	}
	return nil
}

// checkQuota rejects a winner total the entry limit of an open event can
// never satisfy. Drafts are only checked when they open.
func (c *EventCoordinator) checkQuota(total int) error {
	c.state.RLock()
	phase := c.event.Phase
	c.state.RUnlock()
	if phase == raffle.PhaseDraft {
		return nil
	}
	if limit, limited := c.ledger.Capacity(); limited && total > limit {
		return &raffle.QuotaExceedsCapacityError{Quota: total, Capacity: limit}
	}
	return nil
}

// observeDeadline must be called with c.mu held.
func (c *EventCoordinator) observeDeadline(ctx context.Context) (bool, error) {
	c.state.RLock()
	phase, closeAt := c.event.Phase, c.event.CloseAt
	c.state.RUnlock()

	if phase != raffle.PhaseOpen || c.now().Before(closeAt) {
		return false, nil
	}
	if err := c.closeLocked(ctx, models.CloseReasonDeadline); err != nil {
		return false, err
	}
	return true, nil
}

// closeLocked must be called with c.mu held and the event open.
func (c *EventCoordinator) closeLocked(ctx context.Context, reason models.CloseReason) error {
	c.state.RLock()
	ev := c.event
	c.state.RUnlock()

	if err := raffle.Transition(ev.Phase, raffle.PhaseClosed); err != nil {
		return err
	}
	now := c.now().UTC()
	ev.Phase = raffle.PhaseClosed
	ev.CloseReason = &reason
	ev.ClosedAt = &now
	if reason == models.CloseReasonOperator {
		ev.CloseAt = now
	}
	if err := c.store.UpdateEvent(context.WithoutCancel(ctx), &ev); err != nil {
		return fmt.Errorf("failed to close event: %w", err)
	}
	c.setEvent(ev)

	logger.Infof("[EventCoordinator] Event %s closed (%s) with %d entries", ev.ID, reason, c.ledger.Count())
	c.publish(ctx, notify.Message{
		Type:       notify.EventClosed,
		EventID:    ev.ID.String(),
		Phase:      string(ev.Phase),
		EntryCount: c.ledger.Count(),
		Reason:     string(reason),
	})
	return nil
}

func (c *EventCoordinator) saveSchema(ctx context.Context, next raffle.FieldSchema) error {
	id := c.ID()
	if err := c.store.ReplaceFields(context.WithoutCancel(ctx), id, models.NewFieldRows(id, next)); err != nil {
		return fmt.Errorf("failed to store schema: %w", err)
	}
	c.state.Lock()
	c.schema = next
	c.state.Unlock()
	return nil
}

func (c *EventCoordinator) savePrizes(ctx context.Context, next raffle.PrizeTable) error {
	id := c.ID()
	if err := c.store.ReplacePrizes(context.WithoutCancel(ctx), id, models.NewPrizeRows(id, next)); err != nil {
		return fmt.Errorf("failed to store prizes: %w", err)
	}
	c.state.Lock()
	c.prizes = next
	c.state.Unlock()
	return nil
}

func (c *EventCoordinator) setEvent(ev models.Event) {
	c.state.Lock()
	c.event = ev
	c.state.Unlock()
}

func (c *EventCoordinator) publish(ctx context.Context, msg notify.Message) {
	if c.publisher == nil {
		return
	}
	msg.OccurredAt = c.now().UTC()
	if err := c.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		logger.Warningf("[EventCoordinator] Failed to publish %s for %s: %v", msg.Type, msg.EventID, err)
	}
}

func checkWindow(openAt, closeAt time.Time) error {
	if openAt.IsZero() || closeAt.IsZero() || !openAt.Before(closeAt) {
		return &raffle.ValidationError{Problems: []raffle.FieldProblem{{
			Field: "close_at", Code: raffle.ProblemInvalidField, Message: "open time must be before close time",
		}}}
	}
	return nil
}
