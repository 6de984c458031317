package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"raffle-admin/internal/database"
	"raffle-admin/internal/lock"
	"raffle-admin/internal/models"
	"raffle-admin/internal/notify"
	"raffle-admin/internal/raffle"
	"raffle-admin/internal/repository"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ EventStore = (*repository.Repository)(nil)

func setupTestDB(t *testing.T) *gorm.DB {
	// Each test gets its own named in-memory database; a single connection
	// keeps sqlite from reporting the shared cache as locked.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingArchiver struct {
	docs []*models.EventArchive
	err  error
}

func (a *recordingArchiver) Archive(_ context.Context, doc *models.EventArchive) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.docs = append(a.docs, doc)
	return "test/" + doc.Event.ID.String() + ".json", nil
}

type testEnv struct {
	db        *gorm.DB
	service   *EventService
	clock     *testClock
	publisher *notify.LogPublisher
	archiver  *recordingArchiver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:        setupTestDB(t),
		clock:     &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
		publisher: notify.NewLogPublisher(),
		archiver:  &recordingArchiver{},
	}
	env.service = env.newService()
	return env
}

// newService builds a fresh registry over the same database, as a restarted
// process would.
func (env *testEnv) newService() *EventService {
	s := NewEventService(repository.NewRepository(env.db), lock.NewLocalLock(), env.publisher, nil, env.archiver, "https://raffle.example.com/e")
	s.SetClock(env.clock.Now)
	return s
}

func ethAddr(i int) string {
	return fmt.Sprintf("0x%040x", i)
}

func intPtr(n int) *int { return &n }

func seedPtr(n uint64) *uint64 { return &n }

// createOpenEvent creates an event with the default schema and one prize
// tier per quota, and opens it.
func (env *testEnv) createOpenEvent(t *testing.T, capacity *int, quotas ...int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := env.clock.Now()

	view, err := env.service.CreateEvent(ctx, 7, models.CreateEventRequest{
		Name:     "Spring Airdrop",
		OpenAt:   now.Add(-time.Hour),
		CloseAt:  now.Add(time.Hour),
		Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	for i, q := range quotas {
		if _, err := env.service.AddPrize(ctx, view.ID, models.AddPrizeRequest{Name: fmt.Sprintf("tier %d", i+1), WinnerQuota: q}); err != nil {
			t.Fatalf("AddPrize: %v", err)
		}
	}
	if err := env.service.Open(ctx, view.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return view.ID
}

func (env *testEnv) submit(t *testing.T, id uuid.UUID, i int) raffle.Entry {
	t.Helper()
	entry, err := env.service.Submit(context.Background(), id, map[string]string{
		raffle.FieldETHAddress: ethAddr(i),
		raffle.FieldName:       fmt.Sprintf("참가자%d", i),
	}, "")
	if err != nil {
		t.Fatalf("Submit %d: %v", i, err)
	}
	return entry
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	view, err := env.service.CreateEvent(ctx, 7, models.CreateEventRequest{
		Name:    "Spring Airdrop",
		OpenAt:  now,
		CloseAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if view.Phase != raffle.PhaseDraft {
		t.Errorf("expected draft, got %s", view.Phase)
	}
	if !strings.HasPrefix(view.Slug, "spring-airdrop-") {
		t.Errorf("unexpected slug %q", view.Slug)
	}
	if view.EntryURL != "https://raffle.example.com/e/"+view.Slug {
		t.Errorf("unexpected entry url %q", view.EntryURL)
	}
	if len(view.Fields) != 5 {
		t.Errorf("expected default fields, got %+v", view.Fields)
	}

	_, err = env.service.CreateEvent(ctx, 7, models.CreateEventRequest{Name: "bad", OpenAt: now, CloseAt: now})
	var ve *raffle.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError for empty window, got %v", err)
	}

	events, err := env.service.ListEvents(ctx, 7)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != view.ID {
		t.Errorf("unexpected event list %+v", events)
	}
	if other, _ := env.service.ListEvents(ctx, 8); len(other) != 0 {
		t.Errorf("owner 8 should see no events, got %+v", other)
	}
}

func TestOpenRequiresReadyEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	view, _ := env.service.CreateEvent(ctx, 1, models.CreateEventRequest{
		Name: "x", OpenAt: now, CloseAt: now.Add(time.Hour), BlankSchema: true,
	})

	err := env.service.Open(ctx, view.ID)
	var ce *raffle.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(ce.Reasons) != 2 {
		t.Errorf("expected missing required field and prize, got %v", ce.Reasons)
	}

	if _, err := env.service.AddField(ctx, view.ID, models.AddFieldRequest{Name: "wallet", Required: true, DedupKey: true}); err != nil {
		t.Fatalf("AddField: %v", err)
	}
	if _, err := env.service.AddPrize(ctx, view.ID, models.AddPrizeRequest{Name: "grand", WinnerQuota: 1}); err != nil {
		t.Fatalf("AddPrize: %v", err)
	}
	if err := env.service.Open(ctx, view.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := env.service.AddField(ctx, view.ID, models.AddFieldRequest{Name: "late"}); !errors.As(err, new(*raffle.InvalidPhaseError)) {
		t.Errorf("schema edits after open should fail with InvalidPhaseError, got %v", err)
	}
}

func TestSubmitScenarios(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)

	env.submit(t, id, 1)

	_, err := env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: "  " + ethAddr(1) + " "}, "")
	var dup *raffle.DuplicateEntryError
	if !errors.As(err, &dup) || dup.PriorEntryID != 1 {
		t.Errorf("expected duplicate of entry 1, got %v", err)
	}

	_, err = env.service.Submit(ctx, id, map[string]string{raffle.FieldName: "no wallet"}, "")
	if !errors.Is(err, raffle.ErrMissingField) {
		t.Errorf("expected missing field, got %v", err)
	}

	_, err = env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(2), "twitter": "@x"}, "")
	if !errors.Is(err, raffle.ErrUnknownField) {
		t.Errorf("expected unknown field, got %v", err)
	}

	second := env.submit(t, id, 2)
	if second.ID != 2 {
		t.Errorf("rejected submissions must not consume ids, got %d", second.ID)
	}
}

func TestSubmitOutsideOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	draft, _ := env.service.CreateEvent(ctx, 1, models.CreateEventRequest{Name: "d", OpenAt: now, CloseAt: now.Add(time.Hour)})
	_, err := env.service.Submit(ctx, draft.ID, map[string]string{raffle.FieldETHAddress: ethAddr(1)}, "")
	var pe *raffle.InvalidPhaseError
	if !errors.As(err, &pe) || pe.Phase != raffle.PhaseDraft {
		t.Errorf("expected InvalidPhaseError in draft, got %v", err)
	}

	id := env.createOpenEvent(t, nil, 1)
	env.submit(t, id, 1)
	if _, err := env.service.Close(ctx, id); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err = env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(2)}, "")
	if !errors.Is(err, raffle.ErrEventClosed) || !errors.As(err, &pe) {
		t.Errorf("expected EventClosed after close, got %v", err)
	}

	if _, err := env.service.RunDraw(ctx, id, seedPtr(1), ""); err != nil {
		t.Fatalf("RunDraw: %v", err)
	}
	_, err = env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(3)}, "")
	if !errors.Is(err, raffle.ErrEventClosed) {
		t.Errorf("expected EventClosed after draw, got %v", err)
	}
}

func TestSubmitBeforeOpenAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	view, _ := env.service.CreateEvent(ctx, 1, models.CreateEventRequest{Name: "later", OpenAt: now.Add(time.Hour), CloseAt: now.Add(2 * time.Hour)})
	env.service.AddPrize(ctx, view.ID, models.AddPrizeRequest{Name: "p", WinnerQuota: 1})
	if err := env.service.Open(ctx, view.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err := env.service.Submit(ctx, view.ID, map[string]string{raffle.FieldETHAddress: ethAddr(1)}, "")
	if !errors.Is(err, raffle.ErrNotYetOpen) {
		t.Errorf("expected ErrNotYetOpen, got %v", err)
	}

	env.clock.Advance(time.Hour)
	env.submit(t, view.ID, 1)
}

func TestConcurrentSubmitCapacityTwo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, intPtr(2), 1)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(i)}, "")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent submit failed: %v", err)
		}
	}

	_, err := env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(3)}, "")
	var full *raffle.CapacityExceededError
	if !errors.As(err, &full) {
		t.Fatalf("expected CapacityExceededError, got %v", err)
	}

	entries, _ := env.service.GetEntries(ctx, id)
	if len(entries) != 2 || entries[0].ID != 1 || entries[1].ID != 2 {
		t.Errorf("expected ids 1,2, got %+v", entries)
	}

	var stored int64
	env.db.Model(&models.EventEntry{}).Where("event_id = ?", id).Count(&stored)
	if stored != 2 {
		t.Errorf("expected 2 stored entries, got %d", stored)
	}
}

func TestConcurrentSubmitManyRacers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, intPtr(15), 1)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every key appears twice so duplicates race too
			env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(i % 20)}, "")
		}(i)
	}
	wg.Wait()

	entries, _ := env.service.GetEntries(ctx, id)
	if len(entries) != 15 {
		t.Fatalf("expected ledger to fill to 15, got %d", len(entries))
	}
	keys := map[string]bool{}
	for i, e := range entries {
		if e.ID != int64(i+1) {
			t.Fatalf("gap in ids at %d: %d", i, e.ID)
		}
		if keys[e.DedupKey] {
			t.Fatalf("duplicate key %s admitted", e.DedupKey)
		}
		keys[e.DedupKey] = true
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)

	env.clock.Advance(2 * time.Hour)
	closed, err := env.service.CloseDueEvents(ctx)
	if err != nil {
		t.Fatalf("CloseDueEvents: %v", err)
	}
	if closed != 1 {
		t.Errorf("expected 1 event closed by deadline, got %d", closed)
	}

	changed, err := env.service.Close(ctx, id)
	if err != nil || changed {
		t.Errorf("explicit close after deadline should be a no-op, got %v %v", changed, err)
	}
	if again, _ := env.service.CloseDueEvents(ctx); again != 0 {
		t.Errorf("deadline should not fire twice, closed %d", again)
	}

	view, _ := env.service.GetEvent(ctx, id)
	if view.Phase != raffle.PhaseClosed {
		t.Errorf("expected closed, got %s", view.Phase)
	}
	if view.CloseReason == nil || *view.CloseReason != models.CloseReasonDeadline {
		t.Errorf("expected deadline close reason, got %v", view.CloseReason)
	}

	var closedMessages int
	for _, m := range env.publisher.Messages() {
		if m.Type == notify.EventClosed && m.EventID == id.String() {
			closedMessages++
		}
	}
	if closedMessages != 1 {
		t.Errorf("expected one close message, got %d", closedMessages)
	}
}

func TestExplicitCloseRewritesCloseAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)

	env.clock.Advance(10 * time.Minute)
	changed, err := env.service.Close(ctx, id)
	if err != nil || !changed {
		t.Fatalf("Close: %v %v", changed, err)
	}
	view, _ := env.service.GetEvent(ctx, id)
	if !view.CloseAt.Equal(env.clock.Now()) {
		t.Errorf("expected close time rewritten to now, got %v", view.CloseAt)
	}
	if *view.CloseReason != models.CloseReasonOperator {
		t.Errorf("expected operator close reason, got %s", *view.CloseReason)
	}

	env.clock.Advance(2 * time.Hour)
	if n, _ := env.service.CloseDueEvents(ctx); n != 0 {
		t.Errorf("deadline after explicit close must be a no-op, closed %d", n)
	}

	now := env.clock.Now()
	draft, _ := env.service.CreateEvent(ctx, 1, models.CreateEventRequest{Name: "d", OpenAt: now, CloseAt: now.Add(time.Hour)})
	if _, err := env.service.Close(ctx, draft.ID); !errors.As(err, new(*raffle.InvalidPhaseError)) {
		t.Errorf("closing a draft should fail with InvalidPhaseError, got %v", err)
	}
}

func TestSubmitAfterDeadlineClosesLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)

	env.clock.Advance(time.Hour)
	_, err := env.service.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(1)}, "")
	if !errors.Is(err, raffle.ErrEventClosed) {
		t.Fatalf("expected EventClosed at the deadline, got %v", err)
	}
	view, _ := env.service.GetEvent(ctx, id)
	if view.Phase != raffle.PhaseClosed {
		t.Errorf("expected closed, got %s", view.Phase)
	}
}

func TestRunDrawOnceAndReproducible(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)
	for i := 1; i <= 3; i++ {
		env.submit(t, id, i)
	}

	if _, err := env.service.RunDraw(ctx, id, seedPtr(42), ""); !errors.Is(err, raffle.ErrNotClosed) {
		t.Errorf("draw before close should fail with ErrNotClosed, got %v", err)
	}
	env.service.Close(ctx, id)

	first, err := env.service.RunDraw(ctx, id, seedPtr(42), "")
	if err != nil {
		t.Fatalf("RunDraw: %v", err)
	}
	if first.WinnerCount() != 1 {
		t.Fatalf("expected 1 winner, got %d", first.WinnerCount())
	}

	_, err = env.service.RunDraw(ctx, id, seedPtr(42), "")
	if !errors.Is(err, raffle.ErrAlreadyDrawn) {
		t.Fatalf("expected ErrAlreadyDrawn, got %v", err)
	}

	stored, err := env.service.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if !reflect.DeepEqual(*stored, first) {
		t.Errorf("result changed after second draw attempt: %+v vs %+v", stored, first)
	}

	entries, _ := env.service.GetEntries(ctx, id)
	expected, _ := raffle.Draw(entries, []raffle.Prize{{Rank: 1, Name: "tier 1", WinnerQuota: 1}}, 42)
	if expected.Digest != first.Digest {
		t.Errorf("coordinator draw differs from a pure replay")
	}

	// a restarted process restores and verifies the same result
	restarted := env.newService()
	restored, err := restarted.GetResult(ctx, id)
	if err != nil {
		t.Fatalf("GetResult after restart: %v", err)
	}
	if !reflect.DeepEqual(*restored, first) {
		t.Errorf("restored result differs: %+v vs %+v", restored, first)
	}
	if _, err := restarted.RunDraw(ctx, id, seedPtr(42), ""); !errors.Is(err, raffle.ErrAlreadyDrawn) {
		t.Errorf("expected ErrAlreadyDrawn after restart, got %v", err)
	}
}

func TestRunDrawInsufficientEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 2, 2)
	for i := 1; i <= 3; i++ {
		env.submit(t, id, i)
	}
	env.service.Close(ctx, id)

	_, err := env.service.RunDraw(ctx, id, seedPtr(1), "")
	var ie *raffle.InsufficientEntriesError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InsufficientEntriesError, got %v", err)
	}
	view, _ := env.service.GetEvent(ctx, id)
	if view.Phase != raffle.PhaseClosed || view.Result != nil {
		t.Errorf("failed draw must leave the event closed without result: %s", view.Phase)
	}
	if _, err := env.service.GetResult(ctx, id); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
}

func TestRunDrawWithNonce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)
	for i := 1; i <= 5; i++ {
		env.submit(t, id, i)
	}
	env.service.Close(ctx, id)
	view, _ := env.service.GetEvent(ctx, id)

	result, err := env.service.RunDraw(ctx, id, nil, "block-19000000")
	if err != nil {
		t.Fatalf("RunDraw: %v", err)
	}
	if result.Seed != raffle.DeriveSeed(view.CloseAt, "block-19000000") {
		t.Errorf("seed was not derived from close time and nonce")
	}
}

func TestPrizeAndCapacityPolicyAfterEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, intPtr(10), 1)

	// no entries yet: prizes may still change while open
	if _, err := env.service.AddPrize(ctx, id, models.AddPrizeRequest{Name: "extra", WinnerQuota: 1}); err != nil {
		t.Fatalf("AddPrize on empty open event: %v", err)
	}
	env.submit(t, id, 1)

	if _, err := env.service.AddPrize(ctx, id, models.AddPrizeRequest{Name: "late", WinnerQuota: 1}); !errors.Is(err, raffle.ErrPrizesFrozen) {
		t.Errorf("expected ErrPrizesFrozen, got %v", err)
	}
	if err := env.service.RemovePrize(ctx, id, 1); !errors.Is(err, raffle.ErrPrizesFrozen) {
		t.Errorf("expected ErrPrizesFrozen, got %v", err)
	}

	var ce *raffle.CapacityError
	if err := env.service.SetCapacity(ctx, id, intPtr(5)); !errors.As(err, &ce) {
		t.Errorf("lowering capacity should fail, got %v", err)
	}
	if err := env.service.SetCapacity(ctx, id, intPtr(20)); err != nil {
		t.Errorf("raising capacity: %v", err)
	}
	if err := env.service.SetCapacity(ctx, id, nil); err != nil {
		t.Errorf("removing the limit is a raise: %v", err)
	}
	if err := env.service.SetCapacity(ctx, id, intPtr(30)); !errors.As(err, &ce) {
		t.Errorf("limiting an unlimited event with entries should fail, got %v", err)
	}

	env.service.Close(ctx, id)
	if _, err := env.service.AddPrize(ctx, id, models.AddPrizeRequest{Name: "closed", WinnerQuota: 1}); !errors.As(err, new(*raffle.InvalidPhaseError)) {
		t.Errorf("expected InvalidPhaseError after close, got %v", err)
	}
}

func TestWinnerQuotaMustFitCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	view, err := env.service.CreateEvent(ctx, 7, models.CreateEventRequest{
		Name: "Tiny", OpenAt: now.Add(-time.Hour), CloseAt: now.Add(time.Hour), Capacity: intPtr(1),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := env.service.AddPrize(ctx, view.ID, models.AddPrizeRequest{Name: "grand", WinnerQuota: 3}); err != nil {
		t.Fatalf("drafts may hold any quota until they open: %v", err)
	}

	var ce *raffle.ConfigurationError
	if err := env.service.Open(ctx, view.ID); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if len(ce.Reasons) != 1 || !strings.Contains(ce.Reasons[0], "total winner quota 3 exceeds capacity 1") {
		t.Errorf("unexpected reasons %v", ce.Reasons)
	}

	if err := env.service.SetCapacity(ctx, view.ID, intPtr(3)); err != nil {
		t.Fatalf("SetCapacity: %v", err)
	}
	if err := env.service.Open(ctx, view.ID); err != nil {
		t.Fatalf("Open: %v", err)
	}

	var qe *raffle.QuotaExceedsCapacityError
	if _, err := env.service.AddPrize(ctx, view.ID, models.AddPrizeRequest{Name: "extra", WinnerQuota: 1}); !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceedsCapacityError, got %v", err)
	}
	if qe.Quota != 4 || qe.Capacity != 3 || raffle.Code(qe) != "quota_exceeds_capacity" {
		t.Errorf("unexpected quota error %+v", qe)
	}

	var capErr *raffle.CapacityError
	if err := env.service.SetCapacity(ctx, view.ID, intPtr(2)); !errors.As(err, &capErr) {
		t.Errorf("capacity below the winner quota should fail, got %v", err)
	}
	if err := env.service.SetCapacity(ctx, view.ID, nil); err != nil {
		t.Fatalf("removing the limit: %v", err)
	}
	if _, err := env.service.AddPrize(ctx, view.ID, models.AddPrizeRequest{Name: "extra", WinnerQuota: 1}); err != nil {
		t.Fatalf("AddPrize without a limit: %v", err)
	}
	if err := env.service.SetCapacity(ctx, view.ID, intPtr(3)); !errors.As(err, &capErr) {
		t.Errorf("capacity below the winner quota should fail, got %v", err)
	}
	if err := env.service.SetCapacity(ctx, view.ID, intPtr(4)); err != nil {
		t.Errorf("capacity equal to the winner quota: %v", err)
	}

	for i := 1; i <= 4; i++ {
		env.submit(t, view.ID, i)
	}
	if _, err := env.service.Close(ctx, view.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	result, err := env.service.RunDraw(ctx, view.ID, seedPtr(11), "")
	if err != nil {
		t.Fatalf("RunDraw: %v", err)
	}
	if result.WinnerCount() != 4 {
		t.Errorf("expected 4 winners, got %d", result.WinnerCount())
	}
}

func TestImportEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, intPtr(2), 1)

	report, err := env.service.ImportEntries(ctx, id, []models.ImportRow{
		{Values: map[string]string{raffle.FieldETHAddress: ethAddr(1)}},
		{Values: map[string]string{raffle.FieldETHAddress: ethAddr(1)}},
		{Values: map[string]string{raffle.FieldName: "missing wallet"}},
		{Values: map[string]string{raffle.FieldETHAddress: ethAddr(2)}},
		{Values: map[string]string{raffle.FieldETHAddress: ethAddr(3)}},
		{Values: map[string]string{raffle.FieldETHAddress: ethAddr(4)}},
	})
	if err != nil {
		t.Fatalf("ImportEntries: %v", err)
	}

	want := []struct {
		status models.ImportStatus
		code   string
	}{
		{models.ImportAccepted, ""},
		{models.ImportRejected, "duplicate_entry"},
		{models.ImportRejected, "validation_failed"},
		{models.ImportAccepted, ""},
		{models.ImportRejected, "capacity_exceeded"},
		{models.ImportSkipped, "capacity_exceeded"},
	}
	for i, w := range want {
		got := report.Rows[i]
		if got.Status != w.status || got.Code != w.code {
			t.Errorf("row %d: expected %s/%s, got %s/%s", i+1, w.status, w.code, got.Status, got.Code)
		}
	}
	if report.Accepted != 2 || report.Rejected != 3 || report.Skipped != 1 {
		t.Errorf("unexpected totals %+v", report)
	}
	if report.Rows[3].EntryID != 2 {
		t.Errorf("expected second accepted row to get id 2, got %d", report.Rows[3].EntryID)
	}
}

func TestRestartRestoresLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, intPtr(3), 1)
	env.submit(t, id, 1)
	env.submit(t, id, 2)

	restarted := env.newService()
	_, err := restarted.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(1)}, "")
	if !errors.As(err, new(*raffle.DuplicateEntryError)) {
		t.Errorf("restored ledger should still reject duplicates, got %v", err)
	}
	entry, err := restarted.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(3)}, "")
	if err != nil {
		t.Fatalf("Submit after restart: %v", err)
	}
	if entry.ID != 3 {
		t.Errorf("expected id 3 after restart, got %d", entry.ID)
	}
	if _, err := restarted.Submit(ctx, id, map[string]string{raffle.FieldETHAddress: ethAddr(4)}, ""); !errors.As(err, new(*raffle.CapacityExceededError)) {
		t.Errorf("restored capacity should apply, got %v", err)
	}
}

func TestOwnershipLockBlocksSecondInstance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)

	shared := lock.NewLocalLock()
	first := NewEventService(repository.NewRepository(env.db), shared, env.publisher, nil, nil, "")
	second := NewEventService(repository.NewRepository(env.db), shared, env.publisher, nil, nil, "")
	first.SetClock(env.clock.Now)
	second.SetClock(env.clock.Now)

	if _, err := first.GetEvent(ctx, id); err != nil {
		t.Fatalf("first instance: %v", err)
	}
	if _, err := second.GetEvent(ctx, id); !errors.Is(err, ErrEventBusy) {
		t.Errorf("expected ErrEventBusy for second instance, got %v", err)
	}

	first.Shutdown(ctx)
	if _, err := second.GetEvent(ctx, id); err != nil {
		t.Errorf("second instance should take over after shutdown: %v", err)
	}
}

func TestDeleteEventArchivesFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)
	env.submit(t, id, 1)
	env.service.Close(ctx, id)
	env.service.RunDraw(ctx, id, seedPtr(5), "")

	env.archiver.err = errors.New("bucket unavailable")
	if err := env.service.DeleteEvent(ctx, id); err == nil {
		t.Fatal("expected delete to fail when archiving fails")
	}
	if _, err := env.service.GetEvent(ctx, id); err != nil {
		t.Fatalf("event must survive a failed archive: %v", err)
	}

	env.archiver.err = nil
	if err := env.service.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if len(env.archiver.docs) != 1 {
		t.Fatalf("expected one archive document, got %d", len(env.archiver.docs))
	}
	doc := env.archiver.docs[0]
	if len(doc.Entries) != 1 || doc.Result == nil {
		t.Errorf("archive should carry entries and result: %+v", doc)
	}
	if _, err := env.service.GetEvent(ctx, id); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound after delete, got %v", err)
	}
}

func TestArchiveExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.createOpenEvent(t, nil, 1)
	env.submit(t, id, 1)
	env.service.Close(ctx, id)
	env.service.RunDraw(ctx, id, seedPtr(5), "")

	if n, _ := env.service.ArchiveExpired(ctx, 24*time.Hour); n != 0 {
		t.Errorf("fresh draw should not be archived, got %d", n)
	}
	env.clock.Advance(25 * time.Hour)
	n, err := env.service.ArchiveExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("ArchiveExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 archived event, got %d", n)
	}
}

func TestGetEventNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.service.GetEvent(context.Background(), uuid.New()); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestMaskEntries(t *testing.T) {
	schema := raffle.DefaultFieldSchema()
	entries := []raffle.Entry{{
		ID: 1,
		Values: map[string]string{
			raffle.FieldName:       "김철수",
			raffle.FieldEmail:      "kimchulsoo@gmail.com",
			raffle.FieldPhone:      "010-1234-5678",
			raffle.FieldETHAddress: "0x52908400098527886e0f7030069857d2e4169ee7",
		},
	}}

	masked := MaskEntries(schema, entries)[0].Values
	want := map[string]string{
		raffle.FieldName:       "김**",
		raffle.FieldEmail:      "kim***@gmail.com",
		raffle.FieldPhone:      "010-****-5678",
		raffle.FieldETHAddress: "0x5290…9ee7",
	}
	for k, v := range want {
		if masked[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, masked[k])
		}
	}
}
