package raffle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownField      = errors.New("unknown field")
	ErrMissingField      = errors.New("missing required field")
	ErrFieldNotFound     = errors.New("field not found")
	ErrMultipleDedupKeys = errors.New("schema already has a dedup key field")
	ErrPrizeNotFound     = errors.New("prize not found")
	ErrPrizesFrozen      = errors.New("prize table cannot change once entries exist")
	ErrNoPrizes          = errors.New("prize table is empty")
	ErrNotYetOpen        = errors.New("entry window has not started")

	// Matched by *InvalidPhaseError through errors.Is.
	ErrEventClosed  = errors.New("event is closed")
	ErrAlreadyDrawn = errors.New("event has already been drawn")
	ErrNotClosed    = errors.New("event is not closed")
)

// ProblemCode classifies a single field problem inside a ValidationError.
type ProblemCode string

const (
	ProblemMissing         ProblemCode = "missing"
	ProblemUnknown         ProblemCode = "unknown"
	ProblemInvalidFormat   ProblemCode = "invalid_format"
	ProblemMissingDedupKey ProblemCode = "missing_dedup_key"
	ProblemInvalidField    ProblemCode = "invalid_field"
	ProblemDuplicateField  ProblemCode = "duplicate_field"
)

// FieldProblem describes why one field of a submission or definition was rejected.
type FieldProblem struct {
	Field   string      `json:"field"`
	Code    ProblemCode `json:"code"`
	Message string      `json:"message"`
}

// ValidationError is returned when a raw submission (or a field definition)
// does not satisfy the schema. It lists every problem found.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Field, p.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrUnknownField:
		return e.has(ProblemUnknown)
	case ErrMissingField:
		return e.has(ProblemMissing)
	}
	return false
}

func (e *ValidationError) has(code ProblemCode) bool {
	for _, p := range e.Problems {
		if p.Code == code {
			return true
		}
	}
	return false
}

type DuplicateEntryError struct {
	DedupKey     string
	PriorEntryID int64
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("already entered: %q matches entry #%d", e.DedupKey, e.PriorEntryID)
}

type CapacityExceededError struct {
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("event is full (capacity %d)", e.Capacity)
}

// CapacityError rejects a capacity change.
type CapacityError struct {
	Requested *int
	Current   *int
	Entries   int
	Reason    string
}

func (e *CapacityError) Error() string {
	return "invalid capacity: " + e.Reason
}

// InvalidPhaseError reports an operation attempted in a phase that does not allow it.
type InvalidPhaseError struct {
	Op    Operation
	Phase Phase
}

func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("%s is not allowed while the event is %s", e.Op, e.Phase)
}

func (e *InvalidPhaseError) Is(target error) bool {
	switch target {
	case ErrEventClosed:
		return e.Op == OpSubmit && (e.Phase == PhaseClosed || e.Phase == PhaseDrawn)
	case ErrAlreadyDrawn:
		return e.Op == OpDraw && e.Phase == PhaseDrawn
	case ErrNotClosed:
		return e.Op == OpDraw && (e.Phase == PhaseDraft || e.Phase == PhaseOpen)
	}
	return false
}

type LockedFieldError struct {
	Field string
}

func (e *LockedFieldError) Error() string {
	return fmt.Sprintf("field %q is locked and cannot be removed", e.Field)
}

type ImmutableFieldError struct {
	Field string
	Op    string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("field %q is locked: %s not permitted", e.Field, e.Op)
}

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("field %q already exists", e.Name)
}

// InsufficientEntriesError is fatal for a draw: the prize table promises
// more winners than there are entries.
type InsufficientEntriesError struct {
	Required  int
	Available int
}

func (e *InsufficientEntriesError) Error() string {
	return fmt.Sprintf("draw needs %d winners but only %d entries exist", e.Required, e.Available)
}

// QuotaExceedsCapacityError rejects a prize table that promises more winners
// than the entry limit can ever admit.
type QuotaExceedsCapacityError struct {
	Quota    int
	Capacity int
}

func (e *QuotaExceedsCapacityError) Error() string {
	return fmt.Sprintf("total winner quota %d exceeds capacity %d", e.Quota, e.Capacity)
}

// ConfigurationError lists every unmet condition blocking Draft -> Open.
type ConfigurationError struct {
	Reasons []string
}

func (e *ConfigurationError) Error() string {
	return "event is not ready to open: " + strings.Join(e.Reasons, "; ")
}

// Code returns a stable machine-readable code for err, or "internal" when
// err is not a domain error.
func Code(err error) string {
	var (
		validation   *ValidationError
		duplicate    *DuplicateEntryError
		full         *CapacityExceededError
		capacity     *CapacityError
		phase        *InvalidPhaseError
		locked       *LockedFieldError
		immutable    *ImmutableFieldError
		name         *DuplicateNameError
		insufficient *InsufficientEntriesError
		quota        *QuotaExceedsCapacityError
		config       *ConfigurationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation_failed"
	case errors.As(err, &duplicate):
		return "duplicate_entry"
	case errors.As(err, &full):
		return "capacity_exceeded"
	case errors.As(err, &capacity):
		return "invalid_capacity"
	case errors.Is(err, ErrEventClosed):
		return "event_closed"
	case errors.Is(err, ErrAlreadyDrawn):
		return "already_drawn"
	case errors.Is(err, ErrNotClosed):
		return "not_closed"
	case errors.As(err, &phase):
		return "invalid_phase"
	case errors.As(err, &locked):
		return "locked_field"
	case errors.As(err, &immutable):
		return "immutable_field"
	case errors.As(err, &name):
		return "duplicate_name"
	case errors.As(err, &insufficient):
		return "insufficient_entries"
	case errors.As(err, &quota):
		return "quota_exceeds_capacity"
	case errors.As(err, &config):
		return "not_ready"
	case errors.Is(err, ErrNotYetOpen):
		return "not_yet_open"
	case errors.Is(err, ErrPrizesFrozen):
		return "prizes_frozen"
	case errors.Is(err, ErrFieldNotFound):
		return "field_not_found"
	case errors.Is(err, ErrPrizeNotFound):
		return "prize_not_found"
	case errors.Is(err, ErrMultipleDedupKeys):
		return "multiple_dedup_keys"
	case errors.Is(err, ErrNoPrizes):
		return "no_prizes"
	}
	return "internal"
}
