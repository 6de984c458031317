package raffle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
)

type FieldKind string

const (
	FieldKindFixed  FieldKind = "fixed"
	FieldKindCustom FieldKind = "custom"
)

// FieldFormat constrains the shape of a non-empty field value.
type FieldFormat string

const (
	FormatText       FieldFormat = "text"
	FormatEmail      FieldFormat = "email"
	FormatPhone      FieldFormat = "phone"
	FormatETHAddress FieldFormat = "eth_address"
	FormatSOLAddress FieldFormat = "sol_address"
)

// Names of the fields every event starts with.
const (
	FieldName       = "이름"
	FieldEmail      = "이메일"
	FieldPhone      = "전화"
	FieldETHAddress = "ETH 주소"
	FieldSOLAddress = "SOL 주소"
)

var (
	validate     = validator.New()
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,19}$`)
)

type FieldDefinition struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Kind     FieldKind   `json:"kind"`
	Format   FieldFormat `json:"format"`
	Required bool        `json:"required"`
	Locked   bool        `json:"locked"`
	DedupKey bool        `json:"dedup_key"`
}

// ValidatedEntry is a submission that passed schema validation.
type ValidatedEntry struct {
	Values   map[string]string
	DedupKey string
}

// FieldSchema is an ordered, name-unique set of field definitions.
// It is a value: edits return a new schema and never touch the receiver.
type FieldSchema struct {
	fields []FieldDefinition
}

// NewFieldSchema builds a schema by adding defs in order.
func NewFieldSchema(defs ...FieldDefinition) (FieldSchema, error) {
	var s FieldSchema
	for _, def := range defs {
		next, err := s.Add(def)
		if err != nil {
			return FieldSchema{}, err
		}
		s = next
	}
	return s, nil
}

// DefaultFieldSchema returns the fields a new event starts with. The ETH
// address is the locked dedup key.
func DefaultFieldSchema() FieldSchema {
	s, err := NewFieldSchema(
		FieldDefinition{Name: FieldName, Kind: FieldKindFixed, Format: FormatText},
		FieldDefinition{Name: FieldEmail, Kind: FieldKindFixed, Format: FormatEmail},
		FieldDefinition{Name: FieldPhone, Kind: FieldKindFixed, Format: FormatPhone},
		FieldDefinition{Name: FieldETHAddress, Kind: FieldKindFixed, Format: FormatETHAddress, Required: true, Locked: true, DedupKey: true},
		FieldDefinition{Name: FieldSOLAddress, Kind: FieldKindFixed, Format: FormatSOLAddress},
	)
	if err != nil {
		panic(err)
	}
	return s
}

func (s FieldSchema) Fields() []FieldDefinition {
	out := make([]FieldDefinition, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s FieldSchema) Len() int {
	return len(s.fields)
}

func (s FieldSchema) Field(id int) (FieldDefinition, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.fields[i], true
	}
	return FieldDefinition{}, false
}

// Lookup finds a field by exact name.
func (s FieldSchema) Lookup(name string) (FieldDefinition, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

func (s FieldSchema) DedupField() (FieldDefinition, bool) {
	for _, f := range s.fields {
		if f.DedupKey {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// Add appends f, assigning the next free id when f.ID is zero.
func (s FieldSchema) Add(f FieldDefinition) (FieldSchema, error) {
	f.Name = strings.TrimSpace(f.Name)
	if f.Kind == "" {
		f.Kind = FieldKindCustom
	}
	if f.Format == "" {
		f.Format = FormatText
	}
	if err := checkDefinition(f); err != nil {
		return s, err
	}

	maxID := 0
	for _, existing := range s.fields {
		if strings.EqualFold(existing.Name, f.Name) {
			if existing.Locked {
				return s, &ImmutableFieldError{Field: existing.Name, Op: "add"}
			}
			return s, &DuplicateNameError{Name: f.Name}
		}
		if f.DedupKey && existing.DedupKey {
			return s, ErrMultipleDedupKeys
		}
		if existing.ID == f.ID && f.ID != 0 {
			return s, &ValidationError{Problems: []FieldProblem{{
				Field: f.Name, Code: ProblemInvalidField, Message: fmt.Sprintf("id %d already in use", f.ID),
			}}}
		}
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	if f.ID == 0 {
		f.ID = maxID + 1
	}

	next := make([]FieldDefinition, len(s.fields), len(s.fields)+1)
	copy(next, s.fields)
	return FieldSchema{fields: append(next, f)}, nil
}

func (s FieldSchema) Remove(id int) (FieldSchema, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, ErrFieldNotFound
	}
	if s.fields[i].Locked {
		return s, &LockedFieldError{Field: s.fields[i].Name}
	}
	next := make([]FieldDefinition, 0, len(s.fields)-1)
	next = append(next, s.fields[:i]...)
	next = append(next, s.fields[i+1:]...)
	return FieldSchema{fields: next}, nil
}

func (s FieldSchema) SetRequired(id int, required bool) (FieldSchema, error) {
	i := s.indexOf(id)
	if i < 0 {
		return s, ErrFieldNotFound
	}
	if s.fields[i].Locked {
		return s, &ImmutableFieldError{Field: s.fields[i].Name, Op: "set_required"}
	}
	next := s.Fields()
	next[i].Required = required
	return FieldSchema{fields: next}, nil
}

// Ready reports whether the schema can back an open event.
func (s FieldSchema) Ready() error {
	required, dedup := 0, 0
	for _, f := range s.fields {
		if f.Required {
			required++
		}
		if f.DedupKey {
			dedup++
		}
	}
	if required == 0 {
		return fmt.Errorf("schema needs at least one required field")
	}
	if dedup > 1 {
		return ErrMultipleDedupKeys
	}
	return nil
}

// Validate checks raw against the schema and returns the trimmed values.
func (s FieldSchema) Validate(raw map[string]string) (ValidatedEntry, error) {
	var problems []FieldProblem
	values := make(map[string]string, len(raw))

	keys := make([]string, 0, len(raw))
	for name := range raw {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	// Keys that collide once trimmed are rejected rather than merged.
	trimmed := make(map[string]string, len(raw))
	for _, name := range keys {
		key := strings.TrimSpace(name)
		if _, dup := trimmed[key]; dup {
			problems = append(problems, FieldProblem{Field: key, Code: ProblemDuplicateField, Message: "is submitted more than once"})
			continue
		}
		trimmed[key] = strings.TrimSpace(raw[name])
	}

	for _, f := range s.fields {
		v := trimmed[f.Name]
		if v == "" {
			if f.Required {
				problems = append(problems, FieldProblem{Field: f.Name, Code: ProblemMissing, Message: "is required"})
			}
			continue
		}
		if msg := checkFormat(f.Format, v); msg != "" {
			problems = append(problems, FieldProblem{Field: f.Name, Code: ProblemInvalidFormat, Message: msg})
			continue
		}
		values[f.Name] = v
	}

	var unknown []string
	for name := range trimmed {
		if _, ok := s.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		problems = append(problems, FieldProblem{Field: name, Code: ProblemUnknown, Message: "is not part of this event's form"})
	}

	if len(problems) > 0 {
		return ValidatedEntry{}, &ValidationError{Problems: problems}
	}

	entry := ValidatedEntry{Values: values}
	if f, ok := s.DedupField(); ok {
		entry.DedupKey = NormalizeDedupKey(values[f.Name])
	}
	return entry, nil
}

// NormalizeDedupKey is the form in which dedup keys are compared and stored.
func NormalizeDedupKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (s FieldSchema) indexOf(id int) int {
	for i, f := range s.fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func checkDefinition(f FieldDefinition) error {
	var problems []FieldProblem
	if f.Name == "" {
		problems = append(problems, FieldProblem{Field: "name", Code: ProblemInvalidField, Message: "field name is empty"})
	}
	if f.Kind != FieldKindFixed && f.Kind != FieldKindCustom {
		problems = append(problems, FieldProblem{Field: f.Name, Code: ProblemInvalidField, Message: fmt.Sprintf("unknown kind %q", f.Kind)})
	}
	if f.Locked && f.Kind != FieldKindFixed {
		problems = append(problems, FieldProblem{Field: f.Name, Code: ProblemInvalidField, Message: "only fixed fields can be locked"})
	}
	switch f.Format {
	case FormatText, FormatEmail, FormatPhone, FormatETHAddress, FormatSOLAddress:
	default:
		problems = append(problems, FieldProblem{Field: f.Name, Code: ProblemInvalidField, Message: fmt.Sprintf("unknown format %q", f.Format)})
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkFormat(format FieldFormat, v string) string {
	switch format {
	case FormatEmail:
		if validate.Var(v, "email") != nil {
			return "is not a valid email address"
		}
	case FormatPhone:
		if !phonePattern.MatchString(v) {
			return "is not a valid phone number"
		}
	case FormatETHAddress:
		if validate.Var(v, "eth_addr") != nil {
			return "is not a valid ETH address"
		}
	case FormatSOLAddress:
		if _, err := solana.PublicKeyFromBase58(v); err != nil {
			return "is not a valid SOL address"
		}
	}
	return ""
}
