package raffle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type Prize struct {
	Rank        int             `json:"rank"`
	Name        string          `json:"name"`
	WinnerQuota int             `json:"winner_quota"`
	Description string          `json:"description,omitempty"`
	Value       decimal.Decimal `json:"value"`
}

// PrizeTable holds prize tiers with contiguous ranks starting at 1.
// Like FieldSchema it is a value; edits return a new table.
type PrizeTable struct {
	prizes []Prize
}

// NewPrizeTable restores a table from stored prizes in any order.
func NewPrizeTable(prizes ...Prize) (PrizeTable, error) {
	sorted := make([]Prize, len(prizes))
	copy(sorted, prizes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })
	for i, p := range sorted {
		if p.Rank != i+1 {
			return PrizeTable{}, fmt.Errorf("prize ranks must be contiguous from 1, found rank %d at position %d", p.Rank, i+1)
		}
		if err := checkPrize(p); err != nil {
			return PrizeTable{}, err
		}
	}
	return PrizeTable{prizes: sorted}, nil
}

// Add appends p at the next rank; p.Rank is ignored.
func (t PrizeTable) Add(p Prize) (PrizeTable, Prize, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := checkPrize(p); err != nil {
		return t, Prize{}, err
	}
	p.Rank = len(t.prizes) + 1
	next := make([]Prize, len(t.prizes), len(t.prizes)+1)
	copy(next, t.prizes)
	return PrizeTable{prizes: append(next, p)}, p, nil
}

// Remove deletes the tier at rank and renumbers the tiers after it.
func (t PrizeTable) Remove(rank int) (PrizeTable, error) {
	if rank < 1 || rank > len(t.prizes) {
		return t, ErrPrizeNotFound
	}
	next := make([]Prize, 0, len(t.prizes)-1)
	for _, p := range t.prizes {
		switch {
		case p.Rank < rank:
			next = append(next, p)
		case p.Rank > rank:
			p.Rank--
			next = append(next, p)
		}
	}
	return PrizeTable{prizes: next}, nil
}

func (t PrizeTable) Prizes() []Prize {
	out := make([]Prize, len(t.prizes))
	copy(out, t.prizes)
	return out
}

func (t PrizeTable) Len() int {
	return len(t.prizes)
}

func (t PrizeTable) TotalQuota() int {
	total := 0
	for _, p := range t.prizes {
		total += p.WinnerQuota
	}
	return total
}

// TotalValue sums value × quota over all tiers.
func (t PrizeTable) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.prizes {
		total = total.Add(p.Value.Mul(decimal.NewFromInt(int64(p.WinnerQuota))))
	}
	return total
}

func checkPrize(p Prize) error {
	var problems []FieldProblem
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, FieldProblem{Field: "name", Code: ProblemMissing, Message: "prize name is required"})
	}
	if p.WinnerQuota < 1 {
		problems = append(problems, FieldProblem{Field: "winner_quota", Code: ProblemInvalidField, Message: "must be at least 1"})
	}
	if p.Value.IsNegative() {
		problems = append(problems, FieldProblem{Field: "value", Code: ProblemInvalidField, Message: "must not be negative"})
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
