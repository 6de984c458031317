package raffle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/mr-tron/base58"
)

// drawStream is the fixed PCG stream selector. Changing it changes every
// past result, so it must stay constant.
const drawStream uint64 = 0x9e3779b97f4a7c15

type Winner struct {
	EntryID  int64  `json:"entry_id"`
	DedupKey string `json:"dedup_key"`
}

type TierResult struct {
	PrizeRank int      `json:"prize_rank"`
	PrizeName string   `json:"prize_name"`
	Winners   []Winner `json:"winners"`
}

// Result is the outcome of a draw. Digest fingerprints everything else.
type Result struct {
	Seed       uint64       `json:"seed,string"`
	EntryCount int          `json:"entry_count"`
	Tiers      []TierResult `json:"tiers"`
	Digest     string       `json:"digest,omitempty"`
}

// Draw assigns winners to every prize tier from entries, deterministically
// for a given seed. Entries must be in ledger order. No entry wins twice.
func Draw(entries []Entry, prizes []Prize, seed uint64) (Result, error) {
	if len(prizes) == 0 {
		return Result{}, ErrNoPrizes
	}
	tiers := make([]Prize, len(prizes))
	copy(tiers, prizes)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Rank < tiers[j].Rank })

	required := 0
	for _, p := range tiers {
		if p.WinnerQuota < 1 {
			return Result{}, fmt.Errorf("prize %d has quota %d", p.Rank, p.WinnerQuota)
		}
		required += p.WinnerQuota
	}
	if required > len(entries) {
		return Result{}, &InsufficientEntriesError{Required: required, Available: len(entries)}
	}

	pool := make([]int, len(entries))
	for i := range pool {
		pool[i] = i
	}
	src := rand.NewPCG(seed, drawStream)

	result := Result{Seed: seed, EntryCount: len(entries), Tiers: make([]TierResult, 0, len(tiers))}
	for _, p := range tiers {
		// partial Fisher-Yates over the remaining pool
		for i := 0; i < p.WinnerQuota; i++ {
			j := i + boundedIndex(src, len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		tier := TierResult{PrizeRank: p.Rank, PrizeName: p.Name, Winners: make([]Winner, p.WinnerQuota)}
		for i, idx := range pool[:p.WinnerQuota] {
			tier.Winners[i] = Winner{EntryID: entries[idx].ID, DedupKey: entries[idx].DedupKey}
		}
		pool = pool[p.WinnerQuota:]
		result.Tiers = append(result.Tiers, tier)
	}

	digest, err := result.computeDigest()
	if err != nil {
		return Result{}, err
	}
	result.Digest = digest
	return result, nil
}

// Verify replays the draw and checks that it reproduces r exactly.
func (r Result) Verify(entries []Entry, prizes []Prize) error {
	replay, err := Draw(entries, prizes, r.Seed)
	if err != nil {
		return fmt.Errorf("failed to replay draw: %w", err)
	}
	digest, err := r.computeDigest()
	if err != nil {
		return err
	}
	if digest != r.Digest {
		return fmt.Errorf("result digest mismatch: stored %s, computed %s", r.Digest, digest)
	}
	if replay.Digest != r.Digest {
		return fmt.Errorf("replay produced %s, result has %s", replay.Digest, r.Digest)
	}
	return nil
}

// CheckDigest recomputes the digest over r without replaying the draw.
func (r Result) CheckDigest() error {
	digest, err := r.computeDigest()
	if err != nil {
		return err
	}
	if digest != r.Digest {
		return fmt.Errorf("result digest mismatch: stored %s, computed %s", r.Digest, digest)
	}
	return nil
}

func (r Result) WinnerCount() int {
	n := 0
	for _, t := range r.Tiers {
		n += len(t.Winners)
	}
	return n
}

func (r Result) Tier(rank int) (TierResult, bool) {
	for _, t := range r.Tiers {
		if t.PrizeRank == rank {
			return t, true
		}
	}
	return TierResult{}, false
}

// DeriveSeed turns the close time and an operator nonce into a draw seed.
func DeriveSeed(closeAt time.Time, nonce string) uint64 {
	h := sha256.New()
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(closeAt.UTC().UnixNano()))
	h.Write(ts[:])
	h.Write([]byte(nonce))
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

func (r Result) computeDigest() (string, error) {
	r.Digest = ""
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	sum := sha256.Sum256(payload)
	return base58.Encode(sum[:]), nil
}

// boundedIndex returns a uniform value in [0, n) using rejection sampling.
func boundedIndex(src *rand.PCG, n int) int {
	bound := uint64(n)
	limit := math.MaxUint64 - math.MaxUint64%bound
	for {
		if v := src.Uint64(); v < limit {
			return int(v % bound)
		}
	}
}
