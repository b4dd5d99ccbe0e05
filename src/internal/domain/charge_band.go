package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ChargeBand prices amounts in the inclusive range [MinAmount, MaxAmount].
type ChargeBand struct {
	ID        int64
	Kind      TransactionKind
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
	Fee       decimal.Decimal
	IsActive  bool
}

func (b ChargeBand) Contains(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(b.MinAmount) && amount.LessThanOrEqual(b.MaxAmount)
}

// BandTable is an immutable, validated view of the active charge bands.
type BandTable struct {
	bands map[TransactionKind][]ChargeBand
}

// NewBandTable keeps the active bands and refuses inverted ranges, negative
// fees and overlapping bands within a kind.
func NewBandTable(bands []ChargeBand) (*BandTable, error) {
	byKind := make(map[TransactionKind][]ChargeBand)
	for _, b := range bands {
		if !b.IsActive {
			continue
		}
		if !b.Kind.Valid() {
			return nil, NewError(KindInvalidRequest, "charge band %d has unknown kind %q", b.ID, b.Kind)
		}
		if b.MinAmount.IsNegative() || b.MaxAmount.LessThan(b.MinAmount) {
			return nil, NewError(KindInvalidRequest, "charge band %d has invalid range %s-%s", b.ID, b.MinAmount, b.MaxAmount)
		}
		if b.Fee.IsNegative() {
			return nil, NewError(KindInvalidRequest, "charge band %d has negative fee", b.ID)
		}
		byKind[b.Kind] = append(byKind[b.Kind], b)
	}

	for kind, list := range byKind {
		sort.Slice(list, func(i, j int) bool {
			return list[i].MinAmount.LessThan(list[j].MinAmount)
		})
		for i := 1; i < len(list); i++ {
			if !list[i].MinAmount.GreaterThan(list[i-1].MaxAmount) {
				return nil, NewError(KindInvalidRequest, "charge bands %d and %d overlap for %s", list[i-1].ID, list[i].ID, kind)
			}
		}
	}

	return &BandTable{bands: byKind}, nil
}

// Resolve returns the fee of the band containing amount.
func (t *BandTable) Resolve(kind TransactionKind, amount decimal.Decimal) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	list := t.bands[kind]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].MaxAmount.GreaterThanOrEqual(amount)
	})
	if i < len(list) && list[i].Contains(amount) {
		return list[i].Fee, true
	}
	return decimal.Zero, false
}

func (t *BandTable) HasBands(kind TransactionKind) bool {
	return t != nil && len(t.bands[kind]) > 0
}

func (t *BandTable) Bands(kind TransactionKind) []ChargeBand {
	if t == nil {
		return nil
	}
	out := make([]ChargeBand, len(t.bands[kind]))
	copy(out, t.bands[kind])
	return out
}

func (t *BandTable) Size() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, list := range t.bands {
		n += len(list)
	}
	return n
}
