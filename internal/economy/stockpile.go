// Package economy holds the colony's shared resource balances.
package economy

// Stockpile is the colony-wide resource balance.
type Stockpile struct {
	Minerals int `json:"minerals" mapstructure:"minerals" validate:"gte=0"` // Produced by mining
	Credits  int `json:"credits" mapstructure:"credits" validate:"gte=0"`   // Spent on rehabilitation
	Crystals int `json:"crystals" mapstructure:"crystals" validate:"gte=0"` // Premium currency for speed-ups
}

// Resource selects one balance of the stockpile.
type Resource uint8

const (
	Minerals Resource = iota
	Credits
	Crystals
)

// ResourceName returns the stable name of r.
func ResourceName(r Resource) string {
	switch r {
	case Minerals:
		return "minerals"
	case Credits:
		return "credits"
	case Crystals:
		return "crystals"
	default:
		return "unknown"
	}
}

func (s *Stockpile) ref(r Resource) *int {
	switch r {
	case Minerals:
		return &s.Minerals
	case Credits:
		return &s.Credits
	case Crystals:
		return &s.Crystals
	default:
		return nil
	}
}

// Balance returns the amount of r held.
func (s *Stockpile) Balance(r Resource) int {
	if p := s.ref(r); p != nil {
		return *p
	}
	return 0
}

// Add credits amount of r. Negative amounts are ignored.
func (s *Stockpile) Add(r Resource, amount int) {
	if p := s.ref(r); p != nil && amount > 0 {
		*p += amount
	}
}

// Debit removes amount of r without checking the balance; the result is
// clamped at zero. It returns the amount actually removed.
func (s *Stockpile) Debit(r Resource, amount int) int {
	p := s.ref(r)
	if p == nil || amount <= 0 {
		return 0
	}
	taken := amount
	if taken > *p {
		taken = *p
	}
	*p -= taken
	return taken
}

// Spend removes amount of r only if the full amount is available.
func (s *Stockpile) Spend(r Resource, amount int) bool {
	p := s.ref(r)
	if p == nil || amount < 0 || *p < amount {
		return false
	}
	*p -= amount
	return true
}
