package models

import (
	"encoding/json"
	"strconv"

	dErrors "communitylink/pkg/domain-errors"
)

// Capacity is the tagged variant Finite(n) | Unlimited. The unlimited case
// is a distinct state, never a very large integer, so capacity checks must
// go through Admits rather than comparing raw numbers.
type Capacity struct {
	limit     int
	unlimited bool
}

// Unlimited returns the capacity variant that admits any number of
// registrants. Set-uniqueness rules still apply.
func Unlimited() Capacity {
	return Capacity{unlimited: true}
}

// Finite returns a bounded capacity. The bound must be a positive integer.
func Finite(n int) (Capacity, error) {
	if n <= 0 {
		return Capacity{}, dErrors.New(dErrors.CodeInvariantViolation, "capacity must be a positive integer")
	}
	return Capacity{limit: n}, nil
}

// IsUnlimited reports whether the capacity is the unlimited variant.
func (c Capacity) IsUnlimited() bool {
	return c.unlimited
}

// IsZero reports whether the capacity was never set. The zero value is
// neither a valid finite bound nor unlimited; request validation rejects it
// before it can reach a store.
func (c Capacity) IsZero() bool {
	return !c.unlimited && c.limit == 0
}

// Limit returns the finite bound and true, or (0, false) for unlimited.
func (c Capacity) Limit() (int, bool) {
	if c.unlimited {
		return 0, false
	}
	return c.limit, true
}

// Admits reports whether one more registrant fits given the current
// enrollment. Always true for unlimited capacity.
func (c Capacity) Admits(enrolled int) bool {
	if c.unlimited {
		return true
	}
	return enrolled < c.limit
}

func (c Capacity) String() string {
	if c.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(c.limit)
}

// MarshalJSON encodes finite capacity as a number and unlimited as the
// string "unlimited", matching the wire shape clients already consume.
func (c Capacity) MarshalJSON() ([]byte, error) {
	if c.unlimited {
		return json.Marshal("unlimited")
	}
	return json.Marshal(c.limit)
}

// UnmarshalJSON accepts either a positive integer or the string "unlimited".
func (c *Capacity) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		parsed, err := Finite(n)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "capacity must be a positive integer or \"unlimited\"")
	}
	if s != "unlimited" {
		return dErrors.New(dErrors.CodeInvalidInput, "capacity must be a positive integer or \"unlimited\"")
	}
	*c = Unlimited()
	return nil
}
