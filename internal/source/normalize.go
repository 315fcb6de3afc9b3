package source

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize converts a raw decimal quote string to a scaled integer:
// value × 10^scale, truncated toward zero. Exact decimal arithmetic
// throughout; the result fits any magnitude via big.Int.
func Normalize(raw string, scale int) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse quote %q: %w", raw, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative quote %q", raw)
	}
	return d.Shift(int32(scale)).Truncate(0).BigInt(), nil
}
