package order

import (
	"fmt"
	"math/rand"
	"time"
)

// numberAttempts bounds collision retries when generating order numbers.
const numberAttempts = 5

// newNumber produces an order number in the form ORD-YYYYMMDD-NNNN. The
// numeric suffix is random; the repository's unique constraint catches
// collisions and the caller retries.
func newNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), rand.Intn(10000))
}
