// Package id issues time-sortable run identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out ULIDs that increase strictly, even within one
// millisecond. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewGenerator seeds a generator. Equal seeds and clocks give equal IDs.
func NewGenerator(seed int64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		now:     now,
	}
}

// New returns the next ID.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		// only when the clock goes backwards past the epoch or entropy overflows
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(seed(), nil)

func seed() int64 {
	var s int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &s)
	if s == 0 {
		s = time.Now().UnixNano()
	}
	return s
}

// New returns a run ID from the process wide generator.
func New() string {
	return std.New()
}

// Time returns the creation time encoded in id, to the millisecond.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
