package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator names runs. The id is the primary key of the run in the
// run log, so it must not repeat within one database.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default RunIDGenerator. UUIDv7 ids start with a
// millisecond timestamp, so the run log's id order is creation order.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of ids, one per run, and panics
// once the list is used up. Replay and the --run-id flag use it to give a
// single run a chosen id.
type FixedGenerator struct {
	mu        sync.Mutex
	remaining []string
}

func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{remaining: ids}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.remaining) == 0 {
		panic("engine: FixedGenerator has no run ids left")
	}
	id := g.remaining[0]
	g.remaining = g.remaining[1:]
	return id
}
