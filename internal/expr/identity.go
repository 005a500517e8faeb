package expr

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is the stable identity of a node, used as the memoization key
// during evaluation and for variable-occurrence checks during
// differentiation. Identity is per instance, not structural: two
// separately built but syntactically equal subtrees carry different
// IDs, while a shared child instance carries one.
type ID string

const symPrefix = "sym"

// idGenerator produces prefixed ULIDs. The entropy reader is guarded so
// trees may be built from multiple goroutines.
type idGenerator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultIDGen *idGenerator
	idGenOnce    sync.Once
)

func defaultGenerator() *idGenerator {
	idGenOnce.Do(func() {
		defaultIDGen = &idGenerator{entropy: rand.Reader}
	})
	return defaultIDGen
}

func (g *idGenerator) generate() ID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ID(symPrefix + "_" + ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String())
}

// newID returns a fresh node identity.
func newID() ID {
	return defaultGenerator().generate()
}
