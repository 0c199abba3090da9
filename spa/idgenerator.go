package spa

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var idGeneratorMutex sync.Mutex
var idGeneratorInstantiated bool
var idGenerator IDGenerator

// IDGenerator can generate IDs for trace records and sessions.
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

// UseSequentialIDGenerator makes the process generate decimal IDs counting
// up from 1, so that traces of repeated runs line up. It panics once an ID
// has been generated.
func UseSequentialIDGenerator() {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if idGeneratorInstantiated {
		log.Panic("cannot change id generator type after using it")
	}

	idGenerator = &sequentialIDGenerator{}
	idGeneratorInstantiated = true
}

// GetIDGenerator returns the ID generator used by the process. It defaults to
// the xid based generator.
func GetIDGenerator() IDGenerator {
	idGeneratorMutex.Lock()
	defer idGeneratorMutex.Unlock()

	if !idGeneratorInstantiated {
		idGenerator = &parallelIDGenerator{}
		idGeneratorInstantiated = true
	}

	return idGenerator
}

type sequentialIDGenerator struct {
	nextID atomic.Uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(g.nextID.Add(1), 10)
}

type parallelIDGenerator struct {
}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}

// DialogIDGenerator hands out dialog ids that correlate requests with their
// replies. Ids start at 1 and wrap around, skipping 0, which marks messages
// that are not part of a dialog.
type DialogIDGenerator struct {
	next atomic.Uint32
}

// NewDialogIDGenerator creates a generator whose first id is 1.
func NewDialogIDGenerator() *DialogIDGenerator {
	return &DialogIDGenerator{}
}

// Generate returns the next dialog id.
func (g *DialogIDGenerator) Generate() uint16 {
	for {
		id := uint16(g.next.Add(1))
		if id != 0 {
			return id
		}
	}
}
