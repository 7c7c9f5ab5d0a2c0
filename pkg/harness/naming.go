package harness

import (
	"fmt"
	"math/rand"

	"github.com/marmos91/fscheck/pkg/sut"
)

// Namer produces fresh fixture paths of the form "/<prefix>-random-<n>".
//
// Names come from the suite's seeded source, so a run with a given seed
// always touches the same paths. Different seeds make collisions with
// leftovers of earlier runs unlikely.
type Namer struct {
	rng *rand.Rand
}

// NewNamer returns a Namer drawing from rng.
func NewNamer(rng *rand.Rand) *Namer {
	return &Namer{rng: rng}
}

// MakePath returns a new absolute path directly under the root.
func (n *Namer) MakePath(prefix string) (string, error) {
	p := fmt.Sprintf("/%s-random-%d", prefix, n.rng.Int31())
	if len(p) > sut.MaxPathLen {
		return "", setupError("MakePath", "", "path for prefix of %d bytes exceeds %d bytes", len(prefix), sut.MaxPathLen)
	}
	return p, nil
}
