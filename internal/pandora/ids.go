package pandora

import "github.com/google/uuid"

// Identifier is the opaque, externally-supplied unique identifier used as
// the primary key when the embedding application correlates objects it
// gave the framework (spec.md §3). The framework never mints these itself.
type Identifier uint64

// Address is the parent-address back-reference to the embedding
// application carried by every CaloHit and Track (spec.md §3). It is
// opaque to the substrate; comparisons are by value.
type Address uintptr

// ListName identifies a named list within a per-kind namespace (spec.md
// §3, "Named list namespace"). InputListName and NullListName are the two
// reserved names every kind carries.
type ListName string

const (
	// InputListName is the post-ingest canonical list; read-only once the
	// substrate has populated it during ingest.
	InputListName ListName = "Input"
	// NullListName always denotes the empty list, used to represent "no
	// current list".
	NullListName ListName = "NullList"
)

// newTemporaryListName mints a fresh, collision-free list name for
// createTemporaryList / moveObjectsToTemporaryList. Internally-minted
// names are UUID-derived rather than externally-supplied identifiers, the
// same split the object model draws between Identifier (external) and
// the substrate's own bookkeeping tokens.
func newTemporaryListName(prefix string) ListName {
	return ListName(prefix + "-" + uuid.NewString())
}
