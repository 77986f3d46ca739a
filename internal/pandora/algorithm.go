package pandora

// AlgorithmHandle identifies a registered algorithm client to the manager
// substrate. Handles are compared by pointer identity, so two handles with
// the same Name are still distinct registrations — mirroring the
// teacher's ReconstructionContext-style explicit-handle pattern (spec.md
// §9) rather than a process-wide singleton registry.
type AlgorithmHandle struct {
	Name string
}

// NewAlgorithm mints a fresh algorithm handle. The embedding pipeline
// calls this once per configured algorithm instance and passes the
// resulting handle to every manager it needs to register with.
func NewAlgorithm(name string) *AlgorithmHandle {
	return &AlgorithmHandle{Name: name}
}
