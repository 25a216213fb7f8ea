package hihat

// Hardcoded implementation limits.
//
// These exist to keep bucket-index and probe-count arithmetic safely away
// from overflow boundaries on configurations the project does not fuzz or
// test, not because a real workload is expected to approach them.
const (
	// maxStoreSize is the largest number of buckets a single store may
	// have. 2^40 buckets of (HV, record pointer) pairs is already well
	// beyond anything the test suite or a realistic workload exercises.
	// successorSize caps every migration's successor at this size, so
	// MinSize/GrowthRatio misconfiguration cannot grow a store without
	// bound; the first store, sized from MinSize by New, is not checked
	// against it.
	maxStoreSize = uint64(1) << 40

	// maxProbeFactor is a probe-count cap expressed as a multiple of the
	// store size. store.find does not consult it: its linear probe
	// examines each bucket of the store at most once and then reports the
	// store full.
	maxProbeFactor = 4
)
