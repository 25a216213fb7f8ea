package hihat

// HV is a 128-bit hash value. Callers are responsible for producing HVs with
// good avalanche behavior across both halves — hihat never rehashes or mixes
// its input further. The zero value is reserved: it means "no hash value has
// ever been installed in this bucket" and cannot be used as a real key hash.
// [github.com/calvinalkan/hihat/pkg/dict] takes care of this for ordinary Go
// keys.
type HV struct {
	Hi uint64
	Lo uint64
}

// unreserved reports whether hv is the reserved zero value, i.e. a bucket
// hash slot that has never been claimed.
func (hv HV) unreserved() bool {
	return hv.Hi == 0 && hv.Lo == 0
}

// Equal reports whether hv and other are the same 128-bit value.
func (hv HV) Equal(other HV) bool {
	return hv.Hi == other.Hi && hv.Lo == other.Lo
}

// bucketIndex maps hv onto a slot in a store with lastSlot+1 buckets
// (lastSlot is always 2^n-1, so this is a mask, not a modulo).
func bucketIndex(hv HV, lastSlot uint64) uint64 {
	return hv.Lo & lastSlot
}

// probeNext returns the next bucket index to examine in the linear probe
// sequence starting from index, wrapping around the store.
func probeNext(index, lastSlot uint64) uint64 {
	return (index + 1) & lastSlot
}
