package hihat

import "testing"

func Test_Store_Find_Claims_An_Unclaimed_Bucket(t *testing.T) {
	t.Parallel()

	s := newStore(8, 0.75)
	h := HV{Hi: 1, Lo: 1}

	idx, ok := s.find(h, true)
	if !ok {
		t.Fatalf("expected find to claim a bucket for a fresh store")
	}

	got, has := s.buckets[idx].hashValue()
	if !has || !got.Equal(h) {
		t.Fatalf("bucket %d hash value = (%v, %v), want (%v, true)", idx, got, has, h)
	}

	if s.usedCount.Load() != 1 {
		t.Fatalf("usedCount = %d, want 1", s.usedCount.Load())
	}
}

func Test_Store_Find_Without_Claim_Misses_On_Fresh_Store(t *testing.T) {
	t.Parallel()

	s := newStore(8, 0.75)
	h := HV{Hi: 1, Lo: 1}

	if _, ok := s.find(h, false); ok {
		t.Fatalf("expected find(claim=false) to miss on an unclaimed hash value")
	}

	if s.usedCount.Load() != 0 {
		t.Fatalf("usedCount = %d, want 0 (lookup must not claim)", s.usedCount.Load())
	}
}

func Test_Store_Find_Is_Idempotent_For_An_Already_Claimed_Value(t *testing.T) {
	t.Parallel()

	s := newStore(8, 0.75)
	h := HV{Hi: 1, Lo: 1}

	first, _ := s.find(h, true)
	second, ok := s.find(h, true)

	if !ok || first != second {
		t.Fatalf("second find(claim=true) = (%d, %v), want (%d, true)", second, ok, first)
	}

	if s.usedCount.Load() != 1 {
		t.Fatalf("usedCount = %d, want 1 after re-finding the same value", s.usedCount.Load())
	}
}

func Test_Store_Find_Probes_Past_A_Colliding_Bucket(t *testing.T) {
	t.Parallel()

	s := newStore(4, 0.75)

	// Two distinct hash values that collide on the same home bucket.
	a := HV{Hi: 1, Lo: 0}
	b := HV{Hi: 2, Lo: 4} // Lo & 3 == 0, same home bucket as a

	idxA, _ := s.find(a, true)
	idxB, ok := s.find(b, true)

	if !ok {
		t.Fatalf("expected the colliding value to find a different bucket via probing")
	}
	if idxA == idxB {
		t.Fatalf("expected distinct buckets for distinct hash values, both landed on %d", idxA)
	}
}

func Test_Bucket_Claim_Reports_Fresh_Only_Once(t *testing.T) {
	t.Parallel()

	var b bucket
	h := HV{Hi: 1, Lo: 1}

	_, fresh1 := b.claim(h)
	_, fresh2 := b.claim(h)

	if !fresh1 {
		t.Fatalf("expected the first claim to be fresh")
	}
	if fresh2 {
		t.Fatalf("expected the second claim of the same value to not be fresh")
	}
}

func Test_Bucket_Claim_Rejects_A_Different_Value(t *testing.T) {
	t.Parallel()

	var b bucket
	a := HV{Hi: 1, Lo: 1}
	c := HV{Hi: 2, Lo: 2}

	b.claim(a)

	matched, fresh := b.claim(c)
	if matched || fresh {
		t.Fatalf("claim(%v) on a bucket owned by %v = (%v, %v), want (false, false)", c, a, matched, fresh)
	}
}

func Test_Record_Live_Is_False_For_Nil_And_Zero_Epoch(t *testing.T) {
	t.Parallel()

	var nilRec *record
	if nilRec.live() {
		t.Fatalf("nil record must not be live")
	}

	tomb := tombstone(false, false)
	if tomb.live() {
		t.Fatalf("a tombstone must not be live")
	}

	live := &record{item: "x", epoch: 1}
	if !live.live() {
		t.Fatalf("a record with a nonzero epoch must be live")
	}
}
