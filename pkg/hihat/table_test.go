package hihat_test

import (
	"sync"
	"testing"

	"github.com/calvinalkan/hihat/pkg/hihat"
)

func hv(n uint64) hihat.HV {
	return hihat.HV{Hi: n ^ 0x9e3779b97f4a7c15, Lo: n*2 + 1}
}

func Test_Get_On_Empty_Table_Reports_Not_Found(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	if _, found := table.Get(hv(1)); found {
		t.Fatalf("expected not found on an empty table")
	}
}

func Test_Put_Then_Get_Round_Trips(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	old, had := table.Put(hv(1), "a")
	if had {
		t.Fatalf("expected no previous value, got %v", old)
	}

	item, found := table.Get(hv(1))
	if !found || item != "a" {
		t.Fatalf("Get() = (%v, %v), want (a, true)", item, found)
	}
}

func Test_Put_Overwrites_Existing_Value_And_Returns_It(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	table.Put(hv(1), "a")

	old, had := table.Put(hv(1), "b")
	if !had || old != "a" {
		t.Fatalf("Put() = (%v, %v), want (a, true)", old, had)
	}

	item, _ := table.Get(hv(1))
	if item != "b" {
		t.Fatalf("Get() after overwrite = %v, want b", item)
	}
}

func Test_Replace_Fails_When_No_Existing_Value(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	old, had := table.Replace(hv(1), "a")
	if had || old != nil {
		t.Fatalf("Replace() on missing key = (%v, %v), want (nil, false)", old, had)
	}

	if _, found := table.Get(hv(1)); found {
		t.Fatalf("Replace on a missing key must not install anything")
	}
}

func Test_Replace_Succeeds_When_Value_Exists(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	table.Put(hv(1), "a")

	old, had := table.Replace(hv(1), "b")
	if !had || old != "a" {
		t.Fatalf("Replace() = (%v, %v), want (a, true)", old, had)
	}

	item, _ := table.Get(hv(1))
	if item != "b" {
		t.Fatalf("Get() after Replace = %v, want b", item)
	}
}

func Test_Add_Fails_When_Value_Already_Present(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	table.Put(hv(1), "a")

	if table.Add(hv(1), "b") {
		t.Fatalf("Add() must fail when a live value is already present")
	}

	item, _ := table.Get(hv(1))
	if item != "a" {
		t.Fatalf("Get() after failed Add = %v, want a", item)
	}
}

func Test_Add_Succeeds_On_Fresh_Key(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	if !table.Add(hv(1), "a") {
		t.Fatalf("Add() on a fresh key must succeed")
	}

	item, found := table.Get(hv(1))
	if !found || item != "a" {
		t.Fatalf("Get() after Add = (%v, %v), want (a, true)", item, found)
	}
}

func Test_Add_Succeeds_After_Remove(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	table.Put(hv(1), "a")
	table.Remove(hv(1))

	if !table.Add(hv(1), "b") {
		t.Fatalf("Add() must succeed once the previous value has been removed")
	}

	item, _ := table.Get(hv(1))
	if item != "b" {
		t.Fatalf("Get() after Add-following-Remove = %v, want b", item)
	}
}

func Test_Remove_Reports_Not_Found_For_Missing_Key(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	old, had := table.Remove(hv(1))
	if had || old != nil {
		t.Fatalf("Remove() on missing key = (%v, %v), want (nil, false)", old, had)
	}
}

func Test_Remove_Returns_And_Clears_Existing_Value(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	table.Put(hv(1), "a")

	old, had := table.Remove(hv(1))
	if !had || old != "a" {
		t.Fatalf("Remove() = (%v, %v), want (a, true)", old, had)
	}

	if _, found := table.Get(hv(1)); found {
		t.Fatalf("Get() after Remove must report not found")
	}
}

func Test_Remove_Twice_Is_A_Noop_Second_Time(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	table.Put(hv(1), "a")
	table.Remove(hv(1))

	old, had := table.Remove(hv(1))
	if had || old != nil {
		t.Fatalf("second Remove() = (%v, %v), want (nil, false)", old, had)
	}
}

func Test_Len_Tracks_Live_Items_Through_Put_And_Remove(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	for i := uint64(0); i < 10; i++ {
		table.Put(hv(i), i)
	}

	if got := table.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}

	table.Put(hv(0), "overwritten") // overwrite, not a new item
	if got := table.Len(); got != 10 {
		t.Fatalf("Len() after overwrite = %d, want 10", got)
	}

	table.Remove(hv(0))
	if got := table.Len(); got != 9 {
		t.Fatalf("Len() after Remove = %d, want 9", got)
	}
}

func Test_Table_Survives_A_Migration_Triggering_Insert_Volume(t *testing.T) {
	t.Parallel()

	// MinSize of 4 with the default growth ratio forces several migrations
	// well before we reach 500 items.
	table := hihat.New(hihat.Options{MinSize: 4})
	defer table.Close()

	const n = 500

	for i := uint64(0); i < n; i++ {
		if old, had := table.Put(hv(i), i); had {
			t.Fatalf("unexpected previous value %v for fresh key %d", old, i)
		}
	}

	if got := table.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}

	for i := uint64(0); i < n; i++ {
		item, found := table.Get(hv(i))
		if !found || item != i {
			t.Fatalf("Get(%d) = (%v, %v), want (%d, true)", i, item, found, i)
		}
	}
}

func Test_Zero_HV_Panics(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	defer table.Close()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for the reserved zero HV")
		}
	}()

	table.Get(hihat.HV{})
}

func Test_Operations_On_Closed_Table_Panic(t *testing.T) {
	t.Parallel()

	table := hihat.New(hihat.Options{})
	table.Close()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on a closed table")
		}
	}()

	table.Put(hv(1), "a")
}

func Test_OnItemRetired_Runs_Exactly_Once_Per_Displaced_Item(t *testing.T) {
	t.Parallel()

	mu := lockedCounter{m: make(map[string]int)}

	table := hihat.New(hihat.Options{
		OnItemRetired: func(item any) {
			mu.inc(item.(string))
		},
	})
	defer table.Close()

	table.Put(hv(1), "a")
	table.Put(hv(1), "b") // displaces "a"
	table.Replace(hv(1), "c") // displaces "b"
	table.Remove(hv(1)) // displaces "c"

	// Each retire sweeps against the current minimum reservation, which
	// here is the sweeping op's own and only passes a retirement once an op
	// that started after it displaces something in turn. A fresh Put
	// displaces nothing, so two displacing Puts follow it to give "c" a
	// later op to be swept behind.
	table.Put(hv(2), "force-sweep")
	table.Put(hv(2), "force-sweep-again")
	table.Put(hv(2), "force-sweep-once-more")

	for _, item := range []string{"a", "b", "c"} {
		if n := mu.get(item); n != 1 {
			t.Fatalf("OnItemRetired(%q) called %d times, want exactly 1", item, n)
		}
	}

	if n := mu.get("d"); n != 0 {
		t.Fatalf("OnItemRetired called for an item that was never displaced")
	}
}

type lockedCounter struct {
	m  map[string]int
	mu sync.Mutex
}

func (c *lockedCounter) inc(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key]++
}

func (c *lockedCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key]
}
