package storage

import (
	"context"
	"testing"
)

func TestMemory_PutGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.Put(ctx, "replica", "r1", Record{"replicaId": "r1", "clock": []int64{1, 2}})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	rec, ok, err := m.Get(ctx, "replica", "r1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok {
		t.Fatal("Get() reported missing record")
	}
	if got := StringField(rec, "replicaId"); got != "r1" {
		t.Errorf("replicaId = %q, expected %q", got, "r1")
	}
	clock := Int64sField(rec, "clock")
	if len(clock) != 2 || clock[0] != 1 || clock[1] != 2 {
		t.Errorf("clock = %v, expected [1 2]", clock)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "replica", "nope")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok {
		t.Error("Get() reported a record that was never stored")
	}
}

func TestMemory_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "replica", "r1", Record{"n": int64(1)}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := m.Put(ctx, "replica", "r1", Record{"n": int64(2)}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	rec, _, err := m.Get(ctx, "replica", "r1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got := Int64Field(rec, "n"); got != 2 {
		t.Errorf("n = %d, expected 2", got)
	}
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Put(ctx, "replica", "r1", Record{"n": int64(1)}); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if err := m.Delete(ctx, "replica", "r1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	_, ok, err := m.Get(ctx, "replica", "r1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok {
		t.Error("record still present after Delete()")
	}

	// Deleting a missing record is not an error.
	if err := m.Delete(ctx, "replica", "nope"); err != nil {
		t.Errorf("Delete() of missing record failed: %v", err)
	}
}

func TestMemory_Find_OrderedByKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, key := range []string{"c", "a", "b"} {
		if err := m.Put(ctx, "peers", key, Record{"peerId": key}); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	recs, err := m.Find(ctx, "peers", nil)
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Find() returned %d records, expected 3", len(recs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := StringField(recs[i], "peerId"); got != want {
			t.Errorf("record %d: peerId = %q, expected %q", i, got, want)
		}
	}
}

func TestMemory_Find_Filter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	puts := []struct {
		key     string
		replica string
	}{
		{"r1/p1", "r1"},
		{"r1/p2", "r1"},
		{"r2/p1", "r2"},
	}
	for _, p := range puts {
		err := m.Put(ctx, "peers", p.key, Record{"replicaId": p.replica, "peerId": p.key})
		if err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}

	recs, err := m.Find(ctx, "peers", Filter{"replicaId": "r1"})
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("Find() returned %d records, expected 2", len(recs))
	}
}

func TestMemory_Find_EmptyRelation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	recs, err := m.Find(ctx, "nothing", nil)
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Find() on empty relation returned %d records", len(recs))
	}
}

func TestMemory_RoundTripTypes(t *testing.T) {
	// Records round-trip through JSON, so Go types do not survive.
	// The *Field helpers must still read them back.
	ctx := context.Background()
	m := NewMemory()

	err := m.Put(ctx, "replica", "r1", Record{
		"clock":   []int64{3, 0, 7},
		"state":   []string{"YQ==", "Yg=="},
		"counter": int64(1 << 60), // beyond float64 precision
	})
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	rec, _, err := m.Get(ctx, "replica", "r1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	clock := Int64sField(rec, "clock")
	if len(clock) != 3 || clock[2] != 7 {
		t.Errorf("clock = %v, expected [3 0 7]", clock)
	}
	state := StringsField(rec, "state")
	if len(state) != 2 || state[0] != "YQ==" {
		t.Errorf("state = %v, expected [YQ== Yg==]", state)
	}
	if got := Int64Field(rec, "counter"); got != 1<<60 {
		t.Errorf("counter = %d, expected %d (precision lost?)", got, int64(1<<60))
	}
}

func TestMatches(t *testing.T) {
	rec := Record{"replicaId": "r1", "index": int64(3), "active": true}

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"nil filter matches all", nil, true},
		{"empty filter matches all", Filter{}, true},
		{"string equality", Filter{"replicaId": "r1"}, true},
		{"string mismatch", Filter{"replicaId": "r2"}, false},
		{"int equality across types", Filter{"index": 3}, true},
		{"bool equality", Filter{"active": true}, true},
		{"missing field", Filter{"ghost": "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(rec, tc.filter); got != tc.want {
				t.Errorf("Matches(%v) = %v, expected %v", tc.filter, got, tc.want)
			}
		})
	}
}
