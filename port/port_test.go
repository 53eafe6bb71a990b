package port

import "testing"

func TestDataPolicyKeepLast(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[int]("t2", "v", false)
	if _, err := Connect(out, in, Policy{Data: DATA, Lock: UNSYNC}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	out.Write(1)
	out.Write(2)
	out.Write(3)

	v, status := in.Read()
	if status != NewData || v != 3 {
		t.Fatalf("first read = (%v, %v), want (3, NEW_DATA)", v, status)
	}
	if _, status := in.Read(); status != OldData {
		t.Fatalf("second read status = %v, want OLD_DATA", status)
	}
}

func TestBufferBoundedDrop(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[int]("t2", "v", false)
	if _, err := Connect(out, in, Policy{Data: BUFFER, Lock: LOCKED, BufferSize: 3}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	wantResults := []WriteResult{AllOK, AllOK, AllOK, SomeDropped, SomeDropped}
	for i, v := range []int{1, 2, 3, 4, 5} {
		if got := out.Write(v); got != wantResults[i] {
			t.Fatalf("write(%d) = %v, want %v", v, got, wantResults[i])
		}
	}

	for _, want := range []int{1, 2, 3} {
		v, status := in.Read()
		if status != NewData || v != want {
			t.Fatalf("read = (%v, %v), want (%d, NEW_DATA)", v, status, want)
		}
	}
	if _, status := in.Read(); status != NoData {
		t.Fatalf("read after drain = %v, want NO_DATA", status)
	}
}

func TestCircularBufferOverwritesOldest(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[int]("t2", "v", false)
	if _, err := Connect(out, in, Policy{Data: CIRCULAR_BUFFER, Lock: LOCK_FREE, BufferSize: 3}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	for _, v := range []int{1, 2, 3, 4, 5} {
		out.Write(v)
	}

	for _, want := range []int{3, 4, 5} {
		v, status := in.Read()
		if status != NewData || v != want {
			t.Fatalf("read = (%v, %v), want (%d, NEW_DATA)", v, status, want)
		}
	}
}

func TestWriteAggregateStatus(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	if got := out.Write(1); got != NoneConnected {
		t.Fatalf("write with no connections = %v, want none-connected", got)
	}

	in1 := NewInputPort[int]("t2", "a", false)
	in2 := NewInputPort[int]("t3", "b", false)
	Connect(out, in1, Policy{Data: BUFFER, Lock: LOCKED, BufferSize: 1})
	Connect(out, in2, Policy{Data: BUFFER, Lock: LOCKED, BufferSize: 1})

	if got := out.Write(1); got != AllOK {
		t.Fatalf("first fan-out write = %v, want all-ok", got)
	}
	if got := out.Write(2); got != SomeDropped {
		t.Fatalf("second fan-out write = %v, want some-dropped (both full)", got)
	}
}

func TestReadAllFanInDoesNotCollapse(t *testing.T) {
	out1 := NewOutputPort[int]("p1", "v", Hooks{})
	out2 := NewOutputPort[int]("p2", "v", Hooks{})
	in := NewInputPort[int]("c", "v", false)
	Connect(out1, in, Policy{Data: DATA, Lock: UNSYNC})
	Connect(out2, in, Policy{Data: DATA, Lock: UNSYNC})

	out1.Write(10)
	out2.Write(20)

	var got []int
	in.ReadAll(func(v int) { got = append(got, v) })
	if len(got) != 2 {
		t.Fatalf("ReadAll collected %v, want 2 values", got)
	}
}

func TestRewiringForbidden(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[int]("t2", "v", false)
	if _, err := Connect(out, in, Policy{Data: DATA, Lock: UNSYNC}); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if _, err := Connect(out, in, Policy{Data: DATA, Lock: UNSYNC}); err == nil {
		t.Fatal("second connect to the same pair should fail")
	}
}

func TestDisconnectRemovesFromBothEndpoints(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[int]("t2", "v", false)
	conn, err := Connect(out, in, Policy{Data: DATA, Lock: UNSYNC})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	conn.Disconnect()
	if out.ConnectionCount() != 0 || in.ConnectionCount() != 0 {
		t.Fatalf("after disconnect: out=%d in=%d, want 0/0", out.ConnectionCount(), in.ConnectionCount())
	}
}

func TestWireRejectsTypeMismatch(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[string]("t2", "v", false)
	if _, err := Wire(out, in, Policy{Data: DATA, Lock: UNSYNC}); err == nil {
		t.Fatal("Wire across mismatched types should fail")
	}
}

func TestEventTriggerFiresOnlyOnStateChange(t *testing.T) {
	out := NewOutputPort[int]("t1", "v", Hooks{})
	in := NewInputPort[int]("t2", "v", true)
	fires := 0
	in.SetTrigger(func() { fires++ })
	if _, err := Connect(out, in, Policy{Data: DATA, Lock: UNSYNC}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	out.Write(1) // fresh slot: fires
	out.Write(2) // still fresh (already marked): still "changed" is false since wasFresh was true
	if fires != 1 {
		t.Fatalf("fires = %d, want 1 (only the first write transitions stale->fresh)", fires)
	}

	in.Read()
	out.Write(3) // slot went stale after read, so this write changes state again
	if fires != 2 {
		t.Fatalf("fires = %d, want 2", fires)
	}
}
