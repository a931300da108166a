package interp

import "testing"

func TestAllocIntRoundTrip(t *testing.T) {
	h := newTestHeap(t)
	v, err := h.allocInt(12345)
	if err != nil {
		t.Fatalf("allocInt: %v", err)
	}
	if got := h.IntValue(v); got != 12345 {
		t.Errorf("IntValue = %d, want 12345", got)
	}
}

func TestGCPreservesRootedValues(t *testing.T) {
	h := newTestHeap(t)

	a, b := Nil, Nil
	f := h.PushRoots(&a, &b)
	defer h.PopRoots(f)

	var err error
	a, err = h.allocInt(111)
	if err != nil {
		t.Fatalf("allocInt: %v", err)
	}
	b, err = h.allocCell(a, Nil)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}

	h.collect()

	if got := h.IntValue(h.Car(b)); got != 111 {
		t.Errorf("after GC, Car(b) = %d, want 111", got)
	}
}

func TestGCForwardsSharedIdentity(t *testing.T) {
	h := newTestHeap(t)

	shared, pairA, pairB := Nil, Nil, Nil
	f := h.PushRoots(&shared, &pairA, &pairB)
	defer h.PopRoots(f)

	var err error
	shared, err = h.allocInt(7)
	if err != nil {
		t.Fatalf("allocInt: %v", err)
	}
	pairA, err = h.allocCell(shared, Nil)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}
	pairB, err = h.allocCell(shared, Nil)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}

	h.collect()

	if !h.Car(pairA).Same(h.Car(pairB)) {
		t.Errorf("shared reference lost identity across GC")
	}
}

func TestAlwaysGCConverges(t *testing.T) {
	h, err := NewHeap(8*1024, true)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	defer h.Close()

	list := Nil
	f := h.PushRoots(&list)
	defer h.PopRoots(f)

	for i := 0; i < 50; i++ {
		n, err := h.allocInt(int64(i))
		if err != nil {
			t.Fatalf("allocInt(%d): %v", i, err)
		}
		list, err = h.allocCell(n, list)
		if err != nil {
			t.Fatalf("allocCell(%d): %v", i, err)
		}
	}

	count := 0
	for cur := list; !cur.Same(Nil); cur = h.Cdr(cur) {
		count++
	}
	if count != 50 {
		t.Errorf("list length after always-gc allocation = %d, want 50", count)
	}
}

func TestAllocMemoryExhausted(t *testing.T) {
	h, err := NewHeap(64, false)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	defer h.Close()

	// Keep every allocation reachable so the collector cannot reclaim it.
	list := Nil
	f := h.PushRoots(&list)
	defer h.PopRoots(f)

	var lastErr error
	for i := 0; i < 100; i++ {
		n, err := h.allocInt(int64(i))
		if err != nil {
			lastErr = err
			break
		}
		if list, err = h.allocCell(n, list); err != nil {
			lastErr = err
			break
		}
	}
	le, ok := lastErr.(*LispError)
	if !ok || le.Kind != ErrMemoryExhausted {
		t.Fatalf("expected MemoryExhausted, got %v", lastErr)
	}
}

func TestSymbolInternIdentity(t *testing.T) {
	h := newTestHeap(t)
	a, err := h.Intern("alpha")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	b, err := h.Intern("alpha")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if !a.Same(b) {
		t.Errorf("Intern(\"alpha\") twice did not return identical symbols")
	}
	c, err := h.Intern("beta")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	if a.Same(c) {
		t.Errorf("Intern(\"alpha\") and Intern(\"beta\") collided")
	}
}

func TestGensymUninterned(t *testing.T) {
	h := newTestHeap(t)
	g1, err := h.Gensym()
	if err != nil {
		t.Fatalf("Gensym: %v", err)
	}
	g2, err := h.Gensym()
	if err != nil {
		t.Fatalf("Gensym: %v", err)
	}
	if g1.Same(g2) {
		t.Errorf("two Gensym calls returned the same symbol")
	}
	if found, _ := h.Intern(h.SymbolName(g1)); found.Same(g1) {
		t.Errorf("gensym'd name %q was findable via the obarray", h.SymbolName(g1))
	}
}

func TestPushEnvArityMismatch(t *testing.T) {
	h := newTestHeap(t)

	a, b, params, args := Nil, Nil, Nil, Nil
	f := h.PushRoots(&a, &b, &params, &args)
	defer h.PopRoots(f)

	var err error
	a, err = h.Intern("a")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	b, err = h.Intern("b")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	params, err = h.allocCell(a, Nil)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}
	one, err := h.allocInt(1)
	if err != nil {
		t.Fatalf("allocInt: %v", err)
	}
	two, err := h.allocInt(2)
	if err != nil {
		t.Fatalf("allocInt: %v", err)
	}
	args, err = h.allocCell(one, Nil)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}
	args, err = h.allocCell(two, args)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}

	_, err = h.PushEnv(Nil, params, args)
	le, ok := err.(*LispError)
	if !ok || le.Kind != ErrArityMismatch {
		t.Fatalf("expected ArityMismatch, got %v", err)
	}
}

func TestPushEnvVariadic(t *testing.T) {
	h := newTestHeap(t)

	rest, params := Nil, Nil
	f := h.PushRoots(&rest, &params)
	defer h.PopRoots(f)

	var err error
	rest, err = h.Intern("rest")
	if err != nil {
		t.Fatalf("Intern: %v", err)
	}
	params = rest // bare symbol params: all args bind to one variadic name

	one, err := h.allocInt(1)
	if err != nil {
		t.Fatalf("allocInt: %v", err)
	}
	args, err := h.allocCell(one, Nil)
	if err != nil {
		t.Fatalf("allocCell: %v", err)
	}

	env, err := h.PushEnv(Nil, params, args)
	if err != nil {
		t.Fatalf("PushEnv: %v", err)
	}
	pair := h.FindBinding(env, rest)
	if pair.Same(Nil) {
		t.Fatalf("variadic binding not found")
	}
	if h.ToString(h.Cdr(pair)) != "(1)" {
		t.Errorf("variadic binding = %s, want (1)", h.ToString(h.Cdr(pair)))
	}
}
