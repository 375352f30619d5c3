package ackreg

import (
	"errors"
	"testing"

	"github.com/nhirsama/deviceproto/internal/protoerr"
)

func TestSetResultFiresOnceAndRemoves(t *testing.T) {
	r := New()
	calls := 0
	r.Register(1, 1000, func() { calls++ }, func(error) { t.Fatal("onError should not fire") })

	r.SetResult(1)
	r.SetResult(1) // late duplicate: must be a no-op

	if calls != 1 {
		t.Fatalf("onSuccess fired %d times, want 1", calls)
	}
	if r.Has(1) {
		t.Error("handler should be removed after firing")
	}
}

func TestSetErrorFiresOnceAndRemoves(t *testing.T) {
	r := New()
	var gotErr error
	sentinel := errors.New("boom")
	r.Register(2, 1000, func() { t.Fatal("onSuccess should not fire") }, func(e error) { gotErr = e })

	r.SetError(2, sentinel)
	if !errors.Is(gotErr, sentinel) {
		t.Errorf("got %v, want %v", gotErr, sentinel)
	}
	if r.Has(2) {
		t.Error("handler should be removed after firing")
	}
}

func TestUpdateFiresTimeoutExactlyOnce(t *testing.T) {
	r := New()
	timeouts := 0
	r.Register(3, 100, func() { t.Fatal("onSuccess should not fire") }, func(e error) {
		timeouts++
		if !errors.Is(e, protoerr.ErrMessageTimeout) {
			t.Errorf("got %v, want ErrMessageTimeout", e)
		}
	})

	r.Update(50)
	if r.Has(3) {
		// not yet expired
	} else {
		t.Fatal("handler expired too early")
	}
	r.Update(60)
	if timeouts != 1 {
		t.Fatalf("timeouts = %d, want 1", timeouts)
	}
	r.Update(1000) // must not fire again
	if timeouts != 1 {
		t.Fatalf("timeouts fired again: %d", timeouts)
	}
}

func TestClearDropsWithoutFiring(t *testing.T) {
	r := New()
	fired := false
	r.Register(4, 10, func() { fired = true }, func(error) { fired = true })
	r.Clear()
	r.Update(1000)
	r.SetResult(4)
	r.SetError(4, errors.New("x"))
	if fired {
		t.Error("Clear must not invoke handlers")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestMultipleIndependentHandlers(t *testing.T) {
	r := New()
	results := map[uint16]string{}
	r.Register(1, 1000, func() { results[1] = "ok" }, func(error) { results[1] = "err" })
	r.Register(2, 1000, func() { results[2] = "ok" }, func(error) { results[2] = "err" })

	r.SetResult(1)
	r.SetError(2, errors.New("nope"))

	if results[1] != "ok" || results[2] != "err" {
		t.Errorf("results = %v", results)
	}
}
