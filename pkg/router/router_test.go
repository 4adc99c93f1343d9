package router

import (
	"testing"
	"time"
)

func TestRegisterAndDispatchBroadcasts(t *testing.T) {
	r := New[string](Options{Store: "orders"})
	defer r.Close()

	c1 := make(chan string, 1)
	c2 := make(chan string, 1)

	if err := r.Register(c1); err != nil {
		t.Fatalf("Register c1: %v", err)
	}
	if err := r.Register(c2); err != nil {
		t.Fatalf("Register c2: %v", err)
	}

	if err := r.Dispatch("hello"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	select {
	case msg := <-c1:
		if msg != "hello" {
			t.Errorf("c1 got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("c1 did not receive dispatch")
	}

	select {
	case msg := <-c2:
		if msg != "hello" {
			t.Errorf("c2 got %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("c2 did not receive dispatch")
	}
}

func TestRegisterRejectsSameChannelTwice(t *testing.T) {
	r := New[string](Options{Store: "orders"})
	defer r.Close()

	c1 := make(chan string, 1)
	if err := r.Register(c1); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(c1); err != ErrAlreadyRegistered {
		t.Errorf("got %v, want ErrAlreadyRegistered", err)
	}
}

func TestReporterOffRejectsSubscribeAndNoOpsDispatch(t *testing.T) {
	r := New[string](Options{Store: "orders", ReporterOff: true})
	defer r.Close()

	c1 := make(chan string, 1)
	if err := r.Register(c1); err != ErrReporterIsOff {
		t.Errorf("got %v, want ErrReporterIsOff", err)
	}

	if err := r.Dispatch("hello"); err != nil {
		t.Errorf("Dispatch with reporter off should no-op, got %v", err)
	}
}

func TestSubscribersObserveDispatchOrder(t *testing.T) {
	r := New[int](Options{Store: "orders"})
	defer r.Close()

	c1 := make(chan int, 10)
	c2 := make(chan int, 10)
	r.Register(c1)
	r.Register(c2)

	for i := 0; i < 5; i++ {
		if err := r.Dispatch(i); err != nil {
			t.Fatalf("Dispatch(%d): %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		if got := <-c1; got != i {
			t.Errorf("c1 event %d: got %d", i, got)
		}
		if got := <-c2; got != i {
			t.Errorf("c2 event %d: got %d", i, got)
		}
	}
}

func TestCloseIsIdempotentAndStopsDeliveringLater(t *testing.T) {
	r := New[string](Options{Store: "orders"})
	r.Close()
	r.Close()

	if err := r.Dispatch("late"); err != ErrClosed {
		t.Errorf("Dispatch after Close: got %v, want ErrClosed", err)
	}
}
