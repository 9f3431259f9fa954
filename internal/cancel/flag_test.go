package cancel

import (
	"sync"
	"testing"
)

func TestFlagSignalIsIdempotent(t *testing.T) {
	var f Flag
	if f.IsSet() {
		t.Fatal("zero flag should not be set")
	}

	f.Signal()
	f.Signal()
	if !f.IsSet() {
		t.Fatal("flag should be set after Signal")
	}

	f.Reset()
	if f.IsSet() {
		t.Fatal("flag should be clear after Reset")
	}
}

func TestFlagConcurrentAccess(t *testing.T) {
	var f Flag
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(f.Signal)
		wg.Go(func() { _ = f.IsSet() })
	}
	wg.Wait()

	if !f.IsSet() {
		t.Fatal("flag should be set")
	}
}
