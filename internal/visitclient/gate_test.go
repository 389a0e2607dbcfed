package visitclient

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGateBeginOnlyOnce(t *testing.T) {
	var g gate
	if !g.Begin() {
		t.Fatal("first Begin should win")
	}
	if g.Begin() {
		t.Fatal("second Begin should lose while in flight")
	}
	g.Done()
	if g.Begin() {
		t.Fatal("Begin should lose after Done")
	}
	if !g.Fired() {
		t.Fatal("gate should report fired after Done")
	}
}

func TestGateAbortReopens(t *testing.T) {
	var g gate
	g.Begin()
	g.Abort()
	if g.Fired() {
		t.Fatal("gate should not be fired after Abort")
	}
	if !g.Begin() {
		t.Fatal("Begin should win again after Abort")
	}
}

func TestGateConcurrentBegin(t *testing.T) {
	var g gate
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Begin() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one winner, got %d", got)
	}
}
