package group

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestManager_GetOrCreateConcurrentSameName(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	const callers = 100
	results := make([]*Group, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			g, err := m.GetOrCreate(ctx, "x")
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			results[i] = g
		}(i)
	}
	close(start)
	wg.Wait()

	for i, g := range results {
		if g != results[0] {
			t.Fatalf("caller %d got a different group", i)
		}
	}

	n, err := m.Len(ctx)
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestManager_DistinctNamesDistinctGroups(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	seen := make(map[*Group]string)
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("room-%d", i)
		g, err := m.GetOrCreate(ctx, name)
		if err != nil {
			t.Fatalf("GetOrCreate(%s) failed: %v", name, err)
		}
		if g.Name() != name {
			t.Errorf("Name() = %q, want %q", g.Name(), name)
		}
		if other, dup := seen[g]; dup {
			t.Errorf("%s and %s share a group", name, other)
		}
		seen[g] = name
	}

	if n, _ := m.Len(ctx); n != 5 {
		t.Errorf("Len = %d, want 5", n)
	}
}

func TestManager_LookupDoesNotCreate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	g, ok, err := m.Lookup(ctx, "h")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if ok || g != nil {
		t.Errorf("Lookup(h) = %v, %v; want nil, false", g, ok)
	}
	if n, _ := m.Len(ctx); n != 0 {
		t.Errorf("Len = %d after Lookup, want 0", n)
	}

	created, _ := m.GetOrCreate(ctx, "h")
	g, ok, _ = m.Lookup(ctx, "h")
	if !ok || g != created {
		t.Error("Lookup did not return the created group")
	}
}

func TestManager_JoinReturnsPostableGroup(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a := &fakeMember{}
	g, err := m.Join(ctx, "g", a)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	same, _ := m.GetOrCreate(ctx, "g")
	if g != same {
		t.Error("Join returned a different group than GetOrCreate")
	}

	if _, err := m.Join(ctx, "g", nil); !errors.Is(err, ErrNilMember) {
		t.Errorf("Join(nil) = %v, want ErrNilMember", err)
	}
}

func TestManager_StopStopsEverything(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	g, _ := m.Join(ctx, "g", &fakeMember{})

	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if _, err := m.GetOrCreate(ctx, "g"); !errors.Is(err, ErrManagerStopped) {
		t.Errorf("GetOrCreate after Stop = %v, want ErrManagerStopped", err)
	}
	if _, err := m.Len(ctx); !errors.Is(err, ErrManagerStopped) {
		t.Errorf("Len after Stop = %v, want ErrManagerStopped", err)
	}
	if err := g.Post(ctx, "late"); !errors.Is(err, ErrGroupStopped) {
		t.Errorf("Post after Stop = %v, want ErrGroupStopped", err)
	}

	// Idempotent
	if err := m.Stop(ctx); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
}

func TestManager_StopTimesOutOnWedgedGroup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(WithClock(clock), WithStopTimeout(5*time.Second))
	ctx := context.Background()

	release := make(chan struct{})
	defer close(release)
	stuck := &blockingMember{release: release, entered: make(chan struct{}, 1)}
	g, _ := m.Join(ctx, "g", stuck)
	g.Post(ctx, "park")
	<-stuck.entered

	stopped := make(chan error, 1)
	go func() { stopped <- m.Stop(ctx) }()

	// Wait until the manager is sleeping on the stop timer, then expire it.
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("manager never armed the stop timer: %v", err)
	}
	clock.Advance(5 * time.Second)

	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop = %v, want nil after timeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the stop timeout elapsed")
	}
}
