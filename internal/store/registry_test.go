package store

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/seed"
)

// stalledGateway holds the load of one user until released
type stalledGateway struct {
	*gateway.Memory
	user    string
	started chan struct{}
	release chan struct{}
}

func (g *stalledGateway) LoadUserData(ctx context.Context, userID string) (*models.UserData, error) {
	if userID == g.user {
		select {
		case g.started <- struct{}{}:
		default:
		}
		<-g.release
	}
	return g.Memory.LoadUserData(ctx, userID)
}

func TestRegistryLoadsUsersIndependently(t *testing.T) {
	defer goleak.VerifyNone(t)
	gw := &stalledGateway{
		Memory:  gateway.NewMemory(),
		user:    "slow",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	r := NewRegistry(gw, testLogger(), Options{Catalog: &seed.Catalog{}, NewID: sequentialIDs()})
	defer r.Close()

	type result struct {
		store *Store
		err   error
	}
	slow := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, err := r.Get(context.Background(), "slow")
			slow <- result{s, err}
		}()
	}
	<-gw.started

	fast := make(chan result, 1)
	go func() {
		s, err := r.Get(context.Background(), "fast")
		fast <- result{s, err}
	}()
	select {
	case res := <-fast:
		if res.err != nil || res.store.UserID() != "fast" {
			t.Errorf("Expected the fast user's store, got %v", res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected another user's load not to wait for the stalled one")
	}

	close(gw.release)
	first, second := <-slow, <-slow
	if first.err != nil || second.err != nil {
		t.Fatalf("Get failed: %v, %v", first.err, second.err)
	}
	if first.store != second.store {
		t.Errorf("Expected concurrent callers to share one store")
	}
	if n := r.Len(); n != 2 {
		t.Errorf("Expected 2 stores, got %d", n)
	}
	if calls := gw.Calls(gateway.OpLoad); calls != 2 {
		t.Errorf("Expected one load per user, got %d", calls)
	}
}

func TestRegistryForgetsFailedLoads(t *testing.T) {
	gw := gateway.NewMemory()
	gw.FailOn(gateway.OpLoad, context.DeadlineExceeded)
	r := NewRegistry(gw, testLogger(), Options{Catalog: &seed.Catalog{}})
	defer r.Close()

	if _, err := r.Get(context.Background(), "u1"); err == nil {
		t.Fatal("Expected the load to fail")
	}
	if n := r.Len(); n != 0 {
		t.Errorf("Expected no stores after a failed load, got %d", n)
	}

	gw.FailOn(gateway.OpLoad, nil)
	if _, err := r.Get(context.Background(), "u1"); err != nil {
		t.Errorf("Expected a retry to succeed, got %v", err)
	}
}
