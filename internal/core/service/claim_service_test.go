package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rl1809/lost-found/internal/core/domain"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newClaimFixture(t *testing.T, guard *memGuard) (*ClaimService, *memStore) {
	t.Helper()
	store := newMemStore()
	var svc *ClaimService
	if guard != nil {
		svc = NewClaimService(store, store, store, store, guard, nil)
	} else {
		svc = NewClaimService(store, store, store, store, nil, nil)
	}
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func TestCreateClaim_Success(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	user := store.addUser(domain.User{Username: "alice", Name: "Alice", Role: domain.RoleUser, Enabled: true})
	item := store.addItem("Laptop", 3)

	view, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 2, Note: "mine"})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if view.ID == 0 {
		t.Error("expected claim id to be assigned")
	}
	if view.UserID != user.ID || view.UserName != "Alice" {
		t.Errorf("unexpected claimant: %d %q", view.UserID, view.UserName)
	}
	if view.ItemID != item.ID || view.ItemName != "Laptop" || view.Place != "Library" {
		t.Errorf("unexpected item projection: %+v", view)
	}
	if view.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", view.Quantity)
	}
	if view.Status != domain.ClaimStatusPending {
		t.Errorf("expected PENDING, got %s", view.Status)
	}
	if !view.ClaimDate.Equal(fixedNow) {
		t.Errorf("expected claim date %v, got %v", fixedNow, view.ClaimDate)
	}
	if view.Note != "mine" {
		t.Errorf("expected note to be kept, got %q", view.Note)
	}

	stored := store.item(item.ID)
	if stored.RemainingQuantity != 1 {
		t.Errorf("expected remaining 1, got %d", stored.RemainingQuantity)
	}
	if stored.Quantity != 3 {
		t.Errorf("total quantity must not change, got %d", stored.Quantity)
	}
	if stored.Version != 1 {
		t.Errorf("expected version 1, got %d", stored.Version)
	}
}

func TestCreateClaim_ExhaustsItem(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	store.addUser(domain.User{Username: "alice", Name: "Alice"})
	item := store.addItem("Umbrella", 1)

	if _, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if got := store.item(item.ID); got.IsAvailable() {
		t.Error("expected item to be unavailable after claiming the last unit")
	}
}

func TestCreateClaim_Failures(t *testing.T) {
	tests := []struct {
		name     string
		username string
		itemID   int64
		quantity int
		want     error
	}{
		{"unknown user", "mallory", 0, 1, domain.ErrUserNotFound},
		{"unknown item", "alice", 999, 1, domain.ErrItemNotFound},
		{"more than remaining", "alice", 0, 5, domain.ErrInsufficientQuantity},
		{"zero quantity", "alice", 0, 0, domain.ErrInsufficientQuantity},
		{"negative quantity", "alice", 0, -2, domain.ErrInsufficientQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newClaimFixture(t, nil)
			store.addUser(domain.User{Username: "alice", Name: "Alice"})
			item := store.addItem("Laptop", 3)
			itemID := tt.itemID
			if itemID == 0 {
				itemID = item.ID
			}

			_, err := svc.CreateClaim(context.Background(), tt.username, ClaimRequest{ItemID: itemID, Quantity: tt.quantity})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got: %v", tt.want, err)
			}

			if got := store.item(item.ID); got.RemainingQuantity != 3 || got.Version != 0 {
				t.Errorf("item must be untouched, got remaining %d version %d", got.RemainingQuantity, got.Version)
			}
			if store.claimCount() != 0 {
				t.Errorf("expected no claims, got %d", store.claimCount())
			}
		})
	}
}

func TestCreateClaim_InsufficientMessage(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 3)

	_, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 5})

	if err == nil || !strings.Contains(err.Error(), "Requested: 5, Available: 3") {
		t.Errorf("expected requested/available in message, got: %v", err)
	}
}

func TestCreateClaim_Duplicate(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 5)

	if _, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1}); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	_, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1})
	if !errors.Is(err, domain.ErrDuplicateClaim) {
		t.Fatalf("expected ErrDuplicateClaim, got: %v", err)
	}
	if !errors.Is(err, domain.ErrInvalidOperation) {
		t.Errorf("duplicate claim must be an invalid operation, got: %v", err)
	}

	// Stock should only be decremented once
	if got := store.item(item.ID).RemainingQuantity; got != 4 {
		t.Errorf("expected remaining 4, got %d", got)
	}
}

func TestCreateClaim_InsertFailureRollsBack(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", domain.ErrDuplicateClaim, domain.ErrInvalidOperation},
		{"storage failure", errors.New("disk full"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newClaimFixture(t, nil)
			store.addUser(domain.User{Username: "alice"})
			item := store.addItem("Laptop", 2)
			store.createClaimErr = tt.err

			_, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1})
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got: %v", tt.err, err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}

			got := store.item(item.ID)
			if got.RemainingQuantity != 2 || got.Version != 0 {
				t.Errorf("decrement must be rolled back, got remaining %d version %d", got.RemainingQuantity, got.Version)
			}
			if store.rollbacks != 1 || store.commits != 0 {
				t.Errorf("expected one rollback, got %d rollbacks %d commits", store.rollbacks, store.commits)
			}
		})
	}
}

func TestCreateClaim_StaleVersion(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 2)

	// another writer commits between our read and our write
	store.afterGetItem = func() {
		store.mu.Lock()
		stored := store.items[item.ID]
		stored.Version++
		store.items[item.ID] = stored
		store.mu.Unlock()
	}

	_, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1})
	if !errors.Is(err, domain.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got: %v", err)
	}
	if got := store.item(item.ID).RemainingQuantity; got != 2 {
		t.Errorf("expected remaining 2, got %d", got)
	}
	if store.claimCount() != 0 {
		t.Errorf("expected no claims, got %d", store.claimCount())
	}
}

func TestCreateClaim_ConcurrentLastUnit(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	store.addUser(domain.User{Username: "alice"})
	store.addUser(domain.User{Username: "bob"})
	item := store.addItem("Laptop", 1)

	// both requests read version 0 before either writes
	var read sync.WaitGroup
	read.Add(2)
	store.afterGetItem = func() {
		read.Done()
		read.Wait()
	}

	var successCount atomic.Int32
	errs := make([]error, 2)
	var g errgroup.Group
	for i, username := range []string{"alice", "bob"} {
		g.Go(func() error {
			_, errs[i] = svc.CreateClaim(context.Background(), username, ClaimRequest{ItemID: item.ID, Quantity: 1})
			if errs[i] == nil {
				successCount.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if successCount.Load() != 1 {
		t.Fatalf("expected exactly one success, got %d (%v)", successCount.Load(), errs)
	}
	for _, err := range errs {
		if err != nil && !errors.Is(err, domain.ErrConcurrentModification) {
			t.Errorf("expected ErrConcurrentModification for the loser, got: %v", err)
		}
	}
	if got := store.item(item.ID).RemainingQuantity; got != 0 {
		t.Errorf("expected remaining 0, got %d", got)
	}
	if store.claimCount() != 1 {
		t.Errorf("expected one claim, got %d", store.claimCount())
	}
}

func TestCreateClaim_ConcurrentNoOverselling(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	svc, store := newClaimFixture(t, nil)
	item := store.addItem("Water Bottle", initialStock)
	for i := 0; i < totalRequests; i++ {
		store.addUser(domain.User{Username: fmt.Sprintf("user-%d", i)})
	}

	var successCount atomic.Int32
	var g errgroup.Group
	for i := 0; i < totalRequests; i++ {
		g.Go(func() error {
			_, err := svc.CreateClaim(context.Background(), fmt.Sprintf("user-%d", i), ClaimRequest{ItemID: item.ID, Quantity: 1})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientQuantity), errors.Is(err, domain.ErrConcurrentModification):
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining := store.item(item.ID).RemainingQuantity
	if remaining < 0 {
		t.Fatalf("oversold: remaining %d", remaining)
	}
	if int(successCount.Load()) != initialStock-remaining {
		t.Errorf("expected %d successes, got %d", initialStock-remaining, successCount.Load())
	}
	if store.claimCount() != int(successCount.Load()) {
		t.Errorf("expected %d claims, got %d", successCount.Load(), store.claimCount())
	}
}

func TestCreateClaim_GuardHeld(t *testing.T) {
	guard := newMemGuard()
	svc, store := newClaimFixture(t, guard)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 2)
	guard.held[fmt.Sprintf("claim:alice:%d", item.ID)] = "other-request"

	_, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1})
	if !errors.Is(err, domain.ErrDuplicateClaim) {
		t.Fatalf("expected ErrDuplicateClaim, got: %v", err)
	}
	if got := store.item(item.ID).RemainingQuantity; got != 2 {
		t.Errorf("expected remaining 2, got %d", got)
	}
	if store.claimCount() != 0 {
		t.Errorf("expected no claims, got %d", store.claimCount())
	}
	if guard.held[fmt.Sprintf("claim:alice:%d", item.ID)] != "other-request" {
		t.Error("expected the other holder to keep the guard")
	}
}

func TestCreateClaim_GuardHeldLookupsFailFirst(t *testing.T) {
	guard := newMemGuard()
	svc, store := newClaimFixture(t, guard)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 2)
	guard.held[fmt.Sprintf("claim:ghost:%d", item.ID)] = "other-request"
	guard.held["claim:alice:999"] = "other-request"

	_, err := svc.CreateClaim(context.Background(), "ghost", ClaimRequest{ItemID: item.ID, Quantity: 1})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}

	_, err = svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: 999, Quantity: 1})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got: %v", err)
	}

	if len(guard.held) != 2 || len(guard.released) != 0 {
		t.Errorf("expected guard untouched, held=%v released=%v", guard.held, guard.released)
	}
}

func TestCreateClaim_GuardReleased(t *testing.T) {
	guard := newMemGuard()
	svc, store := newClaimFixture(t, guard)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 2)

	if _, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1}); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if len(guard.held) != 0 {
		t.Errorf("expected guard to be released, still held: %v", guard.held)
	}
	if len(guard.released) != 1 {
		t.Errorf("expected one release, got %d", len(guard.released))
	}
}

func TestCreateClaim_GuardUnavailable(t *testing.T) {
	guard := newMemGuard()
	guard.err = errors.New("connection refused")
	svc, store := newClaimFixture(t, guard)
	store.addUser(domain.User{Username: "alice"})
	item := store.addItem("Laptop", 2)

	if _, err := svc.CreateClaim(context.Background(), "alice", ClaimRequest{ItemID: item.ID, Quantity: 1}); err != nil {
		t.Fatalf("expected claim to proceed without guard, got: %v", err)
	}
	if got := store.item(item.ID).RemainingQuantity; got != 1 {
		t.Errorf("expected remaining 1, got %d", got)
	}
}

func TestListClaims(t *testing.T) {
	svc, store := newClaimFixture(t, nil)
	store.addUser(domain.User{Username: "alice", Name: "Alice"})
	store.addUser(domain.User{Username: "bob", Name: "Bob"})
	item := store.addItem("Laptop", 5)

	for _, u := range []string{"alice", "bob"} {
		if _, err := svc.CreateClaim(context.Background(), u, ClaimRequest{ItemID: item.ID, Quantity: 1}); err != nil {
			t.Fatalf("claim for %s failed: %v", u, err)
		}
	}

	page, err := svc.ListClaims(context.Background(), domain.PageRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.TotalElements != 2 || len(page.Content) != 2 {
		t.Fatalf("expected 2 claims, got %d/%d", len(page.Content), page.TotalElements)
	}
	if page.Size != domain.DefaultPageSize {
		t.Errorf("expected default size, got %d", page.Size)
	}
	if page.Content[0].UserName != "Alice" || page.Content[1].UserName != "Bob" {
		t.Errorf("expected insertion order, got %q then %q", page.Content[0].UserName, page.Content[1].UserName)
	}
	if got := store.item(item.ID).RemainingQuantity; got != 3 {
		t.Errorf("listing must not change stock, got %d", got)
	}
}

func TestListClaims_UnknownSortField(t *testing.T) {
	svc, _ := newClaimFixture(t, nil)

	_, err := svc.ListClaims(context.Background(), domain.PageRequest{Sort: []domain.SortOrder{{Field: "password"}}})

	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

func TestIsClientError(t *testing.T) {
	if !IsClientError(fmt.Errorf("wrapped: %w", domain.ErrDuplicateClaim)) {
		t.Error("expected duplicate claim to be a client error")
	}
	if IsClientError(errors.New("connection reset")) {
		t.Error("expected infrastructure error not to be a client error")
	}
}
