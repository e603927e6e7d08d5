package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/lost-found/internal/adapter/storage"
	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/core/service"
	"github.com/rl1809/lost-found/internal/port"
)

const (
	redisAddr     = "localhost:6379"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "lostfound-stress-*")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	db, err := storage.OpenDB(storage.SQLOptions{
		Driver: storage.DriverSQLite,
		DSN:    filepath.Join(dir, "stress.db"),
	}, zap.NewNop())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	store := storage.NewSQLAdapter(db)
	defer store.Close()
	if err := store.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Redis is optional, the database alone must prevent overselling
	var guard port.ClaimGuard
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err == nil {
		guard = storage.NewRedisAdapter(rdb, 10*time.Second)
	}

	created, err := store.CreateItems(ctx, []domain.Item{
		domain.NewItem("Phone Charger", initialStock, "Front Desk", "stress test", time.Now()),
	})
	if err != nil {
		log.Fatalf("failed to create item: %v", err)
	}
	itemID := created[0].ID

	for i := 0; i < totalRequests; i++ {
		if _, err := store.CreateUser(ctx, domain.User{
			Username: fmt.Sprintf("user-%d", i),
			Name:     fmt.Sprintf("User %d", i),
			Role:     domain.RoleUser,
			Enabled:  true,
		}); err != nil {
			log.Fatalf("failed to create user: %v", err)
		}
	}

	claims := service.NewClaimService(store, store, store, store, guard, zap.NewNop())

	var successCount, rejectedCount, errorCount atomic.Int32

	var g errgroup.Group
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		username := fmt.Sprintf("user-%d", i)
		g.Go(func() error {
			_, err := claims.CreateClaim(ctx, username, service.ClaimRequest{ItemID: itemID, Quantity: 1})
			switch {
			case err == nil:
				successCount.Add(1)
			case service.IsClientError(err):
				rejectedCount.Add(1)
			default:
				errorCount.Add(1)
				log.Printf("%s: %v", username, err)
			}
			return nil
		})
	}

	g.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	rejected := rejectedCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Redis Guard:      %t\n", guard != nil)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejected)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success > initialStock {
		fmt.Printf("FAIL: %d claims succeeded for %d units\n", success, initialStock)
	} else if success == initialStock {
		fmt.Printf("PASS: Exactly %d claims succeeded, %d rejected\n", initialStock, rejected)
	} else {
		fmt.Printf("FAIL: Expected %d successful claims, got %d\n", initialStock, success)
	}

	item, err := store.GetItem(ctx, itemID)
	if err != nil {
		log.Fatalf("failed to reload item: %v", err)
	}
	if item == nil {
		log.Fatalf("item %d disappeared", itemID)
	}
	fmt.Printf("Final Remaining:  %d\n", item.RemainingQuantity)

	if item.RemainingQuantity == initialStock-int(success) && item.RemainingQuantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected remaining 0, got %d\n", item.RemainingQuantity)
	}
}
