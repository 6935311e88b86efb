package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/adapter/storage"
	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	snapshotName  = "stress-test"
	itemID        = "stress-item"
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	redisAdapter := storage.NewRedisAdapter(rdb)
	redisAdapter.Delete(ctx, snapshotName)

	inventory := service.NewInventoryService(redisAdapter, zap.NewNop(), service.WithEventQueue(queueSize))

	// Drain the event queue in background
	eventCount := drainEvents(inventory.Events())

	inventory.Add(itemID, initialStock, nil)

	// The store is not synchronized, callers serialize
	var mu sync.Mutex
	var wg sync.WaitGroup
	var logEntries []string
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()
			if n%2 == 0 {
				logEntries = inventory.Add(itemID, 1, logEntries)
			} else {
				inventory.Remove(itemID, 1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	inventory.Close()
	events := <-eventCount

	if err := inventory.Save(ctx, snapshotName); err != nil {
		log.Fatalf("failed to save snapshot: %v", err)
	}

	reloaded := service.NewInventoryService(redisAdapter, zap.NewNop())
	if err := reloaded.Load(ctx, snapshotName); err != nil {
		log.Fatalf("failed to load snapshot: %v", err)
	}

	// Results
	adds := (totalRequests + 1) / 2
	removes := totalRequests / 2
	expected := initialStock + adds - removes

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Adds / Removes:   %d / %d\n", adds, removes)
	fmt.Printf("Log Entries:      %d\n", len(logEntries))
	fmt.Printf("Events Emitted:   %d\n", events)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if got := inventory.Quantity(itemID); got == expected {
		fmt.Printf("PASS: in-memory stock is %d\n", got)
	} else {
		fmt.Printf("FAIL: expected in-memory stock %d, got %d\n", expected, got)
	}

	if got := reloaded.Quantity(itemID); got == expected {
		fmt.Printf("PASS: reloaded Redis snapshot holds %d\n", got)
	} else {
		fmt.Printf("FAIL: expected reloaded stock %d, got %d\n", expected, got)
	}

	if events == totalRequests+1 {
		fmt.Printf("PASS: %d stock events emitted\n", events)
	} else {
		fmt.Printf("FAIL: expected %d stock events, got %d\n", totalRequests+1, events)
	}

	if len(logEntries) == adds {
		fmt.Println("PASS: one log entry per add")
	} else {
		fmt.Printf("FAIL: expected %d log entries, got %d\n", adds, len(logEntries))
	}
}

// drainEvents consumes queue until it is closed, then sends the number of
// events it saw.
func drainEvents(queue <-chan domain.StockEvent) <-chan int {
	count := make(chan int, 1)
	go func() {
		n := 0
		for range queue {
			n++
		}
		count <- n
	}()
	return count
}
