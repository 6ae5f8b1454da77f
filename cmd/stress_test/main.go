package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/rl1809/retail-fulfillment/internal/adapter/storage"
	"github.com/rl1809/retail-fulfillment/internal/core/domain"
	"github.com/rl1809/retail-fulfillment/internal/core/service"
)

const (
	productID     = "stress-test-product"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/fulfillment?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(totalRequests)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Reset the product under test
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, name, code, stock, quantity_sold) VALUES (?, 'Stress Test Product', ?, ?, 0)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), quantity_sold = 0`,
		productID, productID, initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	checker := service.NewAvailabilityChecker(mysqlAdapter)
	ledger := service.NewStockLedger(mysqlAdapter, checker, zap.NewNop())

	var successCount, shortCount, raceCount, otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := ledger.CommitReduction(ctx, []domain.StockItem{{ProductID: productID, Quantity: 1}})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				shortCount.Add(1)
			case errors.Is(err, domain.ErrStockReduction):
				raceCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := shortCount.Load() + raceCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:          %d\n", initialStock)
	fmt.Printf("Total Requests:         %d\n", totalRequests)
	fmt.Printf("Successful:             %d\n", success)
	fmt.Printf("Rejected by pre-check:  %d\n", shortCount.Load())
	fmt.Printf("Rejected by guard:      %d\n", raceCount.Load())
	fmt.Printf("Other errors:           %d\n", otherCount.Load())
	fmt.Printf("Duration:               %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d reductions committed, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	rec, err := mysqlAdapter.GetStock(ctx, productID)
	if err != nil || rec == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock: %d, Sold: %d\n", rec.AvailableStock, rec.QuantitySold)

	if rec.AvailableStock == 0 && rec.QuantitySold == initialStock {
		fmt.Println("PASS: Stock depleted to 0 and sold count matches")
	} else {
		fmt.Printf("FAIL: Expected stock 0/sold %d, got %d/%d\n", initialStock, rec.AvailableStock, rec.QuantitySold)
	}
}
