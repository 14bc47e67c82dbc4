package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	appCatalog "github.com/ventamart/orderstock/internal/application/catalog"
	appOrder "github.com/ventamart/orderstock/internal/application/order"
	domorder "github.com/ventamart/orderstock/internal/domain/order"
	domproduct "github.com/ventamart/orderstock/internal/domain/product"
	"github.com/ventamart/orderstock/internal/infrastructure/id"
	"github.com/ventamart/orderstock/internal/infrastructure/memory"
)

// loadgen drives N concurrent confirmations at a single product with S
// units of stock through the in-memory stack and reports the split. With
// quantity 1 the expected result is min(S, N) confirmations and N-min(S, N)
// insufficient-stock rejections, never a negative final count.
func main() {
	var (
		stock    = flag.Int("stock", 20, "initial stock for the contested product")
		requests = flag.Int("requests", 50, "number of concurrent confirmation attempts")
		quantity = flag.Int("quantity", 1, "units each order claims")
	)
	flag.Parse()

	ctx := context.Background()

	store := memory.NewStore(5 * time.Second)
	idGen := id.NewUUIDGenerator()
	customers := memory.NewCustomerDirectory()

	orderService := appOrder.NewService(store, store.ProductRepository(), customers, idGen, nil, nil)
	catalogService := appCatalog.NewService(store.ProductRepository(), idGen, nil, nil)

	product, err := catalogService.Create(ctx, appCatalog.CreateInput{
		Code:        "LOAD-1",
		Name:        "contested product",
		Description: "single row every order fights over",
		PriceAmount: "9.99",
		Currency:    "USD",
		Stock:       *stock,
	})
	if err != nil {
		log.Fatalf("create product: %v", err)
	}

	orderIDs := make([]string, 0, *requests)
	for i := 0; i < *requests; i++ {
		o, err := orderService.Create(ctx, appOrder.CreateInput{CustomerID: fmt.Sprintf("customer-%d", i)})
		if err != nil {
			log.Fatalf("create order: %v", err)
		}
		if _, err := orderService.AddLine(ctx, appOrder.AddLineInput{
			OrderID:   o.ID,
			ProductID: product.ID,
			Quantity:  *quantity,
		}); err != nil {
			log.Fatalf("add line: %v", err)
		}
		orderIDs = append(orderIDs, o.ID)
	}

	var confirmed, rejected, failed atomic.Int32
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, orderID := range orderIDs {
		g.Go(func() error {
			_, err := orderService.Confirm(gctx, orderID)
			switch {
			case err == nil:
				confirmed.Add(1)
			case errors.Is(err, domproduct.ErrInsufficientStock):
				rejected.Add(1)
			case errors.Is(err, domorder.ErrLockWaitTimeout):
				failed.Add(1)
			default:
				failed.Add(1)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Printf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	final, err := catalogService.Get(ctx, product.ID)
	if err != nil {
		log.Fatalf("read product: %v", err)
	}

	fmt.Printf("requests:    %d (quantity %d each)\n", *requests, *quantity)
	fmt.Printf("confirmed:   %d\n", confirmed.Load())
	fmt.Printf("rejected:    %d (insufficient stock)\n", rejected.Load())
	fmt.Printf("failed:      %d\n", failed.Load())
	fmt.Printf("final stock: %d (started at %d)\n", final.StockQuantity, *stock)
	fmt.Printf("elapsed:     %s\n", elapsed)

	if final.StockQuantity < 0 {
		log.Fatal("stock went negative: overselling detected")
	}
	if got, want := int(confirmed.Load())*(*quantity), *stock-final.StockQuantity; got != want {
		log.Fatalf("lost update: confirmed units %d != decremented units %d", got, want)
	}
}
