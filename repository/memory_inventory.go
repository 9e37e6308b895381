package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/pharmacy-agent/models"
)

// MemoryInventoryRepository backs STORE_BACKEND=memory and tests.
type MemoryInventoryRepository struct {
	mu       sync.Mutex
	products map[string]models.Product
	orders   []models.Order
	// committed maps idempotency keys to the order they produced.
	committed map[string]string
}

func NewMemoryInventoryRepository(products ...models.Product) *MemoryInventoryRepository {
	r := &MemoryInventoryRepository{
		products:  make(map[string]models.Product),
		committed: make(map[string]string),
	}
	for _, p := range products {
		r.products[models.NormalizeText(p.Name)] = p
	}
	return r
}

func (r *MemoryInventoryRepository) GetCatalog(ctx context.Context) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryInventoryRepository) GetProduct(ctx context.Context, name string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[models.NormalizeText(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryInventoryRepository) PutProduct(ctx context.Context, p models.Product) error {
	key := models.NormalizeText(p.Name)
	if key == "" {
		return fmt.Errorf("product name %q normalizes to empty", p.Name)
	}
	r.mu.Lock()
	r.products[key] = p
	r.mu.Unlock()
	return nil
}

func (r *MemoryInventoryRepository) CommitOrder(ctx context.Context, productName string, quantity int, idempotencyKey string) (*models.CommitResult, error) {
	if quantity < 1 {
		return &models.CommitResult{Reason: "quantity must be at least 1"}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if orderID, ok := r.committed[idempotencyKey]; ok && idempotencyKey != "" {
		return &models.CommitResult{OrderID: orderID, Success: true}, nil
	}

	key := models.NormalizeText(productName)
	p, ok := r.products[key]
	if !ok {
		return &models.CommitResult{Reason: "medicine not found"}, nil
	}
	if p.Stock < quantity {
		return &models.CommitResult{Reason: fmt.Sprintf("insufficient stock: requested %d, available %d", quantity, p.Stock)}, nil
	}

	p.Stock -= quantity
	r.products[key] = p
	orderID := idempotencyKey
	if orderID == "" {
		orderID = uuid.NewString()
	}
	order := models.Order{
		OrderID:     orderID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.UnitPrice,
		TotalPrice:  p.UnitPrice * float64(quantity),
		Status:      models.OrderStatusCommitted,
		CreatedAt:   time.Now().UTC(),
	}
	r.orders = append(r.orders, order)
	if idempotencyKey != "" {
		r.committed[idempotencyKey] = orderID
	}
	return &models.CommitResult{OrderID: order.OrderID, Success: true}, nil
}

func (r *MemoryInventoryRepository) ListOrders(ctx context.Context) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Order, len(r.orders))
	for i := range r.orders {
		out[len(r.orders)-1-i] = r.orders[i]
	}
	return out, nil
}
