package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/yashrajoria/pharmacy-agent/models"
)

var ErrNotFound = errors.New("product not found")

// InventoryRepository is the external product and order store.
type InventoryRepository interface {
	GetCatalog(ctx context.Context) ([]models.Product, error)
	// GetProduct looks name up by its normalized form. Returns ErrNotFound.
	GetProduct(ctx context.Context, name string) (*models.Product, error)
	// CommitOrder atomically checks stock, decrements it and records the
	// order. Business failures come back as Success=false. A non-empty
	// idempotencyKey becomes the order id, and repeating a commit with
	// the same key never decrements stock twice.
	CommitOrder(ctx context.Context, productName string, quantity int, idempotencyKey string) (*models.CommitResult, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	PutProduct(ctx context.Context, p models.Product) error
}

// DynamoAPI is the subset of the DynamoDB client used here.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoInventoryRepository struct {
	client        DynamoAPI
	productsTable string
	ordersTable   string
	now           func() time.Time
}

func NewDynamoInventoryRepository(client DynamoAPI, productsTable, ordersTable string) *DynamoInventoryRepository {
	return &DynamoInventoryRepository{
		client:        client,
		productsTable: productsTable,
		ordersTable:   ordersTable,
		now:           time.Now,
	}
}

// Products are keyed by the normalized name so that "Paracetamol-XL" and
// "paracetamol xl" address the same row.
type ddbProduct struct {
	NameKey              string  `dynamodbav:"name_key"`
	Name                 string  `dynamodbav:"name"`
	Stock                int     `dynamodbav:"stock"`
	Price                float64 `dynamodbav:"price"`
	RequiresPrescription bool    `dynamodbav:"requires_prescription"`
}

type ddbOrder struct {
	OrderID     string  `dynamodbav:"order_id"`
	ProductName string  `dynamodbav:"product_name"`
	Quantity    int     `dynamodbav:"quantity"`
	UnitPrice   float64 `dynamodbav:"unit_price"`
	TotalPrice  float64 `dynamodbav:"total_price"`
	Status      string  `dynamodbav:"status"`
	CreatedAt   string  `dynamodbav:"created_at"`
}

func (p ddbProduct) toModel() models.Product {
	return models.Product{
		Name:                 p.Name,
		Stock:                p.Stock,
		UnitPrice:            p.Price,
		RequiresPrescription: p.RequiresPrescription,
	}
}

func productKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name_key": &types.AttributeValueMemberS{Value: models.NormalizeText(name)},
	}
}

func (r *DynamoInventoryRepository) GetCatalog(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: &r.productsTable})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb Scan %s failed: %w", r.productsTable, err)
		}
		var items []ddbProduct
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal products: %w", err)
		}
		for _, it := range items {
			products = append(products, it.toModel())
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *DynamoInventoryRepository) GetProduct(ctx context.Context, name string) (*models.Product, error) {
	if models.NormalizeText(name) == "" {
		return nil, ErrNotFound
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.productsTable,
		Key:            productKey(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var p ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	m := p.toModel()
	return &m, nil
}

func (r *DynamoInventoryRepository) PutProduct(ctx context.Context, p models.Product) error {
	key := models.NormalizeText(p.Name)
	if key == "" {
		return fmt.Errorf("product name %q normalizes to empty", p.Name)
	}
	item, err := attributevalue.MarshalMap(ddbProduct{
		NameKey:              key,
		Name:                 p.Name,
		Stock:                p.Stock,
		Price:                p.UnitPrice,
		RequiresPrescription: p.RequiresPrescription,
	})
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &r.productsTable, Item: item}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// CommitOrder sends idempotencyKey as the ClientRequestToken, so a retry
// within DynamoDB's idempotency window returns the first outcome.
func (r *DynamoInventoryRepository) CommitOrder(ctx context.Context, productName string, quantity int, idempotencyKey string) (*models.CommitResult, error) {
	if quantity < 1 {
		return &models.CommitResult{Reason: "quantity must be at least 1"}, nil
	}

	product, err := r.GetProduct(ctx, productName)
	if errors.Is(err, ErrNotFound) {
		return &models.CommitResult{Reason: "medicine not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	orderID := idempotencyKey
	if orderID == "" {
		orderID = uuid.NewString()
	}
	order := ddbOrder{
		OrderID:     orderID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.UnitPrice,
		TotalPrice:  product.UnitPrice * float64(quantity),
		Status:      models.OrderStatusCommitted,
		CreatedAt:   r.now().UTC().Format(time.RFC3339),
	}
	orderItem, err := attributevalue.MarshalMap(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           &r.productsTable,
					Key:                 productKey(productName),
					UpdateExpression:    aws.String("SET #stock = #stock - :qty"),
					ConditionExpression: aws.String("attribute_exists(#key) AND #stock >= :qty"),
					ExpressionAttributeNames: map[string]string{
						"#stock": "stock",
						"#key":   "name_key",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":qty": &types.AttributeValueMemberN{Value: strconv.Itoa(quantity)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           &r.ordersTable,
					Item:                orderItem,
					ConditionExpression: aws.String("attribute_not_exists(order_id)"),
				},
			},
		},
	}
	if idempotencyKey != "" {
		input.ClientRequestToken = aws.String(idempotencyKey)
	}

	_, err = r.client.TransactWriteItems(ctx, input)
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return &models.CommitResult{Reason: r.cancellationReason(ctx, canceled, productName, quantity, orderID)}, nil
		}
		return nil, fmt.Errorf("dynamodb TransactWriteItems failed: %w", err)
	}

	return &models.CommitResult{OrderID: order.OrderID, Success: true}, nil
}

// cancellationReason re-reads the product so the caller learns what the
// stock actually was when the condition failed.
func (r *DynamoInventoryRepository) cancellationReason(ctx context.Context, canceled *types.TransactionCanceledException, productName string, quantity int, orderID string) string {
	reasons := canceled.CancellationReasons
	// The order put fails its condition when this order id was already
	// recorded, outside the token's idempotency window.
	if len(reasons) > 1 && aws.ToString(reasons[1].Code) == "ConditionalCheckFailed" {
		return fmt.Sprintf("order %s was already recorded", orderID)
	}
	if len(reasons) == 0 || aws.ToString(reasons[0].Code) != "ConditionalCheckFailed" {
		return "order transaction was canceled"
	}
	latest, err := r.GetProduct(ctx, productName)
	switch {
	case errors.Is(err, ErrNotFound):
		return "medicine not found"
	case err != nil:
		return "insufficient stock"
	default:
		return fmt.Sprintf("insufficient stock: requested %d, available %d", quantity, latest.Stock)
	}
}

func (r *DynamoInventoryRepository) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: &r.ordersTable})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb Scan %s failed: %w", r.ordersTable, err)
		}
		var items []ddbOrder
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, it := range items {
			o := models.Order{
				OrderID:     it.OrderID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				TotalPrice:  it.TotalPrice,
				Status:      it.Status,
			}
			if t, err := time.Parse(time.RFC3339, it.CreatedAt); err == nil {
				o.CreatedAt = t
			}
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}
