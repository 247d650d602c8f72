package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/agroledger/agroledger/pkg/storage"
)

// GetByFarm retrieves all catalog products of one farm.
func (s *Store) GetByFarm(ctx context.Context, farmID string) ([]models.Product, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.ProductsTableName),
		KeyConditionExpression: aws.String("farm_id = :farm"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":farm": &types.AttributeValueMemberS{Value: farmID},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query farm products: %w", err)
	}

	var items []productItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products: %w", err)
	}

	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		product, err := fromProductItem(item)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, nil
}

// DecrementInventory atomically reduces a product's quantity and records the
// adjustment under the order number. The adjustment put is conditional on the
// order number being unseen, which makes the decrement exactly-once: a retry
// for the same order fails with ErrInventoryAlreadyAdjusted and changes
// nothing.
func (s *Store) DecrementInventory(ctx context.Context, farmID, productID string, quantity int64, orderNumber string) error {
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive")
	}

	adjustment := adjustmentItem{
		OrderNumber: orderNumber,
		FarmID:      farmID,
		ProductID:   productID,
		Quantity:    quantity,
		EntryID:     uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
	}
	adjustmentAV, err := attributevalue.MarshalMap(adjustment)
	if err != nil {
		return fmt.Errorf("failed to marshal adjustment: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: claim the order number.
				Put: &types.Put{
					TableName:           aws.String(s.AdjustmentsTableName),
					Item:                adjustmentAV,
					ConditionExpression: aws.String("attribute_not_exists(order_number)"),
				},
			},
			{
				// Operation 2: decrement the product quantity.
				Update: &types.Update{
					TableName: aws.String(s.ProductsTableName),
					Key: map[string]types.AttributeValue{
						"farm_id":    &types.AttributeValueMemberS{Value: farmID},
						"product_id": &types.AttributeValueMemberS{Value: productID},
					},
					UpdateExpression:    aws.String("SET quantity = quantity - :qty, updated_at = :now"),
					ConditionExpression: aws.String("attribute_exists(product_id) AND quantity >= :qty"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":qty": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", quantity)},
						":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
					},
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var txc *types.TransactionCanceledException
		if errors.As(err, &txc) && len(txc.CancellationReasons) >= 2 {
			if reasonFailed(txc.CancellationReasons[0]) {
				return fmt.Errorf("%w: %s", storage.ErrInventoryAlreadyAdjusted, orderNumber)
			}
			if reasonFailed(txc.CancellationReasons[1]) {
				return fmt.Errorf("%w: product %s/%s, requested %d", storage.ErrInsufficientInventory, farmID, productID, quantity)
			}
		}
		return fmt.Errorf("failed to decrement inventory: %w", err)
	}
	return nil
}

func reasonFailed(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}
