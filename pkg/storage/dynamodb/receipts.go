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
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/agroledger/agroledger/pkg/storage"
)

// RecordReceipt persists a receipt with a conditional put on its order
// number. Re-running reconciliation for the same transaction hits the
// condition, and the already-stored receipt is returned unchanged: that is
// the idempotence path, not an error.
func (s *Store) RecordReceipt(ctx context.Context, receipt *models.PurchaseReceipt) (*models.PurchaseReceipt, bool, error) {
	item := toReceiptItem(receipt)
	if item.CreatedAt.IsZero() {
		now := time.Now().UTC()
		item.CreatedAt = now
		item.UpdatedAt = now
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal receipt: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.ReceiptsTableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(order_number)"),
	}

	_, err = s.Client.PutItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			existing, getErr := s.GetReceipt(ctx, receipt.OrderNumber)
			if getErr != nil {
				return nil, false, fmt.Errorf("receipt %s already recorded but could not be read back: %w", receipt.OrderNumber, getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to record receipt: %w", err)
	}

	stored, err := fromReceiptItem(item)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// GetReceipt retrieves a receipt by its order number.
func (s *Store) GetReceipt(ctx context.Context, orderNumber string) (*models.PurchaseReceipt, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"order_number": orderNumber})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order number: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.ReceiptsTableName),
		Key:       key,
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrReceiptNotFound, orderNumber)
	}

	var item receiptItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
	}
	return fromReceiptItem(item)
}

// UpdateReceiptStatus advances a receipt's status. The conditional update
// refuses to move a paid receipt anywhere else, so a status can never
// regress.
func (s *Store) UpdateReceiptStatus(ctx context.Context, orderNumber string, status models.ReceiptStatus) error {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.ReceiptsTableName),
		Key: map[string]types.AttributeValue{
			"order_number": &types.AttributeValueMemberS{Value: orderNumber},
		},
		UpdateExpression:    aws.String("SET #status = :status, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(order_number) AND #status <> :paid"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":paid":   &types.AttributeValueMemberS{Value: string(models.ReceiptPaid)},
			":now":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	}

	_, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			existing, getErr := s.GetReceipt(ctx, orderNumber)
			if getErr != nil {
				return getErr
			}
			if existing.Status == models.ReceiptPaid && status == models.ReceiptPaid {
				// Already there; nothing to do.
				return nil
			}
			return fmt.Errorf("receipt %s is %s and cannot move to %s", orderNumber, existing.Status, status)
		}
		return fmt.Errorf("failed to update receipt status: %w", err)
	}
	return nil
}

// ListReconciliationPending retrieves receipts stuck in reconciliation-pending
// for longer than maxAge.
func (s *Store) ListReconciliationPending(ctx context.Context, maxAge time.Duration) ([]models.PurchaseReceipt, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.ReceiptsTableName),
		IndexName:              aws.String(receiptStatusGSI),
		KeyConditionExpression: aws.String("#status = :status AND updated_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.ReceiptReconciliationPending)},
			":cutoff": &types.AttributeValueMemberS{Value: cutoff},
		},
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliation-pending receipts: %w", err)
	}

	var items []receiptItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipts: %w", err)
	}

	receipts := make([]models.PurchaseReceipt, 0, len(items))
	for _, item := range items {
		receipt, err := fromReceiptItem(item)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *receipt)
	}
	return receipts, nil
}
