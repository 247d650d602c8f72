package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/agroledger/agroledger/pkg/reconcile"
	"github.com/agroledger/agroledger/pkg/scheduler"
	"github.com/agroledger/agroledger/pkg/storage"
	dydbstore "github.com/agroledger/agroledger/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
)

var store storage.Storage
var sqsScheduler scheduler.Scheduler

// stuckReceiptThreshold is how long a receipt may sit in
// reconciliation-pending before the sweep picks it up.
const stuckReceiptThreshold = 10 * time.Minute

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	sqsQueueURL := os.Getenv("SQS_QUEUE_URL")
	if sqsQueueURL == "" {
		log.Fatal("SQS_QUEUE_URL environment variable not set")
	}
	sqsScheduler = scheduler.NewSQSScheduler(sqs.NewFromConfig(cfg), sqsQueueURL)

	store = dydbstore.New(awsdynamodb.NewFromConfig(cfg),
		os.Getenv("DYNAMODB_RECEIPTS_TABLE_NAME"),
		os.Getenv("DYNAMODB_PRODUCTS_TABLE_NAME"),
		os.Getenv("DYNAMODB_ADJUSTMENTS_TABLE_NAME"))
}

// HandleRequest is triggered by an EventBridge Schedule. It sweeps receipts
// parked in reconciliation-pending and puts them back on the queue.
func HandleRequest(ctx context.Context) error {
	log.Println("Starting sweep for stuck receipts...")

	stuck, err := store.ListReconciliationPending(ctx, stuckReceiptThreshold)
	if err != nil {
		log.Printf("ERROR: failed to list stuck receipts: %v", err)
		return err
	}

	if len(stuck) == 0 {
		log.Println("No stuck receipts found.")
		return nil
	}

	log.Printf("Found %d stuck receipts. Re-enqueuing them...", len(stuck))

	for _, receipt := range stuck {
		sub, err := reconcile.SubmissionFromReceipt(&receipt)
		if err != nil {
			log.Printf("ERROR: cannot rebuild submission for receipt %s: %v", receipt.OrderNumber, err)
			// Needs operator attention; skip it rather than fail the batch.
			continue
		}
		if err := sqsScheduler.ScheduleReconciliation(ctx, sub, 0); err != nil {
			log.Printf("ERROR: failed to re-enqueue receipt %s: %v", receipt.OrderNumber, err)
			continue
		}
		log.Printf("Successfully re-enqueued receipt %s", receipt.OrderNumber)
	}

	log.Println("Sweep finished.")
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
