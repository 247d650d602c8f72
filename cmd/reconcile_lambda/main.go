package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/agroledger/agroledger/pkg/reconcile"
	"github.com/agroledger/agroledger/pkg/scheduler"
	dydbstore "github.com/agroledger/agroledger/pkg/storage/dynamodb"
	"github.com/joho/godotenv"
)

var engine *reconcile.Engine
var sqsScheduler scheduler.Scheduler

// confirmationRetryDelay spaces out re-checks for transactions that have not
// reached finality yet.
const confirmationRetryDelay = 30 * time.Second

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	chainClient, err := chain.NewClient(chain.Config{RPCURL: os.Getenv("CHAIN_RPC_URL")})
	if err != nil {
		log.Fatalf("failed to create chain client: %v", err)
	}

	addrs := chain.ContractAddressesFromEnv()
	marketBinding, err := chain.NewBindingProvider().Bind(addrs.Network, addrs.Marketplace, chain.Marketplace)
	if err != nil {
		log.Fatalf("failed to bind marketplace contract: %v", err)
	}
	marketplace, err := chain.NewMarketplaceClient(chainClient, marketBinding, nil)
	if err != nil {
		log.Fatalf("failed to create marketplace client: %v", err)
	}

	sqsQueueURL := os.Getenv("SQS_QUEUE_URL")
	if sqsQueueURL == "" {
		log.Fatal("SQS_QUEUE_URL environment variable not set")
	}
	sqsScheduler = scheduler.NewSQSScheduler(sqs.NewFromConfig(cfg), sqsQueueURL)

	store := dydbstore.New(awsdynamodb.NewFromConfig(cfg),
		os.Getenv("DYNAMODB_RECEIPTS_TABLE_NAME"),
		os.Getenv("DYNAMODB_PRODUCTS_TABLE_NAME"),
		os.Getenv("DYNAMODB_ADJUSTMENTS_TABLE_NAME"))

	finalityDepth := uint64(0)
	if v := os.Getenv("FINALITY_DEPTH"); v != "" {
		finalityDepth, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid FINALITY_DEPTH: %v", err)
		}
	}

	engine = reconcile.New(reconcile.Config{
		Confirmer:     chainClient,
		Marketplace:   marketplace,
		Orders:        store,
		Catalog:       store,
		Retries:       sqsScheduler,
		FinalityDepth: finalityDepth,
		Logger:        logger,
	})
}

// HandleRequest processes SQS messages and reconciles the purchases.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		log.Printf("Processing message %s", message.MessageId)

		var sub models.PurchaseSubmission
		if err := json.Unmarshal([]byte(message.Body), &sub); err != nil {
			log.Printf("ERROR: failed to unmarshal submission from SQS message %s: %v", message.MessageId, err)
			// A malformed body will never parse; retrying it is pointless.
			continue
		}

		receipt, err := engine.Reconcile(ctx, &sub)
		if err != nil {
			if errors.Is(err, chain.ErrConfirmationPending) {
				// Still waiting on finality. Put it back with a delay
				// instead of hot-looping through SQS retries.
				log.Printf("Transaction %s not final yet, re-enqueuing", sub.TxHash)
				if qerr := sqsScheduler.ScheduleReconciliation(ctx, &sub, confirmationRetryDelay); qerr != nil {
					log.Printf("ERROR: failed to re-enqueue submission %s: %v", sub.TxHash, qerr)
					return qerr
				}
				continue
			}
			log.Printf("ERROR: failed to reconcile transaction %s: %v", sub.TxHash, err)
			return err
		}

		log.Printf("Reconciled transaction %s as order %s (%s)", sub.TxHash, receipt.OrderNumber, receipt.Status)
	}

	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
