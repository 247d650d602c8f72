package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/handlers"
	"github.com/agroledger/agroledger/pkg/middleware"
	"github.com/agroledger/agroledger/pkg/reconcile"
	"github.com/agroledger/agroledger/pkg/scheduler"
	dydbstore "github.com/agroledger/agroledger/pkg/storage/dynamodb"
	"github.com/agroledger/agroledger/pkg/tokenapi"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Chain client and contract bindings.
	rpcURL := os.Getenv("CHAIN_RPC_URL")
	if rpcURL == "" {
		log.Fatal("CHAIN_RPC_URL environment variable not set")
	}
	chainClient, err := chain.NewClient(chain.Config{RPCURL: rpcURL})
	if err != nil {
		log.Fatalf("failed to create chain client: %v", err)
	}

	addrs := chain.ContractAddressesFromEnv()
	bindings := chain.NewBindingProvider()

	tokenBinding, err := bindings.Bind(addrs.Network, addrs.TokenLedger, chain.TokenLedger)
	if err != nil {
		log.Fatalf("failed to bind token ledger contract: %v", err)
	}
	marketBinding, err := bindings.Bind(addrs.Network, addrs.Marketplace, chain.Marketplace)
	if err != nil {
		log.Fatalf("failed to bind marketplace contract: %v", err)
	}
	registryBinding, err := bindings.Bind(addrs.Network, addrs.LandRegistry, chain.LandRegistry)
	if err != nil {
		log.Fatalf("failed to bind land registry contract: %v", err)
	}

	// Clients start unsigned; handlers attach per-request signers.
	ledger, err := chain.NewTokenLedgerClient(chainClient, tokenBinding, nil)
	if err != nil {
		log.Fatalf("failed to create token ledger client: %v", err)
	}
	marketplace, err := chain.NewMarketplaceClient(chainClient, marketBinding, nil)
	if err != nil {
		log.Fatalf("failed to create marketplace client: %v", err)
	}
	registry, err := chain.NewLandRegistryClient(chainClient, registryBinding, nil)
	if err != nil {
		log.Fatalf("failed to create land registry client: %v", err)
	}

	// AWS Session
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	receiptsTable := os.Getenv("DYNAMODB_RECEIPTS_TABLE_NAME")
	productsTable := os.Getenv("DYNAMODB_PRODUCTS_TABLE_NAME")
	adjustmentsTable := os.Getenv("DYNAMODB_ADJUSTMENTS_TABLE_NAME")
	if receiptsTable == "" || productsTable == "" || adjustmentsTable == "" {
		log.Fatal("One or more DynamoDB table name environment variables are not set")
	}
	store := dydbstore.New(awsdynamodb.NewFromConfig(cfg), receiptsTable, productsTable, adjustmentsTable)

	// SQS Client and Scheduler
	sqsQueueURL := os.Getenv("SQS_QUEUE_URL")
	if sqsQueueURL == "" {
		log.Fatal("SQS_QUEUE_URL environment variable not set")
	}
	sqsScheduler := scheduler.NewSQSScheduler(sqs.NewFromConfig(cfg), sqsQueueURL)

	finalityDepth := uint64(chain.DefaultFinalityDepth)
	if v := os.Getenv("FINALITY_DEPTH"); v != "" {
		depth, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid FINALITY_DEPTH: %v", err)
		}
		finalityDepth = depth
	}

	engine := reconcile.New(reconcile.Config{
		Confirmer:     chainClient,
		Marketplace:   marketplace,
		Orders:        store,
		Catalog:       store,
		Retries:       sqsScheduler,
		FinalityDepth: finalityDepth,
		RetryDelay:    30 * time.Second,
		Logger:        logger,
	})

	tokenService := tokenapi.NewClient(os.Getenv("TOKEN_SERVICE_URL"))

	router := handlers.Router(
		handlers.NewTokenHandler(ledger, tokenService),
		handlers.NewMarketplaceHandler(marketplace),
		handlers.NewRegistryHandler(registry),
		handlers.NewOrdersHandler(engine, store, store, sqsScheduler),
		middleware.NewStructuredLogger(logger),
	)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080" // Default port if not specified
	}

	logger.Info("starting server", slog.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
