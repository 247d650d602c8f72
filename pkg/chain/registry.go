package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// LandRegistryClient provides plantation token registration and lookup
// against the land registry contract.
type LandRegistryClient struct {
	client  *Client
	binding Binding
	signer  *Signer
}

// NewLandRegistryClient creates a land registry client. The signer may be
// nil for read-only use.
func NewLandRegistryClient(client *Client, binding Binding, signer *Signer) (*LandRegistryClient, error) {
	if binding.Kind != LandRegistry {
		return nil, fmt.Errorf("%w: land registry client needs a %s binding, got %s", ErrUnknownInterface, LandRegistry, binding.Kind)
	}
	return &LandRegistryClient{client: client, binding: binding, signer: signer}, nil
}

// WithSigner returns a copy of the client acting for the given signer. The
// underlying connection is shared.
func (r *LandRegistryClient) WithSigner(signer *Signer) *LandRegistryClient {
	return &LandRegistryClient{client: r.client, binding: r.binding, signer: signer}
}

// RegisterPlantation mints a plantation token for the signer's land parcel
// and returns the token id with the transaction handle. Ownership is
// assigned to the caller; nothing here ever mutates an existing record.
func (r *LandRegistryClient) RegisterPlantation(ctx context.Context, name, location string, landSize int64, cropType string) (*big.Int, models.TxHandle, error) {
	if r.signer == nil {
		return nil, models.TxHandle{}, ErrWalletNotConnected
	}
	if name == "" || location == "" || cropType == "" {
		return nil, models.TxHandle{}, fmt.Errorf("name, location and crop type required")
	}
	if landSize <= 0 {
		return nil, models.TxHandle{}, fmt.Errorf("land size must be positive")
	}

	result, err := r.client.Submit(ctx, r.binding, "registerPlantation", r.signer,
		NewHash160Param(r.signer.Address().String()),
		NewStringParam(name),
		NewStringParam(location),
		NewIntegerParam(big.NewInt(landSize)),
		NewStringParam(cropType),
	)
	if err != nil {
		return nil, models.TxHandle{}, err
	}

	if len(result.Stack) == 0 {
		return nil, models.TxHandle{}, fmt.Errorf("registerPlantation returned no token id")
	}
	tokenID, err := ParseInteger(result.Stack[0])
	if err != nil {
		return nil, models.TxHandle{}, fmt.Errorf("parse token id: %w", err)
	}

	return tokenID, models.TxHandle{Hash: result.TxHash}, nil
}

// GetPlantation fetches one plantation record by token id.
func (r *LandRegistryClient) GetPlantation(ctx context.Context, tokenID *big.Int) (*models.PlantationRecord, error) {
	stack, err := r.client.InvokeRead(ctx, r.binding, "getPlantation", NewIntegerParam(tokenID))
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 || IsNull(stack[0]) {
		return nil, fmt.Errorf("%w: token id %s", ErrPlantationNotFound, tokenID)
	}
	return parsePlantation(stack[0])
}

// GetPlantationsByWallet returns every plantation token owned by a wallet.
func (r *LandRegistryClient) GetPlantationsByWallet(ctx context.Context, wallet models.WalletAddress) ([]models.PlantationRecord, error) {
	stack, err := r.client.InvokeRead(ctx, r.binding, "getPlantationsByOwner", NewHash160Param(wallet.String()))
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 || IsNull(stack[0]) {
		return nil, nil
	}

	items, err := ParseArray(stack[0])
	if err != nil {
		return nil, fmt.Errorf("parse plantations: %w", err)
	}

	records := make([]models.PlantationRecord, 0, len(items))
	for i, item := range items {
		record, err := parsePlantation(item)
		if err != nil {
			return nil, fmt.Errorf("parse plantation[%d]: %w", i, err)
		}
		records = append(records, *record)
	}
	return records, nil
}

// GetTotalPlantations returns the number of plantation tokens ever registered.
func (r *LandRegistryClient) GetTotalPlantations(ctx context.Context) (int64, error) {
	stack, err := r.client.InvokeRead(ctx, r.binding, "totalPlantations")
	if err != nil {
		return 0, err
	}
	if len(stack) == 0 {
		return 0, fmt.Errorf("totalPlantations returned empty stack")
	}
	return ParseInt64(stack[0])
}

// GetPlantationStats returns registry-wide counters.
func (r *LandRegistryClient) GetPlantationStats(ctx context.Context) (*models.PlantationStats, error) {
	stack, err := r.client.InvokeRead(ctx, r.binding, "getPlantationStats")
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("getPlantationStats returned empty stack")
	}

	fields, err := ParseArray(stack[0])
	if err != nil {
		return nil, fmt.Errorf("parse stats: %w", err)
	}
	if len(fields) < 3 {
		return nil, fmt.Errorf("expected 3 stats fields, got %d", len(fields))
	}

	total, err := ParseInt64(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	active, err := ParseInt64(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parse active: %w", err)
	}
	landSize, err := ParseInt64(fields[2])
	if err != nil {
		return nil, fmt.Errorf("parse land size: %w", err)
	}

	return &models.PlantationStats{
		TotalPlantations:  total,
		ActivePlantations: active,
		TotalLandSize:     landSize,
	}, nil
}

func parsePlantation(item StackItem) (*models.PlantationRecord, error) {
	fields, err := ParseArray(item)
	if err != nil {
		return nil, err
	}
	if len(fields) < 8 {
		return nil, fmt.Errorf("expected 8 plantation fields, got %d", len(fields))
	}

	tokenID, err := ParseInteger(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parse token id: %w", err)
	}
	owner, err := ParseAddress(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parse owner: %w", err)
	}
	name, err := ParseString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("parse name: %w", err)
	}
	location, err := ParseString(fields[3])
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}
	landSize, err := ParseInt64(fields[4])
	if err != nil {
		return nil, fmt.Errorf("parse land size: %w", err)
	}
	cropType, err := ParseString(fields[5])
	if err != nil {
		return nil, fmt.Errorf("parse crop type: %w", err)
	}
	registeredAt, err := ParseInt64(fields[6])
	if err != nil {
		return nil, fmt.Errorf("parse registered at: %w", err)
	}
	isActive, err := ParseBoolean(fields[7])
	if err != nil {
		return nil, fmt.Errorf("parse is active: %w", err)
	}

	return &models.PlantationRecord{
		TokenID:      tokenID,
		Owner:        owner,
		Name:         name,
		Location:     location,
		LandSize:     landSize,
		CropType:     cropType,
		RegisteredAt: time.Unix(registeredAt, 0).UTC(),
		IsActive:     isActive,
	}, nil
}
