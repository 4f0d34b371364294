package gateways

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wms-platform/outbound-fulfillment-service/internal/application"
	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

// InventoryClient calls inventory-service
type InventoryClient struct {
	*client
}

var _ application.InventoryGateway = (*InventoryClient)(nil)

// Inventory returns the inventory-service gateway
func (c *Clients) Inventory() *InventoryClient {
	return &InventoryClient{client: c.client("inventory", c.config.InventoryServiceURL)}
}

type allocationResponse struct {
	Allocations []domain.LocationAllocation `json:"allocations"`
}

// AllocateLocations asks inventory to choose pick locations for a SKU quantity
func (c *InventoryClient) AllocateLocations(ctx context.Context, req application.AllocationRequest) ([]domain.LocationAllocation, error) {
	var resp allocationResponse
	if err := c.write(ctx, "allocateLocations", http.MethodPost, "/api/v1/inventory/allocations", req, &resp); err != nil {
		return nil, err
	}
	return resp.Allocations, nil
}

type bucketsResponse struct {
	Buckets []application.Bucket `json:"buckets"`
}

// GetBuckets fetches buckets by id. Unknown ids are simply absent from the result.
func (c *InventoryClient) GetBuckets(ctx context.Context, bucketIDs []string) ([]application.Bucket, error) {
	if len(bucketIDs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(bucketIDs, ","))

	var resp bucketsResponse
	if err := c.read(ctx, "getBuckets", http.MethodGet, "/api/v1/buckets?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Buckets, nil
}

// DebitBucket removes quantity from one bucket
func (c *InventoryClient) DebitBucket(ctx context.Context, req application.DebitRequest) (*application.DebitResult, error) {
	var result application.DebitResult
	path := fmt.Sprintf("/api/v1/buckets/%s/debit", url.PathEscape(req.BucketID))
	if err := c.write(ctx, "debitBucket", http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DebitBucketLocations removes quantity from a bucket location by location
func (c *InventoryClient) DebitBucketLocations(ctx context.Context, req application.LocationDebitRequest) (*application.DebitResult, error) {
	var result application.DebitResult
	path := fmt.Sprintf("/api/v1/buckets/%s/location-debit", url.PathEscape(req.BucketID))
	if err := c.write(ctx, "debitBucketLocations", http.MethodPost, path, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type barcodesRequest struct {
	Barcodes []string `json:"barcodes"`
}

// ConsumePackageBarcodes marks pre-printed package barcodes as used
func (c *InventoryClient) ConsumePackageBarcodes(ctx context.Context, barcodes []string) error {
	return c.write(ctx, "consumePackageBarcodes", http.MethodPost, "/api/v1/package-barcodes/consume", barcodesRequest{Barcodes: barcodes}, nil)
}

type storageItemsResponse struct {
	Items []application.StorageItem `json:"items"`
}

// LookupStorageItems resolves storage item barcodes
func (c *InventoryClient) LookupStorageItems(ctx context.Context, barcodes []string) ([]application.StorageItem, error) {
	var resp storageItemsResponse
	if err := c.read(ctx, "lookupStorageItems", http.MethodPost, "/api/v1/storage-items/lookup", barcodesRequest{Barcodes: barcodes}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

type transactionResponse struct {
	TransactionID string `json:"transactionId"`
}

// CreateTransaction records the audit trail of a debit
func (c *InventoryClient) CreateTransaction(ctx context.Context, req application.TransactionRequest) (string, error) {
	var resp transactionResponse
	if err := c.write(ctx, "createTransaction", http.MethodPost, "/api/v1/inventory/transactions", req, &resp); err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}
