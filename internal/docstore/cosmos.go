package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"recogni/internal/config"
)

// Cosmos inserts records into an Azure Cosmos DB container partitioned by id.
type Cosmos struct {
	container *azcosmos.ContainerClient
}

// OpenCosmos builds a container client from the endpoint and account key.
func OpenCosmos(cfg config.DocStore) (*Cosmos, error) {
	if cfg.Endpoint == "" || cfg.Key == "" {
		return nil, errors.New("cosmos endpoint and key are required")
	}
	cred, err := azcosmos.NewKeyCredential(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("cosmos credential: %w", err)
	}
	client, err := azcosmos.NewClientWithKey(cfg.Endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("cosmos client: %w", err)
	}
	container, err := client.NewContainer(cfg.Database, cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("cosmos container %s/%s: %w", cfg.Database, cfg.Container, err)
	}
	return &Cosmos{container: container}, nil
}

func (c *Cosmos) Insert(ctx context.Context, rec Record) error {
	body, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if _, err := c.container.CreateItem(ctx, azcosmos.NewPartitionKeyString(rec.ID), body, nil); err != nil {
		return fmt.Errorf("insert document %s: %w", rec.ID, err)
	}
	return nil
}

// Get is a point read; the partition key equals the id.
func (c *Cosmos) Get(ctx context.Context, id string) (Record, error) {
	resp, err := c.container.ReadItem(ctx, azcosmos.NewPartitionKeyString(id), id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return Record{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return decodeRecord(resp.Value)
}

// List would need a cross-partition ordered query.
func (c *Cosmos) List(context.Context, int) ([]Record, error) {
	return nil, fmt.Errorf("cosmos list: %w", ErrUnsupported)
}

func (c *Cosmos) Close() error { return nil }
