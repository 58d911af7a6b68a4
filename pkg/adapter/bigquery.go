package adapter

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// DefaultDatasetID is the dataset queried unless WithDataset overrides it.
const DefaultDatasetID = "onevice"

// Warehouse is the analytics backend holding past projects and talent
// profiles queried by the Case Study and Talent Discovery agents.
type Warehouse interface {
	// Query runs a parameterized query and returns all result rows
	Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

type warehouseClient struct {
	client  *bigquery.Client
	dataset string
}

// WarehouseOption is a functional option for the warehouse client
type WarehouseOption func(*warehouseClient)

// WithDataset overrides the default dataset name
func WithDataset(dataset string) WarehouseOption {
	return func(w *warehouseClient) {
		w.dataset = dataset
	}
}

// NewWarehouse creates a BigQuery-backed warehouse client
func NewWarehouse(ctx context.Context, projectID string, opts ...WarehouseOption) (Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	w := &warehouseClient{
		client:  client,
		dataset: DefaultDatasetID,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

func (w *warehouseClient) Query(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	q := w.client.Query(query)
	q.DefaultDatasetID = w.dataset
	for name, value := range params {
		q.Parameters = append(q.Parameters, bigquery.QueryParameter{Name: name, Value: value})
	}

	job, err := q.Run(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run query")
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to wait for query completion")
	}
	if status.Err() != nil {
		return nil, goerr.Wrap(status.Err(), "query execution failed")
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read query result")
	}

	var results []map[string]any
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate query result")
		}

		rowMap := make(map[string]any, len(row))
		for k, v := range row {
			rowMap[k] = v
		}
		results = append(results, rowMap)
	}

	return results, nil
}
