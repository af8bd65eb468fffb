package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/pevans/newsharvest"
)

// Elastic indexes one document per record.
type Elastic struct {
	es      *elasticsearch.Client
	index   string
	Timeout time.Duration
}

// NewElastic builds an Elasticsearch sink against addr and index.
func NewElastic(addr, index string) (*Elastic, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Elastic{es: es, index: index, Timeout: 30 * time.Second}, nil
}

// Write indexes the records under fresh UUIDs, wrapped in an envelope
// carrying the site and mode for per-publisher queries.
func (e *Elastic) Write(site string, mode newsharvest.Mode, records []any) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.Timeout)
	defer cancel()

	for _, record := range records {
		envelope := map[string]any{
			"site":   site,
			"mode":   string(mode),
			"record": record,
		}
		payload, err := json.Marshal(envelope)
		if err != nil {
			return newsharvest.WrapError(newsharvest.KindExportOutputFile,
				"failed to encode record for elasticsearch", err)
		}

		req := esapi.IndexRequest{
			Index:      e.index,
			DocumentID: uuid.NewString(),
			Body:       bytes.NewReader(payload),
		}
		res, err := req.Do(ctx, e.es)
		if err != nil {
			return newsharvest.WrapError(newsharvest.KindExportOutputFile,
				"failed to index record", err)
		}
		if res.IsError() {
			res.Body.Close()
			return newsharvest.NewError(newsharvest.KindExportOutputFile,
				fmt.Sprintf("elasticsearch rejected record: %s", res.Status()))
		}
		res.Body.Close()
	}
	return nil
}
