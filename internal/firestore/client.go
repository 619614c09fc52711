// Package firestore uploads the parish dataset into the Firestore
// collection backing the serving app.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"modu-catholic/internal/model"
)

// batchSize stays under Firestore's 500-operation batch limit.
const batchSize = 400

// Client wraps the Firestore client for parish document operations.
type Client struct {
	client     *firestore.Client
	collection string
}

// New creates a new Firestore client.
func New(ctx context.Context, projectID, collection string) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Client{
		client:     client,
		collection: collection,
	}, nil
}

// Close closes the Firestore client.
func (c *Client) Close() error {
	return c.client.Close()
}

// UpsertParishes merge-writes every parish, committing every batchSize
// writes. The document ID is the parish name, so repeated uploads update
// documents in place and fields absent from the upload survive.
func (c *Client) UpsertParishes(ctx context.Context, parishes []model.Parish) (int, error) {
	coll := c.client.Collection(c.collection)

	written := 0
	batch := c.client.Batch()
	pending := 0
	for _, p := range parishes {
		if p.Name == "" {
			continue
		}
		data, err := parishToMap(p)
		if err != nil {
			return written, fmt.Errorf("encoding parish %s: %w", p.Name, err)
		}
		batch.Set(coll.Doc(p.Name), data, firestore.MergeAll)
		pending++

		if pending == batchSize {
			if _, err := batch.Commit(ctx); err != nil {
				return written, fmt.Errorf("committing batch: %w", err)
			}
			written += pending
			batch = c.client.Batch()
			pending = 0
		}
	}
	if pending > 0 {
		if _, err := batch.Commit(ctx); err != nil {
			return written, fmt.Errorf("committing batch: %w", err)
		}
		written += pending
	}
	return written, nil
}

// ReplaceParish rewrites one parish document from scratch. Unlike the
// merge upload this drops stale fields, so it is the hot-fix path for a
// document that accumulated bad data.
func (c *Client) ReplaceParish(ctx context.Context, p model.Parish) error {
	if p.Name == "" {
		return fmt.Errorf("parish has no name")
	}
	doc := c.client.Collection(c.collection).Doc(p.Name)

	if _, err := doc.Delete(ctx); err != nil {
		return fmt.Errorf("deleting %s: %w", p.Name, err)
	}
	data, err := parishToMap(p)
	if err != nil {
		return fmt.Errorf("encoding parish %s: %w", p.Name, err)
	}
	if _, err := doc.Set(ctx, data); err != nil {
		return fmt.Errorf("writing %s: %w", p.Name, err)
	}
	return nil
}

// FetchAll retrieves every parish document in the collection.
func (c *Client) FetchAll(ctx context.Context) ([]model.Parish, error) {
	var parishes []model.Parish

	iter := c.client.Collection(c.collection).Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating documents: %w", err)
		}

		p, err := mapToParish(doc.Data())
		if err != nil {
			return nil, fmt.Errorf("parsing document %s: %w", doc.Ref.ID, err)
		}
		parishes = append(parishes, p)
	}

	return parishes, nil
}

// parishToMap goes through JSON so documents carry the same field names
// as the on-disk dataset.
func parishToMap(p model.Parish) (map[string]interface{}, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func mapToParish(m map[string]interface{}) (model.Parish, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return model.Parish{}, err
	}
	var p model.Parish
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Parish{}, err
	}
	return p, nil
}
