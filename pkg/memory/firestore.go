package memory

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const memoryCollection = "memories"

// firestoreDoc is the stored shape of a memory record.
type firestoreDoc struct {
	Namespace string               `firestore:"namespace"`
	Key       string               `firestore:"key"`
	Value     map[string]any       `firestore:"value"`
	Embedding firestore.Vector32   `firestore:"embedding"`
	CreatedAt time.Time            `firestore:"created_at"`
	UpdatedAt time.Time            `firestore:"updated_at"`
	Distance  float64              `firestore:"distance,omitempty"`
}

// firestoreStore implements Store on Firestore with vector search.
type firestoreStore struct {
	client   *firestore.Client
	embedder Embedder
}

// NewFirestore creates the production memory store.
func NewFirestore(ctx context.Context, projectID, databaseID string, embedder Embedder) (Store, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}
	return &firestoreStore{client: client, embedder: embedder}, nil
}

func (s *firestoreStore) Search(ctx context.Context, ns model.Namespace, queryText string, limit int) ([]*model.MemoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query", goerr.V("namespace", ns.Path()))
	}

	vq := s.client.Collection(memoryCollection).
		Where("namespace", "==", ns.Path()).
		FindNearest("embedding", firestore.Vector32(query), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: "distance"})

	it := vq.Documents(ctx)
	defer it.Stop()

	var records []*model.MemoryRecord
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search", goerr.V("namespace", ns.Path()))
		}

		var doc firestoreDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory record", goerr.V("doc", snap.Ref.ID))
		}

		records = append(records, &model.MemoryRecord{
			ID:        model.RecordID(snap.Ref.ID),
			Namespace: ns,
			Key:       doc.Key,
			Value:     doc.Value,
			Embedding: doc.Embedding,
			Score:     1 - doc.Distance,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return records, nil
}

func (s *firestoreStore) Put(ctx context.Context, ns model.Namespace, key string, value map[string]any) error {
	embedding, err := s.embedder.Embed(ctx, embeddingText(key, value))
	if err != nil {
		return goerr.Wrap(err, "failed to embed record", goerr.V("namespace", ns.Path()), goerr.V("key", key))
	}

	now := time.Now()
	doc := firestoreDoc{
		Namespace: ns.Path(),
		Key:       key,
		Value:     value,
		Embedding: firestore.Vector32(embedding),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Upserting namespaces use a deterministic document ID so a rewrite
	// of the same key lands on the same document. Document writes are
	// atomic, so readers never observe a partial record.
	var docID string
	if ns.Upserts() {
		docID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(ns.Path()+"|"+key)).String()
	} else {
		docID = string(model.NewRecordID())
	}

	if _, err := s.client.Collection(memoryCollection).Doc(docID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to write memory record", goerr.V("namespace", ns.Path()), goerr.V("key", key))
	}
	return nil
}

func (s *firestoreStore) Delete(ctx context.Context, ns model.Namespace, key string) error {
	it := s.client.Collection(memoryCollection).
		Where("namespace", "==", ns.Path()).
		Where("key", "==", key).
		Documents(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to find records to delete", goerr.V("namespace", ns.Path()), goerr.V("key", key))
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return goerr.Wrap(err, "failed to delete memory record", goerr.V("doc", snap.Ref.ID))
		}
	}
	return nil
}
