package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rcflow/rcflow/domain/audit"
)

// AuditStore is a MongoDB-backed implementation of audit.Store.
type AuditStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewAuditStore creates a new MongoDB audit store.
func NewAuditStore(client *Client, collectionName string) *AuditStore {
	if collectionName == "" {
		collectionName = "audit_logs"
	}
	return &AuditStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
	}
}

// Append stores a new audit entry.
func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return s.wrapError(err)
	}

	return nil
}

// List returns audit entries matching the filter, newest first.
func (s *AuditStore) List(ctx context.Context, filter audit.ListFilter) ([]*audit.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	mongoFilter := bson.M{}
	if filter.ChangeRequestID != "" {
		mongoFilter["change_request_id"] = filter.ChangeRequestID
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = audit.DefaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "performed_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := []*audit.Entry{}
	for cursor.Next(ctx) {
		var entry audit.Entry
		if err := cursor.Decode(&entry); err != nil {
			return nil, s.wrapError(err)
		}
		results = append(results, &entry)
	}

	if err := cursor.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return results, nil
}

func (s *AuditStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(audit.ErrStoreUnavailable, err)
}

var _ audit.Store = (*AuditStore)(nil)
