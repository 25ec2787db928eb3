package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/diff"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// changeRequestDocument is the MongoDB document representation of a
// change request.
type changeRequestDocument struct {
	ID          string                   `bson:"_id"`
	Title       string                   `bson:"title"`
	Description string                   `bson:"description,omitempty"`
	Environment string                   `bson:"environment"`
	ProjectID   string                   `bson:"project_id,omitempty"`
	Status      string                   `bson:"status"`
	Base        *remoteconfig.Snapshot   `bson:"current_config"`
	Candidate   *remoteconfig.Snapshot   `bson:"new_config"`
	Diff        diff.Diff                `bson:"diff"`
	Summary     string                   `bson:"summary,omitempty"`
	CreatedBy   changerequest.Principal  `bson:"created_by"`
	Reviewers   []changerequest.Reviewer `bson:"reviewers"`

	ApprovedBy     string     `bson:"approved_by,omitempty"`
	ApprovedAt     *time.Time `bson:"approved_at,omitempty"`
	RejectedBy     string     `bson:"rejected_by,omitempty"`
	RejectedAt     *time.Time `bson:"rejected_at,omitempty"`
	RejectedReason string     `bson:"rejected_reason,omitempty"`
	PublishedBy    string     `bson:"published_by,omitempty"`
	PublishedAt    *time.Time `bson:"published_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Version   int64     `bson:"version"`
}

// ChangeRequestStore is a MongoDB-backed implementation of
// changerequest.Store.
type ChangeRequestStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewChangeRequestStore creates a new MongoDB change request store.
func NewChangeRequestStore(client *Client, collectionName string) *ChangeRequestStore {
	if collectionName == "" {
		collectionName = "change_requests"
	}
	return &ChangeRequestStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
	}
}

// Save persists a new change request.
func (s *ChangeRequestStore) Save(ctx context.Context, cr *changerequest.ChangeRequest) error {
	if cr.ID == "" {
		return changerequest.ErrInvalidRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.collection.InsertOne(ctx, s.toDocument(cr))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return changerequest.ErrExists
		}
		return s.wrapError(err)
	}

	return nil
}

// Get retrieves a change request by ID.
func (s *ChangeRequestStore) Get(ctx context.Context, id string) (*changerequest.ChangeRequest, error) {
	if id == "" {
		return nil, changerequest.ErrInvalidRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc changeRequestDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, changerequest.ErrNotFound
		}
		return nil, s.wrapError(err)
	}

	return s.fromDocument(&doc), nil
}

// Update replaces an existing change request under a version check:
// the replace matches on both _id and the caller's version, so a
// concurrent writer that bumped the version first wins and this write
// reports a conflict.
func (s *ChangeRequestStore) Update(ctx context.Context, cr *changerequest.ChangeRequest) error {
	if cr.ID == "" {
		return changerequest.ErrInvalidRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	doc := s.toDocument(cr)
	doc.Version = cr.Version + 1

	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": cr.ID, "version": cr.Version}, doc)
	if err != nil {
		return s.wrapError(err)
	}

	if result.MatchedCount == 0 {
		// Distinguish a missing document from a version conflict.
		count, err := s.collection.CountDocuments(ctx, bson.M{"_id": cr.ID})
		if err != nil {
			return s.wrapError(err)
		}
		if count == 0 {
			return changerequest.ErrNotFound
		}
		return changerequest.ErrVersionConflict
	}

	cr.Version = doc.Version
	return nil
}

// List returns change requests matching the filter, newest first.
func (s *ChangeRequestStore) List(ctx context.Context, filter changerequest.ListFilter) ([]*changerequest.ChangeRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cursor, err := s.collection.Find(ctx, s.buildFilter(filter), opts)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	results := []*changerequest.ChangeRequest{}
	for cursor.Next(ctx) {
		var doc changeRequestDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, s.wrapError(err)
		}
		results = append(results, s.fromDocument(&doc))
	}

	if err := cursor.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return results, nil
}

// Delete removes a change request by ID.
func (s *ChangeRequestStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return changerequest.ErrInvalidRequest
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.wrapError(err)
	}

	if result.DeletedCount == 0 {
		return changerequest.ErrNotFound
	}

	return nil
}

// buildFilter constructs a MongoDB filter from the domain filter.
func (s *ChangeRequestStore) buildFilter(filter changerequest.ListFilter) bson.M {
	mongoFilter := bson.M{}

	if filter.Env != "" {
		mongoFilter["environment"] = string(filter.Env)
	}
	if filter.Status != "" {
		mongoFilter["status"] = string(filter.Status)
	}
	if filter.CreatedBy != "" {
		mongoFilter["$or"] = bson.A{
			bson.M{"created_by.uid": filter.CreatedBy},
			bson.M{"created_by.email": filter.CreatedBy},
		}
	}

	return mongoFilter
}

// toDocument converts a change request to a MongoDB document.
func (s *ChangeRequestStore) toDocument(cr *changerequest.ChangeRequest) *changeRequestDocument {
	return &changeRequestDocument{
		ID:             cr.ID,
		Title:          cr.Title,
		Description:    cr.Description,
		Environment:    string(cr.Env),
		ProjectID:      cr.ProjectID,
		Status:         string(cr.Status),
		Base:           cr.Base,
		Candidate:      cr.Candidate,
		Diff:           cr.Diff,
		Summary:        cr.Summary,
		CreatedBy:      cr.CreatedBy,
		Reviewers:      cr.Reviewers,
		ApprovedBy:     cr.ApprovedBy,
		ApprovedAt:     cr.ApprovedAt,
		RejectedBy:     cr.RejectedBy,
		RejectedAt:     cr.RejectedAt,
		RejectedReason: cr.RejectedReason,
		PublishedBy:    cr.PublishedBy,
		PublishedAt:    cr.PublishedAt,
		CreatedAt:      cr.CreatedAt,
		UpdatedAt:      cr.UpdatedAt,
		Version:        cr.Version,
	}
}

// fromDocument converts a MongoDB document to a change request.
func (s *ChangeRequestStore) fromDocument(doc *changeRequestDocument) *changerequest.ChangeRequest {
	reviewers := doc.Reviewers
	if reviewers == nil {
		reviewers = []changerequest.Reviewer{}
	}
	return &changerequest.ChangeRequest{
		ID:             doc.ID,
		Title:          doc.Title,
		Description:    doc.Description,
		Env:            remoteconfig.Env(doc.Environment),
		ProjectID:      doc.ProjectID,
		Status:         changerequest.Status(doc.Status),
		Base:           doc.Base,
		Candidate:      doc.Candidate,
		Diff:           doc.Diff,
		Summary:        doc.Summary,
		CreatedBy:      doc.CreatedBy,
		Reviewers:      reviewers,
		ApprovedBy:     doc.ApprovedBy,
		ApprovedAt:     doc.ApprovedAt,
		RejectedBy:     doc.RejectedBy,
		RejectedAt:     doc.RejectedAt,
		RejectedReason: doc.RejectedReason,
		PublishedBy:    doc.PublishedBy,
		PublishedAt:    doc.PublishedAt,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		Version:        doc.Version,
	}
}

// wrapError wraps MongoDB errors with domain errors.
func (s *ChangeRequestStore) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(changerequest.ErrOperationTimeout, err)
	}

	return errors.Join(changerequest.ErrStoreUnavailable, err)
}

var _ changerequest.Store = (*ChangeRequestStore)(nil)
