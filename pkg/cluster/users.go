package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/models"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

const (
	keyPrefix  = "user:"
	keyPattern = keyPrefix + "*"
)

// UserStore persists user records in the cluster, one hash per record at
// user:<id>. Ids are generated uuid tokens, not comparable with relational
// ids. Email uniqueness is a linear scan over all records before each write;
// two concurrent inserts with the same email can both pass the check, since
// the cluster offers no conditional write across shards.
type UserStore struct {
	adapter *Adapter
	logger  zerolog.Logger
	newID   func() string
}

// NewUserStore wires a user store over an adapter.
func NewUserStore(adapter *Adapter, logger zerolog.Logger) *UserStore {
	return &UserStore{
		adapter: adapter,
		logger:  logger.With().Str("component", "redis-users").Logger(),
		newID:   uuid.NewString,
	}
}

func keyFor(id string) string { return keyPrefix + id }

func encode(rec *models.UserRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":         rec.Id,
		"name":       rec.Name,
		"email":      rec.Email,
		"phone":      rec.Phone,
		"address":    rec.Address,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decode(id string, fields map[string]string) models.UserRecord {
	rec := models.UserRecord{
		Id:      id,
		Name:    fields["name"],
		Email:   fields["email"],
		Phone:   fields["phone"],
		Address: fields["address"],
	}
	if fields["id"] != "" {
		rec.Id = fields["id"]
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		rec.CreatedAt = ts
	}
	return rec
}

// List enumerates every record by scanning user:* across all shard owners.
func (s *UserStore) List(ctx context.Context) ([]models.UserRecord, error) {
	keys, err := s.adapter.ScanPattern(ctx, keyPattern)
	if err != nil {
		return nil, err
	}

	out := make([]models.UserRecord, 0, len(keys))
	for _, key := range keys {
		fields, err := s.adapter.HGetAllRecord(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// Deleted between scan and read; scan results are a snapshot.
			continue
		}
		out = append(out, decode(strings.TrimPrefix(key, keyPrefix), fields))
	}
	return out, nil
}

// Get reads one record or storage.ErrNotFound.
func (s *UserStore) Get(ctx context.Context, id string) (*models.UserRecord, error) {
	fields, err := s.adapter.HGetAllRecord(ctx, keyFor(id))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, storage.ErrNotFound
	}
	rec := decode(id, fields)
	return &rec, nil
}

// Insert generates an id, enforces the application-level email check, and
// writes the hash.
func (s *UserStore) Insert(ctx context.Context, rec *models.UserRecord) error {
	existing, err := s.FindByEmail(ctx, rec.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return storage.ErrDuplicateEmail
	}

	rec.Id = s.newID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.PutRecord(ctx, rec)
}

// Update rewrites the mutable fields, re-checking email uniqueness against
// every record except the one being updated. created_at is preserved.
func (s *UserStore) Update(ctx context.Context, id string, rec *models.UserRecord) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	owner, err := s.FindByEmail(ctx, rec.Email)
	if err != nil {
		return err
	}
	if owner != nil && owner.Id != id {
		return storage.ErrDuplicateEmail
	}

	rec.Id = id
	rec.CreatedAt = current.CreatedAt
	return s.PutRecord(ctx, rec)
}

// Delete removes the record or reports storage.ErrNotFound.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	return s.adapter.DeleteKey(ctx, keyFor(id))
}

// FindByEmail linearly scans all records for an email match. Returns nil
// without error when no record matches.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if strings.EqualFold(records[i].Email, email) {
			return &records[i], nil
		}
	}
	return nil, nil
}

// PutRecord writes a record as-is, id and created_at included. Bulk copy and
// duplicate cleanup use it to control both.
func (s *UserStore) PutRecord(ctx context.Context, rec *models.UserRecord) error {
	if rec.Id == "" {
		return fmt.Errorf("cluster: record id must not be empty")
	}
	return s.adapter.HSetRecord(ctx, keyFor(rec.Id), encode(rec))
}

// NewID exposes the store's id generator for callers that reassign ids.
func (s *UserStore) NewID() string { return s.newID() }
