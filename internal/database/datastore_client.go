package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/locvowork/wage_calculator/internal/domain"
)

// SessionKind is the Datastore kind holding session snapshots.
const SessionKind = "WageSession"

// sessionEntity stores one snapshot as a single entity keyed by session ID.
type sessionEntity struct {
	Entries   []sessionEntry `datastore:"entries,noindex"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

type sessionEntry struct {
	Key   string `datastore:"key,noindex"`
	Value string `datastore:"value,noindex"`
}

// DatastoreClient wraps the cloud datastore client
type DatastoreClient struct {
	client *datastore.Client
}

// NewDatastoreClient connects to the Datastore of projectID. The emulator is
// picked up from DATASTORE_EMULATOR_HOST by the client library.
func NewDatastoreClient(ctx context.Context, projectID string) (*DatastoreClient, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create datastore client: %w", err)
	}
	return &DatastoreClient{client: client}, nil
}

// WrapDatastoreClient wraps existing datastore client
func WrapDatastoreClient(client *datastore.Client) *DatastoreClient {
	if client == nil {
		return nil
	}
	return &DatastoreClient{client: client}
}

// Close releases the underlying connection.
func (dc *DatastoreClient) Close() error {
	if dc == nil || dc.client == nil {
		return nil
	}
	return dc.client.Close()
}

func (dc *DatastoreClient) ready() error {
	if dc == nil || dc.client == nil {
		return fmt.Errorf("datastore client is nil")
	}
	return nil
}

func sessionKey(sessionID string) *datastore.Key {
	return datastore.NameKey(SessionKind, sessionID, nil)
}

// Save replaces the snapshot of sessionID.
func (dc *DatastoreClient) Save(ctx context.Context, sessionID string, values map[string]string) error {
	if err := dc.ready(); err != nil {
		return err
	}
	if len(values) == 0 {
		err := dc.client.Delete(ctx, sessionKey(sessionID))
		if err != nil {
			return fmt.Errorf("clear session %s: %w", sessionID, err)
		}
		return nil
	}

	if _, err := dc.client.Put(ctx, sessionKey(sessionID), toSessionEntity(values, time.Now().UTC())); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the stored snapshot of sessionID.
func (dc *DatastoreClient) Load(ctx context.Context, sessionID string) (map[string]string, error) {
	if err := dc.ready(); err != nil {
		return nil, err
	}

	var e sessionEntity
	if err := dc.client.Get(ctx, sessionKey(sessionID), &e); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return e.values(), nil
}

// SetValue upserts one key inside a transaction so concurrent updates of other
// keys are not lost.
func (dc *DatastoreClient) SetValue(ctx context.Context, sessionID, key, value string) error {
	if err := dc.ready(); err != nil {
		return err
	}

	k := sessionKey(sessionID)
	_, err := dc.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var e sessionEntity
		if err := tx.Get(k, &e); err != nil && !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		values := e.values()
		values[key] = value
		_, err := tx.Put(k, toSessionEntity(values, time.Now().UTC()))
		return err
	})
	if err != nil {
		return fmt.Errorf("set session %s key %s: %w", sessionID, key, err)
	}
	return nil
}

// Delete removes the snapshot of sessionID.
func (dc *DatastoreClient) Delete(ctx context.Context, sessionID string) error {
	if err := dc.ready(); err != nil {
		return err
	}

	k := sessionKey(sessionID)
	_, err := dc.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var e sessionEntity
		if err := tx.Get(k, &e); err != nil {
			return err
		}
		return tx.Delete(k)
	})
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// List returns session IDs in key order using a key range scan for the prefix.
func (dc *DatastoreClient) List(ctx context.Context, filter domain.SessionFilter) ([]string, error) {
	if err := dc.ready(); err != nil {
		return nil, err
	}

	q := datastore.NewQuery(SessionKind).KeysOnly().Order("__key__")
	if filter.Prefix != "" {
		q = q.Filter("__key__ >=", sessionKey(filter.Prefix)).
			Filter("__key__ <", sessionKey(filter.Prefix+"\ufffd"))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	keys, err := dc.client.GetAll(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.Name
	}
	return ids, nil
}

func toSessionEntity(values map[string]string, now time.Time) *sessionEntity {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e := &sessionEntity{Entries: make([]sessionEntry, len(keys)), UpdatedAt: now}
	for i, k := range keys {
		e.Entries[i] = sessionEntry{Key: k, Value: values[k]}
	}
	return e
}

func (e sessionEntity) values() map[string]string {
	values := make(map[string]string, len(e.Entries))
	for _, entry := range e.Entries {
		values[entry.Key] = entry.Value
	}
	return values
}

var _ domain.SessionRepository = (*DatastoreClient)(nil)
