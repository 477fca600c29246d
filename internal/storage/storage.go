// Package storage persists chunk records and their embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/scireview/internal/models"
)

// ErrNotFound is returned when a record id is unknown.
var ErrNotFound = errors.New("record not found")

// Storage defines record persistence operations.
type Storage interface {
	// UpsertRecords writes all records in one transaction. Existing ids are overwritten.
	UpsertRecords(ctx context.Context, records []*models.Record) error
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	// ListRecords returns every record with its embedding, in first-insert order.
	ListRecords(ctx context.Context) ([]*models.Record, error)
	DeleteAll(ctx context.Context) error

	// Stats
	CountRecords(ctx context.Context) (int64, error)
	CountSources(ctx context.Context) (int64, error)
	Areas(ctx context.Context) ([]string, error)

	// Collection metadata (embedding model, dimensions).
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}
