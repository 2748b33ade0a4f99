// Package audit records the outcome of each ingestion attempt to a DynamoDB
// table. The log is secondary observability: a failure to write it is
// reported on stderr and swallowed, never propagated to the caller.
package audit

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/model"
)

// DynamoClient is the subset of *dynamodb.Client methods used by Logger.
type DynamoClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Logger writes SyncLogEntry records. With a nil DynamoDB client it keeps
// entries in memory instead, which serves local development and tests.
type Logger struct {
	client    DynamoClient
	tableName string

	mu      sync.Mutex
	entries []model.SyncLogEntry
}

// NewLogger creates a Logger writing to the given table. client may be nil
// for the in-memory fallback.
func NewLogger(client DynamoClient, tableName string) *Logger {
	return &Logger{client: client, tableName: tableName}
}

// Record persists an audit entry, assigning it an ID. Best-effort: any
// failure is logged locally and discarded.
func (l *Logger) Record(ctx context.Context, entry model.SyncLogEntry) {
	entry.ID = uuid.NewString()

	if l.client == nil {
		l.mu.Lock()
		l.entries = append(l.entries, entry)
		l.mu.Unlock()
		return
	}

	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		log.Printf("audit: failed to marshal sync log entry for %s: %v", entry.TableName, err)
		return
	}

	if _, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item:      item,
	}); err != nil {
		log.Printf("audit: failed to write sync log entry for %s: %v", entry.TableName, err)
	}
}

// Entries returns a copy of the in-memory log. Only meaningful for the
// nil-client fallback.
func (l *Logger) Entries() []model.SyncLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.SyncLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
