// Package state implements the State Machine: a DynamoDB-backed
// intake-record store enforcing the monotone status DAG via a
// conditional write.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"cvintake/internal/core"
)

// Store is the state machine's backing store. One Store wraps one DynamoDB table
// (config.AWS.StateTable).
type Store struct {
	client *dynamodb.Client
	table  string
}

func New(client *dynamodb.Client, table string) *Store {
	return &Store{client: client, table: table}
}

// Create writes the initial intake record (status=uploading).
func (s *Store) Create(ctx context.Context, rec core.IntakeRecord) error {
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshaling intake record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	return err
}

// Get loads the current intake record for a correlation id.
func (s *Store) Get(ctx context.Context, correlationID string) (*core.IntakeRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"cv_id": &types.AttributeValueMemberS{Value: correlationID},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec core.IntakeRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling intake record: %w", err)
	}
	return &rec, nil
}

// ErrRegressed is returned when a caller attempts to move a record's
// status backwards (or any transition out of a terminal state) — the
// conditional write failed its DAG-monotonicity guard.
var ErrRegressed = fmt.Errorf("intake status transition would regress the DAG")

// Advance conditionally updates status and any auxiliary fields,
// guarding monotonicity. The
// DynamoDB ConditionExpression compares the *stored* current_index
// attribute against the new status's DAG index (a transition to "failed"
// skips that comparison) and rejects any write over a stored terminal
// status, so the guard holds even under concurrent writers racing on the
// same correlation id.
func (s *Store) Advance(ctx context.Context, correlationID string, next core.IntakeStatus, mutate func(*core.IntakeRecord)) error {
	rec, err := s.Get(ctx, correlationID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no intake record for correlation id %s", correlationID)
	}
	if !rec.Status.CanTransitionTo(next) {
		return ErrRegressed
	}

	rec.Status = next
	rec.UpdatedAt = time.Now()
	if mutate != nil {
		mutate(rec)
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshaling intake record: %w", err)
	}
	nextIndex := &types.AttributeValueMemberN{Value: fmt.Sprint(next.Index())}
	item["current_index"] = nextIndex

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(cv_id) OR (#status <> :completed AND #status <> :failed AND (:next = :failed OR attribute_not_exists(current_index) OR current_index <= :idx))"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: string(core.StatusCompleted)},
			":failed":    &types.AttributeValueMemberS{Value: string(core.StatusFailed)},
			":next":      &types.AttributeValueMemberS{Value: string(next)},
			":idx":       nextIndex,
		},
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return ErrRegressed
		}
		return err
	}
	return nil
}

// MarshalWriteVerification is a small helper for the relational writer to attach its
// post-write verification outcome back onto the intake record.
func MarshalWriteVerification(v core.WriteVerification) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
