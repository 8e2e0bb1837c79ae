/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package ddb implements the transactional delta persistence strategy
// over AWS DynamoDB, using a single-table layout where every collection
// occupies one partition.
//
// SaveAll diffs the store snapshot against the partition and applies
// the resulting inserts and deletes through TransactWriteItems; each
// transaction commits atomically. UpdateSingle is a point PutItem.
// Transient items receive ids from an atomic counter item, so
// backend-assigned identities are written back into the caller's items.
//
// Load policy is strict: any failure propagates a typed load error.
package ddb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/syncstore/diff"
	serrors "github.com/suparena/syncstore/errors"
	"github.com/suparena/syncstore/identity"
	"github.com/suparena/syncstore/logging"
)

const backendName = "dynamodb"

// seqPartition holds the per-collection id counters.
const seqPartition = "#SEQ"

// transactMaxItems is the DynamoDB limit per TransactWriteItems call.
// Deltas larger than this are applied in several transactions, each
// atomic on its own.
const transactMaxItems = 100

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// newItem allocates a fresh T. Entities are pointer types, so a plain
// zero value would be a nil pointer that cannot be unmarshaled into.
func newItem[T identity.Identified]() T {
	var zero T
	t := reflect.TypeOf(zero)
	if t != nil && t.Kind() == reflect.Ptr {
		return reflect.New(t.Elem()).Interface().(T)
	}
	return zero
}

// Strategy persists identified items of type T into one partition of a
// DynamoDB table.
type Strategy[T identity.Identified] struct {
	client     *sdk.Client
	tableName  string
	collection string
	indexMap   map[string]string
	log        logging.Logger

	mu       sync.Mutex
	provider func() []T
}

// Option configures a Strategy.
type Option[T identity.Identified] func(*Strategy[T])

// WithLogger sets the diagnostic logger.
func WithLogger[T identity.Identified](log logging.Logger) Option[T] {
	return func(s *Strategy[T]) { s.log = log }
}

// WithIndexMap overrides the default key layout. Values are macro
// templates expanded from the marshaled item, e.g.
//
//	map[string]string{"PK": "ORDER", "SK": "ORDER#{id}"}
func WithIndexMap[T identity.Identified](indexMap map[string]string) Option[T] {
	return func(s *Strategy[T]) { s.indexMap = indexMap }
}

// NewClient initializes a DynamoDB client using static AWS credentials.
func NewClient(awsAccessKey, awsSecretKey, awsRegion string) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(cfg), nil
}

// New constructs a Strategy with its own client.
func New[T identity.Identified](awsAccessKey, awsSecretKey, awsRegion, tableName, collection string, opts ...Option[T]) (*Strategy[T], error) {
	client, err := NewClient(awsAccessKey, awsSecretKey, awsRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return NewWithClient[T](client, tableName, collection, opts...), nil
}

// NewWithClient constructs a Strategy over an existing client.
func NewWithClient[T identity.Identified](client *sdk.Client, tableName, collection string, opts ...Option[T]) *Strategy[T] {
	s := &Strategy[T]{
		client:     client,
		tableName:  tableName,
		collection: collection,
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.indexMap == nil {
		s.indexMap = map[string]string{
			"PK": collection,
			"SK": collection + "#{id}",
		}
	}
	return s
}

// SetItemsProvider is kept for the Strategy contract; the delta path
// works from explicit snapshots.
func (s *Strategy[T]) SetItemsProvider(fn func() []T) {
	s.mu.Lock()
	s.provider = fn
	s.mu.Unlock()
}

// expandMacros replaces {attr} placeholders in the index map templates
// with the corresponding marshaled attribute values of the item.
func expandMacros(indexMap map[string]string, av map[string]types.AttributeValue) map[string]string {
	res := make(map[string]string, len(indexMap))
	for field, template := range indexMap {
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")
			val, ok := av[key]
			if !ok {
				return ""
			}
			switch tv := val.(type) {
			case *types.AttributeValueMemberS:
				return tv.Value
			case *types.AttributeValueMemberN:
				return tv.Value
			case *types.AttributeValueMemberBOOL:
				return fmt.Sprintf("%v", tv.Value)
			default:
				return ""
			}
		})
		res[field] = expanded
	}
	return res
}

// marshalItem returns the full attribute map for an item, index keys
// included.
func (s *Strategy[T]) marshalItem(item T) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	for k, v := range expandMacros(s.indexMap, av) {
		av[k] = &types.AttributeValueMemberS{Value: v}
	}
	return av, nil
}

// itemKey builds the PK/SK pair for an item.
func (s *Strategy[T]) itemKey(item T) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	expanded := expandMacros(s.indexMap, av)
	pk, okPK := expanded["PK"]
	sk, okSK := expanded["SK"]
	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, errors.New("index map produced no valid PK or SK")
	}
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// LoadAll queries the collection partition, paginating until exhausted,
// and returns items ordered by id.
func (s *Strategy[T]) LoadAll(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Strategy[T]) loadLocked(ctx context.Context) ([]T, error) {
	keyCond := "PK = :pk"
	exprVals := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: s.collection},
	}

	var items []T
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &sdk.QueryInput{
			TableName:                 &s.tableName,
			KeyConditionExpression:    &keyCond,
			ExpressionAttributeValues: exprVals,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, serrors.NewLoadError(backendName, err)
		}
		for _, raw := range out.Items {
			item := newItem[T]()
			if err := attributevalue.UnmarshalMap(raw, item); err != nil {
				return nil, serrors.NewLoadError(backendName, fmt.Errorf("failed to unmarshal item: %w", err))
			}
			items = append(items, item)
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].EntityID() < items[j].EntityID()
	})
	return items, nil
}

// SaveAll applies the identified delta between items and the partition.
// Id write-back mutates the caller's items from the saving goroutine;
// concurrent id reads from other goroutines need external
// synchronization.
func (s *Strategy[T]) SaveAll(ctx context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.loadLocked(ctx)
	if err != nil {
		return serrors.NewSaveError(backendName, err)
	}

	d := diff.ComputeIdentified(items, stored)
	if d.Empty() {
		return nil
	}

	// Allocate ids for transient inserts up front. A failed transaction
	// burns the allocated range; ids are never reused.
	var assigned []T
	transient := 0
	for _, item := range d.ToInsert {
		if item.EntityID() == 0 {
			transient++
		}
	}
	if transient > 0 {
		last, err := s.allocateIDs(ctx, int64(transient))
		if err != nil {
			return serrors.NewSaveError(backendName, err)
		}
		next := last - int64(transient) + 1
		for _, item := range d.ToInsert {
			if item.EntityID() == 0 {
				item.SetEntityID(next)
				assigned = append(assigned, item)
				next++
			}
		}
	}
	rollback := func() {
		for _, item := range assigned {
			item.SetEntityID(0)
		}
	}

	twi, err := s.buildTransactItems(d)
	if err != nil {
		rollback()
		return serrors.NewSaveError(backendName, err)
	}

	for _, chunk := range chunkTransactItems(twi, transactMaxItems) {
		_, err := s.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
			TransactItems: chunk,
		})
		if err != nil {
			rollback()
			return serrors.NewSaveError(backendName, err)
		}
	}

	s.log.Debug("applied delta", "collection", s.collection,
		"inserted", len(d.ToInsert), "deleted", len(d.ToDelete))
	return nil
}

// UpdateSingle point-writes one persisted item; transient items are a
// no-op until the next full save.
func (s *Strategy[T]) UpdateSingle(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.EntityID() == 0 {
		return nil
	}

	av, err := s.marshalItem(item)
	if err != nil {
		return serrors.NewSaveError(backendName, err)
	}
	if _, err := s.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	}); err != nil {
		return serrors.NewSaveError(backendName, err)
	}
	return nil
}

// buildTransactItems maps a diff onto DynamoDB transaction writes.
func (s *Strategy[T]) buildTransactItems(d diff.Diff[T]) ([]types.TransactWriteItem, error) {
	out := make([]types.TransactWriteItem, 0, len(d.ToInsert)+len(d.ToDelete))
	for _, item := range d.ToInsert {
		av, err := s.marshalItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, types.TransactWriteItem{
			Put: &types.Put{
				TableName: &s.tableName,
				Item:      av,
			},
		})
	}
	for _, item := range d.ToDelete {
		key, err := s.itemKey(item)
		if err != nil {
			return nil, err
		}
		out = append(out, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: &s.tableName,
				Key:       key,
			},
		})
	}
	return out, nil
}

func chunkTransactItems(items []types.TransactWriteItem, size int) [][]types.TransactWriteItem {
	var chunks [][]types.TransactWriteItem
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

// allocateIDs atomically advances the collection counter by n and
// returns the last id of the allocated range.
func (s *Strategy[T]) allocateIDs(ctx context.Context, n int64) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: seqPartition},
			"SK": &types.AttributeValueMemberS{Value: s.collection},
		},
		UpdateExpression:         aws.String("ADD #s :n"),
		ExpressionAttributeNames: map[string]string{"#s": "seq"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance id counter: %w", err)
	}
	attr, ok := out.Attributes["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("id counter returned no numeric value")
	}
	return strconv.ParseInt(attr.Value, 10, 64)
}
