package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// Client is the subset of *dynamodb.Client the table store needs
type Client interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// TableStore implements ports.TableStore over one DynamoDB table keyed by a string id
type TableStore struct {
	client    Client
	tableName string
	pageSize  int32
	logger    *zap.Logger
}

var _ ports.TableStore = (*TableStore)(nil)

// NewTableStore creates a table store. A pageSize of zero lets DynamoDB pick the page size.
func NewTableStore(client Client, tableName string, pageSize int, logger *zap.Logger) *TableStore {
	return &TableStore{
		client:    client,
		tableName: tableName,
		pageSize:  int32(pageSize),
		logger:    logger,
	}
}

// Scan reads every item, following LastEvaluatedKey until the table is exhausted
func (s *TableStore) Scan(ctx context.Context) (entities.Snapshot, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.tableName),
	}
	if s.pageSize > 0 {
		input.Limit = aws.Int32(s.pageSize)
	}

	rows := entities.Snapshot{}
	pages := 0
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storeError("scan", err)
		}
		pages++
		for _, item := range page.Items {
			row, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	s.logger.Debug("Scanned table",
		zap.String("table", s.tableName),
		zap.Int("pages", pages),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// Put writes the full row
func (s *TableStore) Put(ctx context.Context, row entities.Row) error {
	if !row.HasID() {
		return fmt.Errorf("put: row has no id")
	}
	item, err := encodeRow(row)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return storeError("put", err)
}

// Update sets every column in set and removes every column in remove.
// With nothing to set or remove it does not call DynamoDB.
func (s *TableStore) Update(ctx context.Context, id string, set entities.Row, remove []string) error {
	update, ok := buildUpdate(set, remove)
	if !ok {
		return nil
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("update: build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       keyFor(id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return storeError("update", err)
}

// Delete removes the item; DynamoDB treats deleting a missing key as success
func (s *TableStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       keyFor(id),
	})
	return storeError("delete", err)
}

// buildUpdate assembles SET and REMOVE clauses in column order
func buildUpdate(set entities.Row, remove []string) (expression.UpdateBuilder, bool) {
	var update expression.UpdateBuilder
	cols := set.Columns()
	for _, col := range cols {
		update = update.Set(expression.Name(col), expression.Value(toAttribute(set[col])))
	}

	removals := append([]string(nil), remove...)
	sort.Strings(removals)
	removed := 0
	for _, col := range removals {
		if _, alsoSet := set[col]; alsoSet {
			continue
		}
		update = update.Remove(expression.Name(col))
		removed++
	}

	return update, len(cols) > 0 || removed > 0
}
