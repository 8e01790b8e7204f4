// Package store wraps the DynamoDB fraud table and the object stores that
// hold extracted filings.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/ppiankov/fraudscrape/internal/model"
)

// DynamoAPI is the subset of the DynamoDB client used by Table
type DynamoAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Cursor is the continuation token of a paginated scan. A nil cursor starts
// from the beginning.
type Cursor map[string]types.AttributeValue

// Page is one scan page (DynamoDB caps each at 1MB)
type Page struct {
	Records []model.FraudRecord
	Next    Cursor
}

// Last reports whether no pages follow this one
func (p Page) Last() bool {
	return len(p.Next) == 0
}

// Table reads fraud records and flags them as scraped
type Table struct {
	client DynamoAPI
	name   string
	logger *zap.Logger
}

// NewTable creates a table handle. A nil logger discards output.
func NewTable(client DynamoAPI, name string, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{client: client, name: name, logger: logger}
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// Scan reads one page starting at from
func (t *Table) Scan(ctx context.Context, from Cursor) (Page, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.name),
	}
	if len(from) > 0 {
		input.ExclusiveStartKey = from
	}

	out, err := t.client.Scan(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("scan %s: %w", t.name, err)
	}

	var records []model.FraudRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return Page{}, fmt.Errorf("decode %s items: %w", t.name, err)
	}

	return Page{Records: records, Next: out.LastEvaluatedKey}, nil
}

// Records walks every page lazily, yielding each record. Iteration stops
// after the first error.
func (t *Table) Records(ctx context.Context) iter.Seq2[model.FraudRecord, error] {
	return t.RecordsFrom(ctx, nil)
}

// RecordsFrom is Records resumed at a continuation cursor
func (t *Table) RecordsFrom(ctx context.Context, from Cursor) iter.Seq2[model.FraudRecord, error] {
	return func(yield func(model.FraudRecord, error) bool) {
		cursor := from
		for {
			page, err := t.Scan(ctx, cursor)
			if err != nil {
				yield(model.FraudRecord{}, err)
				return
			}
			for _, rec := range page.Records {
				if !yield(rec, nil) {
					return
				}
			}
			if page.Last() {
				return
			}
			cursor = page.Next
		}
	}
}

// MarkScraped sets scraped=true on each row and returns how many were
// updated. The update only applies to items that still exist; a row deleted
// since the scan is logged and skipped.
func (t *Table) MarkScraped(ctx context.Context, rows []model.RowKey) (int, error) {
	marked := 0
	for _, row := range rows {
		_, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(t.name),
			Key: map[string]types.AttributeValue{
				"company_name": &types.AttributeValueMemberS{Value: row.CompanyName},
				"url":          &types.AttributeValueMemberS{Value: row.URL},
			},
			UpdateExpression:    aws.String("SET scraped = :s"),
			ConditionExpression: aws.String("attribute_exists(#u)"),
			ExpressionAttributeNames: map[string]string{
				"#u": "url",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":s": &types.AttributeValueMemberBOOL{Value: true},
			},
			ReturnValues: types.ReturnValueUpdatedNew,
		})

		var missing *types.ConditionalCheckFailedException
		switch {
		case errors.As(err, &missing):
			t.logger.Warn("fraud row no longer in table, not marked",
				zap.String("table", t.name),
				zap.String("company_name", row.CompanyName),
				zap.String("url", row.URL))
		case err != nil:
			return marked, fmt.Errorf("mark %s scraped (%s): %w", row.CompanyName, row.URL, err)
		default:
			marked++
		}
	}
	return marked, nil
}
