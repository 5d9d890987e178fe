package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// dynamoItem is the persisted shape. pk scopes a collection inside a database.
type dynamoItem struct {
	PK        string         `dynamodbav:"pk"`
	SK        string         `dynamodbav:"sk"`
	Fields    map[string]any `dynamodbav:"fields"`
	CreatedAt string         `dynamodbav:"createdAt"`
	UpdatedAt string         `dynamodbav:"updatedAt"`
}

// DynamoDocumentStore keeps every collection of one database in a single table
// keyed by (pk = database#collection, sk = document id).
type DynamoDocumentStore struct {
	client     dynamoAPI
	table      string
	databaseID string
	now        func() time.Time
}

var _ DocumentStore = (*DynamoDocumentStore)(nil)

// NewDynamoDocumentStore builds a store backed by the provided DynamoDB client.
func NewDynamoDocumentStore(client dynamoAPI, table, databaseID string) *DynamoDocumentStore {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if table == "" {
		panic("store: table name cannot be empty")
	}
	return &DynamoDocumentStore{
		client:     client,
		table:      table,
		databaseID: databaseID,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *DynamoDocumentStore) partition(collection string) string {
	return s.databaseID + "#" + collection
}

func (s *DynamoDocumentStore) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: s.partition(collection)},
		"sk": &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoDocumentStore) CreateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	now := s.now().Format(time.RFC3339Nano)
	item := dynamoItem{
		PK:        s.partition(collection),
		SK:        id,
		Fields:    cloneFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("store: marshal document: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(sk)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrConflict
		}
		return nil, remote("create document", err)
	}
	return item.document(collection)
}

func (s *DynamoDocumentStore) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(collection, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, remote("get document", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return decodeItem(out.Item, collection)
}

func (s *DynamoDocumentStore) ListDocuments(ctx context.Context, collection string, q Query) (*DocumentList, error) {
	names := map[string]string{"#pk": "pk"}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: s.partition(collection)},
	}
	var conds []string
	for i, f := range q.Filters {
		name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":f%d", i)
		names[name] = f.Field
		values[value] = &types.AttributeValueMemberS{Value: f.Value}
		conds = append(conds, fmt.Sprintf("fields.%s = %s", name, value))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String("#pk = :pk"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConsistentRead:            aws.Bool(true),
	}
	if len(conds) > 0 {
		input.FilterExpression = aws.String(strings.Join(conds, " AND "))
	}

	var docs []Document
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, remote("list documents", err)
		}
		for _, item := range out.Items {
			doc, err := decodeItem(item, collection)
			if err != nil {
				return nil, err
			}
			docs = append(docs, *doc)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	sortDocuments(docs, q.Order)
	return &DocumentList{Total: len(docs), Documents: docs}, nil
}

func (s *DynamoDocumentStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	names := map[string]string{"#updated": "updatedAt"}
	values := map[string]types.AttributeValue{
		":updated": &types.AttributeValueMemberS{Value: s.now().Format(time.RFC3339Nano)},
	}
	sets := []string{"#updated = :updated"}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		av, err := attributevalue.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("store: marshal field %s: %w", k, err)
		}
		name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":f%d", i)
		names[name] = k
		values[value] = av
		sets = append(sets, fmt.Sprintf("fields.%s = %s", name, value))
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(collection, id),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(sk)"),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ErrNotFound
		}
		return nil, remote("update document", err)
	}
	return decodeItem(out.Attributes, collection)
}

func decodeItem(av map[string]types.AttributeValue, collection string) (*Document, error) {
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("store: decode item: %w", err)
	}
	return item.document(collection)
}

func (it dynamoItem) document(collection string) (*Document, error) {
	created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: item %s createdAt: %w", it.SK, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: item %s updatedAt: %w", it.SK, err)
	}
	fields := it.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return &Document{
		ID:         it.SK,
		Collection: collection,
		CreatedAt:  created,
		UpdatedAt:  updated,
		Fields:     cloneFields(fields),
	}, nil
}
