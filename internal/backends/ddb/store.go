package ddb

import (
	"context"
	"folio/internal/types"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxTransactItems is the DynamoDB limit of actions per TransactWriteItems call.
const maxTransactItems = 100

// Store implements ports.ResourceStore on a single table: one partition per resource,
// one item per document.
type Store struct {
	table string
	cli   *dynamodb.Client
}

func NewStore(table string, cli *dynamodb.Client) *Store {
	createTableIfNotExists(cli, table)
	return &Store{table: table, cli: cli}
}

func (s *Store) List(ctx context.Context, resource string) ([]types.Document, error) {
	p := dynamodb.NewQueryPaginator(s.cli, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: awsString("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
			":pk": &ddbTypes.AttributeValueMemberS{Value: pkResource(resource)},
			":sk": &ddbTypes.AttributeValueMemberS{Value: SDoc + "#"},
		},
		ConsistentRead: awsBool(true),
	})
	docs := []types.Document{}
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, types.Err(types.ErrDataStoreAccess, err, "list %s", resource)
		}
		for _, item := range out.Items {
			doc, err := fromItem(item)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	types.SortDocuments(docs)
	return docs, nil
}

func (s *Store) Get(ctx context.Context, resource, id string) (types.Document, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		Key:            docKey(resource, id),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, types.Err(types.ErrDataStoreAccess, err, "get %s/%s", resource, id)
	}
	if out.Item == nil {
		return nil, types.Err(types.ErrNotFound, nil, "%s/%s", resource, id)
	}
	return fromItem(out.Item)
}

func (s *Store) Put(ctx context.Context, resource string, doc types.Document) error {
	id := doc.ID()
	if id == "" {
		return types.Err(types.ErrPrecondition, nil, "%s: document without id", resource)
	}
	item, err := attributevalue.MarshalMap(map[string]any(doc))
	if err != nil {
		return err
	}
	for k, v := range docKey(resource, id) {
		item[k] = v
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "put %s/%s", resource, id)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, resource, id string) error {
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           &s.table,
		Key:                 docKey(resource, id),
		ConditionExpression: awsString("attribute_exists(PK)"),
	})
	if err != nil {
		var cc *ddbTypes.ConditionalCheckFailedException
		if errorAs(err, &cc) {
			return types.Err(types.ErrNotFound, nil, "%s/%s", resource, id)
		}
		return types.Err(types.ErrDataStoreAccess, err, "delete %s/%s", resource, id)
	}
	return nil
}

// Reorder writes the new positions with TransactWriteItems. Resources larger than one
// transaction are written in consecutive transactions of maxTransactItems.
func (s *Store) Reorder(ctx context.Context, resource string, ids []string) error {
	current, err := s.List(ctx, resource)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(current))
	for _, d := range current {
		known[d.ID()] = struct{}{}
	}
	if err := types.CheckPermutation(len(current), ids, func(id string) bool {
		_, ok := known[id]
		return ok
	}); err != nil {
		return types.Err(types.ErrInvalidOrder, err, "%s", resource)
	}

	for start := 0; start < len(ids); start += maxTransactItems {
		end := min(start+maxTransactItems, len(ids))
		items := make([]ddbTypes.TransactWriteItem, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, ddbTypes.TransactWriteItem{
				Update: &ddbTypes.Update{
					TableName:                &s.table,
					Key:                      docKey(resource, ids[i]),
					UpdateExpression:         awsString("SET #o = :o"),
					ConditionExpression:      awsString("attribute_exists(PK)"),
					ExpressionAttributeNames: map[string]string{"#o": "order"},
					ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
						":o": &ddbTypes.AttributeValueMemberN{Value: strconv.Itoa(i)},
					},
				},
			})
		}
		_, err := s.cli.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		if err != nil {
			var tc *ddbTypes.TransactionCanceledException
			if errorAs(err, &tc) {
				return types.Err(types.ErrInvalidOrder, err, "%s changed during reorder", resource)
			}
			return types.Err(types.ErrDataStoreAccess, err, "reorder %s", resource)
		}
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.cli.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return err
	}
	err = dynamodb.NewTableNotExistsWaiter(s.cli).Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	}, 30*time.Second)
	if err != nil {
		return err
	}
	createTableIfNotExists(s.cli, s.table)
	return nil
}

func fromItem(item map[string]ddbTypes.AttributeValue) (types.Document, error) {
	var doc types.Document
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, err
	}
	if sk, ok := doc["SK"].(string); ok {
		if id, err := parseDocID(sk); err == nil && doc.ID() == "" {
			doc["id"] = id
		}
	}
	delete(doc, "PK")
	delete(doc, "SK")
	return doc, nil
}
