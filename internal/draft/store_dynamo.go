package draft

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// dynamoItem is the table item for one snapshot
type dynamoItem struct {
	Key       string    `dynamodbav:"draft_key"`
	Snapshot  []byte    `dynamodbav:"snapshot"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}

// DynamoStore keeps snapshots in a DynamoDB table keyed by draft_key
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore creates a store over client and table
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// NewDynamoClient builds a DynamoDB client. Static credentials and a custom
// endpoint are used when set, which is how local DynamoDB is reached.
func NewDynamoClient(ctx context.Context, region, endpoint, accessKey, secretKey string) (*dynamodb.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *DynamoStore) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"draft_key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Load(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get draft: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decode draft item: %w", err)
	}
	return item.Snapshot, nil
}

func (s *DynamoStore) Save(ctx context.Context, key string, data []byte) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		Key:       key,
		Snapshot:  data,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode draft item: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put draft: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.keyAttr(key),
	}); err != nil {
		return fmt.Errorf("dynamodb delete draft: %w", err)
	}
	return nil
}
