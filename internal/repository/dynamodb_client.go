package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"eli5/internal/domain"
)

const (
	skSummary  = "SUMMARY#"
	defaultTTL = 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client caches Wikipedia summaries in a DynamoDB table keyed by topic.
// The table's TTL attribute is "ttl".
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

func topicPK(topic string) string {
	return "TOPIC#" + domain.NormalizeTopic(topic)
}

// GetSummary returns the cached extract for topic. Items past their TTL are
// treated as misses because DynamoDB deletes expired items lazily.
func (c *Client) GetSummary(ctx context.Context, topic string) (string, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: topicPK(topic)},
			"SK": &types.AttributeValueMemberS{Value: skSummary},
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: GetSummary get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}

	summary, err := itemToSummary(out.Item)
	if err != nil {
		return "", false, fmt.Errorf("repository: GetSummary decode: %w", err)
	}
	if summary.TTL > 0 && summary.TTL <= c.now().Unix() {
		return "", false, nil
	}
	return summary.Extract, true, nil
}

// PutSummary stores extract for topic, replacing any previous value.
func (c *Client) PutSummary(ctx context.Context, topic, extract string) error {
	if strings.TrimSpace(extract) == "" {
		return errors.New("repository: PutSummary: extract must not be empty")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      summaryItem(c.NewCachedSummary(topic, extract)),
	})
	if err != nil {
		return fmt.Errorf("repository: PutSummary: %w", err)
	}
	return nil
}

// NewCachedSummary builds the record PutSummary writes.
func (c *Client) NewCachedSummary(topic, extract string) domain.CachedSummary {
	now := c.now().UTC()
	return domain.CachedSummary{
		PK:        topicPK(topic),
		Topic:     domain.NormalizeTopic(topic),
		Extract:   extract,
		FetchedAt: now.Format(time.RFC3339),
		TTL:       now.Add(c.ttl).Unix(),
	}
}

func itemToSummary(item map[string]types.AttributeValue) (domain.CachedSummary, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.CachedSummary{}, err
	}
	extract, err := strAttr(item, "extract")
	if err != nil {
		return domain.CachedSummary{}, err
	}
	topic, _ := strAttr(item, "topic")         // allow empty
	fetchedAt, _ := strAttr(item, "fetchedAt") // allow empty
	ttl, err := int64Attr(item, "ttl")
	if err != nil {
		ttl = 0
	}
	return domain.CachedSummary{
		PK:        pk,
		Topic:     topic,
		Extract:   extract,
		FetchedAt: fetchedAt,
		TTL:       ttl,
	}, nil
}

func summaryItem(s domain.CachedSummary) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: s.PK},
		"SK":        &types.AttributeValueMemberS{Value: skSummary},
		"topic":     &types.AttributeValueMemberS{Value: s.Topic},
		"extract":   &types.AttributeValueMemberS{Value: s.Extract},
		"fetchedAt": &types.AttributeValueMemberS{Value: s.FetchedAt},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(s.TTL, 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
