package ddb

import (
	"context"
	"fqlrun/internal/types"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

// API is the subset of *dynamodb.Client used by SettingsStore.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type settingItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Value     string `dynamodbav:"value"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

// SettingsStore keeps one item per setting under the profile's partition.
type SettingsStore struct {
	table   string
	profile string
	cli     API

	changes chan []string
	stop    chan struct{}
	once    sync.Once
}

func NewSettingsStore(ctx context.Context, table, profile string, cli API) (*SettingsStore, error) {
	if err := createTableIfNotExists(ctx, cli, table); err != nil {
		return nil, err
	}
	return &SettingsStore{table: table, profile: profile, cli: cli, stop: make(chan struct{})}, nil
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkSettings(s.profile)},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skKey(key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, types.Err(types.ErrSettingsAccess, err, "")
	}
	if out.Item == nil {
		return "", false, nil
	}
	var it settingItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", false, types.Err(types.ErrSettingsAccess, err, "")
	}
	return it.Value, true, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(settingItem{
		PK:        pkSettings(s.profile),
		SK:        skKey(key),
		Value:     value,
		UpdatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return types.Err(types.ErrSettingsAccess, err, "")
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	if err != nil {
		return types.Err(types.ErrSettingsAccess, err, "")
	}
	return nil
}

// All returns every setting of the profile.
func (s *SettingsStore) All(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	var start map[string]ddbTypes.AttributeValue
	for {
		page, err := s.cli.Query(ctx, &dynamodb.QueryInput{
			TableName:              &s.table,
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
				":pk": &ddbTypes.AttributeValueMemberS{Value: pkSettings(s.profile)},
				":sk": &ddbTypes.AttributeValueMemberS{Value: SKey + "#"},
			},
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, types.Err(types.ErrSettingsAccess, err, "")
		}
		for _, item := range page.Items {
			var it settingItem
			if err := attributevalue.UnmarshalMap(item, &it); err != nil {
				return nil, types.Err(types.ErrSettingsAccess, err, "")
			}
			key, err := parseKey(it.SK)
			if err != nil {
				return nil, err
			}
			out[key] = it.Value
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = page.LastEvaluatedKey
	}
}

// Poll starts a goroutine that diffs the profile's settings every interval
// and emits the keys that changed.
func (s *SettingsStore) Poll(ctx context.Context, interval time.Duration) {
	s.changes = make(chan []string, 8)
	go func() {
		defer close(s.changes)
		prev, err := s.All(ctx)
		if err != nil {
			log.WithError(err).Warn("initial settings poll failed")
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-t.C:
			}
			cur, err := s.All(ctx)
			if err != nil {
				log.WithError(err).Warn("settings poll failed")
				continue
			}
			if keys := diff(prev, cur); len(keys) > 0 {
				log.WithField("keys", keys).Debug("settings changed in dynamodb")
				select {
				case s.changes <- keys:
				case <-ctx.Done():
					return
				case <-s.stop:
					return
				}
			}
			prev = cur
		}
	}()
}

func (s *SettingsStore) Changes() <-chan []string { return s.changes }

func (s *SettingsStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func diff(prev, cur map[string]string) []string {
	var keys []string
	for k, v := range cur {
		if old, ok := prev[k]; !ok || old != v {
			keys = append(keys, k)
		}
	}
	for k := range prev {
		if _, ok := cur[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
