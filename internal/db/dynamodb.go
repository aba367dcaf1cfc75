package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/sentiscope/internal/clients"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

const PROFILES_TABLE_NAME = "SentimentProfiles"

// ErrProfileNotFound is returned when no analysis exists for a handle.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore persists assembled sentiment profiles keyed by handle. A save
// replaces the previous profile for the same handle; history is not kept.
type ProfileStore struct {
	client *dynamodb.Client
	table  string
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		client: clients.GetDynamoDBClient(),
		table:  PROFILES_TABLE_NAME,
	}
}

func (s *ProfileStore) Save(ctx context.Context, profile sentiment.SentimentProfile) error {
	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to marshal profile: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to store profile: %w", err)
	}

	slog.Info("[DynamoDB] Profile stored",
		slog.String("handle", profile.Handle))
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, handle string) (sentiment.SentimentProfile, error) {
	var profile sentiment.SentimentProfile

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"user_handle": &types.AttributeValueMemberS{Value: handle},
		},
	})
	if err != nil {
		return profile, fmt.Errorf("[DynamoDB] Failed to get profile: %w", err)
	}
	if out.Item == nil {
		return profile, ErrProfileNotFound
	}

	if err := attributevalue.UnmarshalMap(out.Item, &profile); err != nil {
		return profile, fmt.Errorf("[DynamoDB] Failed to unmarshal profile: %w", err)
	}
	return profile, nil
}

// ListRecent returns up to n profiles, most recently analyzed first. The
// recent listing is small so a paginated scan is fine here.
func (s *ProfileStore) ListRecent(ctx context.Context, n int) ([]sentiment.SentimentProfile, error) {
	var profiles []sentiment.SentimentProfile

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for profiles failed: %w", err)
		}

		var page []sentiment.SentimentProfile
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal profile page",
				slog.String("error", err.Error()))
			return nil, err
		}
		profiles = append(profiles, page...)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].AnalyzedAt.After(profiles[j].AnalyzedAt)
	})
	if n > 0 && len(profiles) > n {
		profiles = profiles[:n]
	}

	slog.Info("[DynamoDB] Successfully retrieved profiles",
		slog.Int("count", len(profiles)))
	return profiles, nil
}

// UpdatePersonality patches the stored profile with the background
// personality analysis once it completes.
func (s *ProfileStore) UpdatePersonality(ctx context.Context, handle, analysis string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"user_handle": &types.AttributeValueMemberS{Value: handle},
		},
		UpdateExpression: aws.String("SET personality_analysis = :analysis"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":analysis": &types.AttributeValueMemberS{Value: analysis},
		},
		ConditionExpression: aws.String("attribute_exists(user_handle)"),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to update personality analysis: %w", err)
	}

	slog.Info("[DynamoDB] Personality analysis stored",
		slog.String("handle", handle))
	return nil
}
