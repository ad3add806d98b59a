package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"foodie-skill/internal/domain"
)

const skProfile = "PROFILE#"

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps one item per user in a single-table layout.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamo creates a DynamoDB-backed profile store.
func NewDynamo(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

// userPK returns the DynamoDB partition key for a user.
func userPK(userKey string) string {
	return "USER#" + userKey
}

// Load returns the user's record, or nil when none was saved yet.
func (s *DynamoStore) Load(ctx context.Context, userKey string) (*domain.PersistedRecord, error) {
	if userKey == "" {
		return nil, errors.New("repository: Load: user key is required")
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(userKey)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	profile, ok, err := mapAttr(out.Item, "profile")
	if err != nil {
		return nil, fmt.Errorf("repository: Load decode profile: %w", err)
	}
	if !ok {
		return nil, nil
	}
	recs, _, err := mapAttr(out.Item, "recommendations")
	if err != nil {
		return nil, fmt.Errorf("repository: Load decode recommendations: %w", err)
	}

	rec, err := itemToRecord(profile, recs)
	if err != nil {
		return nil, fmt.Errorf("repository: Load unmarshal: %w", err)
	}
	return &rec, nil
}

// Save replaces the user's record.
func (s *DynamoStore) Save(ctx context.Context, userKey string, rec domain.PersistedRecord) error {
	if userKey == "" {
		return errors.New("repository: Save: user key is required")
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      recordItem(userKey, rec, s.now().UTC()),
	})
	if err != nil {
		return fmt.Errorf("repository: Save: %w", err)
	}
	return nil
}

func recordItem(userKey string, rec domain.PersistedRecord, at time.Time) map[string]types.AttributeValue {
	p := rec.Profile
	r := rec.Recommendations
	return map[string]types.AttributeValue{
		"PK":     &types.AttributeValueMemberS{Value: userPK(userKey)},
		"SK":     &types.AttributeValueMemberS{Value: skProfile},
		"userId": &types.AttributeValueMemberS{Value: userKey},
		"profile": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"name":      &types.AttributeValueMemberS{Value: p.Name},
			"allergies": &types.AttributeValueMemberS{Value: p.Allergies},
			"diet":      &types.AttributeValueMemberS{Value: p.Diet},
			"location": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"timezone": &types.AttributeValueMemberS{Value: p.Location.Timezone},
				"address": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
					"city":  &types.AttributeValueMemberS{Value: p.Location.Address.City},
					"state": &types.AttributeValueMemberS{Value: p.Location.Address.State},
					"zip":   &types.AttributeValueMemberS{Value: p.Location.Address.Zip},
				}},
			}},
		}},
		"recommendations": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"previous": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"meal":       &types.AttributeValueMemberS{Value: r.Previous.Meal},
				"restaurant": &types.AttributeValueMemberS{Value: r.Previous.Restaurant},
			}},
			"current": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
				"meals":       stringList(r.Current.Meals),
				"restaurants": stringList(r.Current.Restaurants),
			}},
		}},
		"updatedAt": &types.AttributeValueMemberS{Value: at.Format(time.RFC3339)},
	}
}

func itemToRecord(profile, recs map[string]types.AttributeValue) (domain.PersistedRecord, error) {
	var rec domain.PersistedRecord
	var err error

	p := &rec.Profile
	if p.Name, err = optStrAttr(profile, "name"); err != nil {
		return rec, err
	}
	if p.Allergies, err = optStrAttr(profile, "allergies"); err != nil {
		return rec, err
	}
	if p.Diet, err = optStrAttr(profile, "diet"); err != nil {
		return rec, err
	}
	location, _, err := mapAttr(profile, "location")
	if err != nil {
		return rec, err
	}
	if p.Location.Timezone, err = optStrAttr(location, "timezone"); err != nil {
		return rec, err
	}
	address, _, err := mapAttr(location, "address")
	if err != nil {
		return rec, err
	}
	if p.Location.Address.City, err = optStrAttr(address, "city"); err != nil {
		return rec, err
	}
	if p.Location.Address.State, err = optStrAttr(address, "state"); err != nil {
		return rec, err
	}
	if p.Location.Address.Zip, err = optStrAttr(address, "zip"); err != nil {
		return rec, err
	}

	r := &rec.Recommendations
	previous, _, err := mapAttr(recs, "previous")
	if err != nil {
		return rec, err
	}
	if r.Previous.Meal, err = optStrAttr(previous, "meal"); err != nil {
		return rec, err
	}
	if r.Previous.Restaurant, err = optStrAttr(previous, "restaurant"); err != nil {
		return rec, err
	}
	current, _, err := mapAttr(recs, "current")
	if err != nil {
		return rec, err
	}
	if r.Current.Meals, err = stringListAttr(current, "meals"); err != nil {
		return rec, err
	}
	if r.Current.Restaurants, err = stringListAttr(current, "restaurants"); err != nil {
		return rec, err
	}
	return rec, nil
}

func stringList(vals []string) *types.AttributeValueMemberL {
	l := make([]types.AttributeValue, 0, len(vals))
	for _, v := range vals {
		l = append(l, &types.AttributeValueMemberS{Value: v})
	}
	return &types.AttributeValueMemberL{Value: l}
}

// mapAttr returns the nested map under key. A missing key yields an empty map.
func mapAttr(item map[string]types.AttributeValue, key string) (map[string]types.AttributeValue, bool, error) {
	v, ok := item[key]
	if !ok {
		return map[string]types.AttributeValue{}, false, nil
	}
	m, ok := v.(*types.AttributeValueMemberM)
	if !ok {
		return nil, false, fmt.Errorf("repository: attribute %q is not a map", key)
	}
	return m.Value, true, nil
}

func optStrAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", nil
	}
	if _, isNull := v.(*types.AttributeValueMemberNULL); isNull {
		return "", nil
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func stringListAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return []string{}, nil
	}
	l, ok := v.(*types.AttributeValueMemberL)
	if !ok {
		return nil, fmt.Errorf("repository: attribute %q is not a list", key)
	}
	out := make([]string, 0, len(l.Value))
	for i, elem := range l.Value {
		s, ok := elem.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("repository: attribute %q[%d] is not a string", key, i)
		}
		out = append(out, s.Value)
	}
	return out, nil
}
