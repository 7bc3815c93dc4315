package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/sirupsen/logrus"
)

type UserRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewUserRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func usernamePK(username string) string {
	return "USERNAME#" + strings.ToLower(username)
}

func emailPK(email string) string {
	return "EMAIL#" + models.NormalizeEmail(email)
}

func adminPK(adminID string) string {
	return "ADMIN#" + adminID
}

func (r *UserRepository) userItem(user *models.User) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}
	item[attrPK] = stringAttr(user.GetPK())
	item[attrSK] = stringAttr(user.GetSK())
	item[attrGSI1PK] = stringAttr(emailPK(user.Email))
	item[attrGSI1SK] = stringAttr(user.GetPK())
	if user.AdminID != "" {
		item[attrGSI2PK] = stringAttr(adminPK(user.AdminID))
		item[attrGSI2SK] = stringAttr(user.GetPK())
	}
	return item, nil
}

// Create writes the user together with a username guard item so usernames stay unique.
// Emails are not unique.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	item, err := r.userItem(user)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal user for DynamoDB")
		return err
	}

	guard := key(usernamePK(user.Username), skMetadata)
	guard["user_id"] = stringAttr(user.ID)

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrConflict
		}
		r.logger.WithError(err).Error("Failed to create user in DynamoDB")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{ID: id}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key(u.GetPK(), u.GetSK()),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key(usernamePK(username), skMetadata),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get username: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var guard struct {
		UserID string `dynamodbav:"user_id"`
	}
	if err := attributevalue.UnmarshalMap(result.Item, &guard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal username: %w", err)
	}
	return r.GetByID(ctx, guard.UserID)
}

// ListByEmail returns every user registered with email. Zero, one or many.
func (r *UserRepository) ListByEmail(ctx context.Context, email string) ([]models.User, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexByEmail),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(emailPK(email)),
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to query users by email")
		return nil, fmt.Errorf("failed to query users by email: %w", err)
	}

	var users []models.User
	if err := attributevalue.UnmarshalListOfMaps(items, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users: %w", err)
	}
	return users, nil
}

// ListRoommates returns every roommate (approved or pending) assigned to adminID.
func (r *UserRepository) ListRoommates(ctx context.Context, adminID string) ([]models.User, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexByAdmin),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(adminPK(adminID)),
			":sk": stringAttr("USER#"),
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to query roommates")
		return nil, fmt.Errorf("failed to query roommates: %w", err)
	}

	var users []models.User
	if err := attributevalue.UnmarshalListOfMaps(items, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roommates: %w", err)
	}
	return users, nil
}

func (r *UserRepository) SetApproved(ctx context.Context, id string, approved bool) error {
	u := &models.User{ID: id}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 key(u.GetPK(), u.GetSK()),
		UpdateExpression:    aws.String("SET is_approved = :approved, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":approved":   &types.AttributeValueMemberBOOL{Value: approved},
			":updated_at": stringAttr(time.Now().UTC().Format(time.RFC3339Nano)),
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrNotFound
		}
		r.logger.WithError(err).Error("Failed to update user in DynamoDB")
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Delete removes the user and frees the username.
func (r *UserRepository) Delete(ctx context.Context, user *models.User) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       key(user.GetPK(), user.GetSK()),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       key(usernamePK(user.Username), skMetadata),
			}},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete user from DynamoDB")
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
