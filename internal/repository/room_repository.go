package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/sirupsen/logrus"
)

const skRoom = "ROOM"

type RoomRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewRoomRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *RoomRepository {
	return &RoomRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Create stores the room. An admin may own only one room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	existing, err := r.GetByAdmin(ctx, room.AdminID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return ErrConflict
	}

	room.CreatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}
	item[attrPK] = stringAttr(room.GetPK())
	item[attrSK] = stringAttr(room.GetSK())
	item[attrGSI2PK] = stringAttr(adminPK(room.AdminID))
	item[attrGSI2SK] = stringAttr(skRoom)

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrConflict
		}
		r.logger.WithError(err).Error("Failed to create room in DynamoDB")
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	room := &models.Room{ID: id}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key(room.GetPK(), room.GetSK()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(result.Item, room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return room, nil
}

func (r *RoomRepository) GetByAdmin(ctx context.Context, adminID string) (*models.Room, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexByAdmin),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND GSI2SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(adminPK(adminID)),
			":sk": stringAttr(skRoom),
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query room by admin: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var room models.Room
	if err := attributevalue.UnmarshalMap(result.Items[0], &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

// List returns all rooms. The table is household-sized, so a filtered scan is fine.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("begins_with(PK, :pk_prefix) AND SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk_prefix": stringAttr("ROOM#"),
			":sk":        stringAttr(skMetadata),
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan rooms")
			return nil, fmt.Errorf("failed to scan rooms: %w", err)
		}
		items = append(items, page.Items...)
	}

	var rooms []models.Room
	if err := attributevalue.UnmarshalListOfMaps(items, &rooms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rooms: %w", err)
	}
	return rooms, nil
}
