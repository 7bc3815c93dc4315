package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	attrMonthlyAmount = "monthly_amount"
	attrAmountPaid    = "amount_paid"
	attrAmount        = "amount"
)

// LedgerRepository stores rent plans, payments and transactions under the owning admin's partition.
type LedgerRepository struct {
	client    DynamoAPI
	tableName string
	logger    *logrus.Logger
}

func NewLedgerRepository(client DynamoAPI, tableName string, logger *logrus.Logger) *LedgerRepository {
	return &LedgerRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// PutRentPlan creates or replaces the admin's single plan.
func (r *LedgerRepository) PutRentPlan(ctx context.Context, plan *models.RentPlan) error {
	plan.UpdatedAt = time.Now().UTC()

	item, err := attributevalue.MarshalMap(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal rent plan: %w", err)
	}
	item[attrPK] = stringAttr(plan.GetPK())
	item[attrSK] = stringAttr(plan.GetSK())
	setDecimal(item, attrMonthlyAmount, plan.MonthlyAmount)

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		r.logger.WithError(err).Error("Failed to store rent plan in DynamoDB")
		return fmt.Errorf("failed to store rent plan: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetRentPlan(ctx context.Context, adminID string) (*models.RentPlan, error) {
	plan := &models.RentPlan{AdminID: adminID}
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key(plan.GetPK(), plan.GetSK()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get rent plan: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	if err := attributevalue.UnmarshalMap(result.Item, plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rent plan: %w", err)
	}
	if plan.MonthlyAmount, err = getDecimal(result.Item, attrMonthlyAmount); err != nil {
		return nil, fmt.Errorf("failed to read rent plan: %w", err)
	}
	return plan, nil
}

func (r *LedgerRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	item, err := attributevalue.MarshalMap(payment)
	if err != nil {
		return fmt.Errorf("failed to marshal payment: %w", err)
	}
	item[attrPK] = stringAttr(payment.GetPK())
	item[attrSK] = stringAttr(payment.GetSK())
	setDecimal(item, attrAmountPaid, payment.AmountPaid)

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}); err != nil {
		r.logger.WithError(err).Error("Failed to store payment in DynamoDB")
		return fmt.Errorf("failed to store payment: %w", err)
	}
	return nil
}

// ListPayments returns the admin's payments, oldest first.
func (r *LedgerRepository) ListPayments(ctx context.Context, adminID string) ([]models.Payment, error) {
	items, err := r.listByPrefix(ctx, adminID, "PAYMENT#")
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}

	payments := make([]models.Payment, 0, len(items))
	for _, item := range items {
		var p models.Payment
		if err := attributevalue.UnmarshalMap(item, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
		}
		if p.AmountPaid, err = getDecimal(item, attrAmountPaid); err != nil {
			return nil, fmt.Errorf("failed to read payment %s: %w", p.ID, err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (r *LedgerRepository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	item, err := attributevalue.MarshalMap(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	item[attrPK] = stringAttr(txn.GetPK())
	item[attrSK] = stringAttr(txn.GetSK())
	setDecimal(item, attrAmount, txn.Amount)

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}); err != nil {
		r.logger.WithError(err).Error("Failed to store transaction in DynamoDB")
		return fmt.Errorf("failed to store transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the admin's transactions ordered by date.
func (r *LedgerRepository) ListTransactions(ctx context.Context, adminID string) ([]models.Transaction, error) {
	items, err := r.listByPrefix(ctx, adminID, "TXN#")
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	txns := make([]models.Transaction, 0, len(items))
	for _, item := range items {
		var t models.Transaction
		if err := attributevalue.UnmarshalMap(item, &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
		}
		if t.Amount, err = getDecimal(item, attrAmount); err != nil {
			return nil, fmt.Errorf("failed to read transaction %s: %w", t.ID, err)
		}
		txns = append(txns, t)
	}
	return txns, nil
}

func (r *LedgerRepository) listByPrefix(ctx context.Context, adminID, prefix string) ([]map[string]types.AttributeValue, error) {
	return queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(adminPK(adminID)),
			":sk": stringAttr(prefix),
		},
	})
}
