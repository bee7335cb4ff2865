package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/domain"
)

type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Item positions inside the Insert transaction.
const (
	insertUser = iota
	insertEmail
	insertCode
)

// UserRepo stores users in the users table and reserves emails and pending
// verification codes in two guard tables. Every write that touches a guard
// runs in the same transaction as the user item.
type UserRepo struct {
	client  dynamoAPI
	tables  config.DynamoTables
	timeout time.Duration
	now     func() time.Time
}

func NewUserRepo(client dynamoAPI, tables config.DynamoTables, timeout time.Duration) *UserRepo {
	return &UserRepo{client: client, tables: tables, timeout: timeout, now: time.Now}
}

func (r *UserRepo) Insert(ctx context.Context, u *domain.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	emailItem, err := attributevalue.MarshalMap(domain.EmailClaim{Email: u.Email, UserID: u.UserID})
	if err != nil {
		return fmt.Errorf("marshal email claim: %w", err)
	}

	items := []types.TransactWriteItem{
		{Put: putIfAbsent(r.tables.Users, attrUserID, item)},
		{Put: putIfAbsent(r.tables.UserEmails, attrEmail, emailItem)},
	}
	if u.VerificationCode != "" {
		codeItem, err := attributevalue.MarshalMap(domain.CodeClaim{Code: u.VerificationCode, UserID: u.UserID})
		if err != nil {
			return fmt.Errorf("marshal code claim: %w", err)
		}
		items = append(items, types.TransactWriteItem{Put: putIfAbsent(r.tables.VerificationCodes, attrCode, codeItem)})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	failed, cancelled := conditionFailedAt(err)
	if !cancelled {
		return fmt.Errorf("insert user: %w", err)
	}
	switch {
	case len(failed) > insertEmail && failed[insertEmail]:
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	case len(failed) > insertUser && failed[insertUser]:
		return fmt.Errorf("user id already exists: %w", domain.ErrConflict)
	case len(failed) > insertCode && failed[insertCode]:
		return domain.ErrCodeTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

func (r *UserRepo) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return r.getUser(ctx, userID)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var claim domain.EmailClaim
	found, err := r.getItem(ctx, r.tables.UserEmails, strKey(attrEmail, email), &claim)
	if err != nil {
		return nil, fmt.Errorf("get email claim: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return r.getUser(ctx, claim.UserID)
}

func (r *UserRepo) FindByCode(ctx context.Context, code string) (*domain.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var claim domain.CodeClaim
	found, err := r.getItem(ctx, r.tables.VerificationCodes, strKey(attrCode, code), &claim)
	if err != nil {
		return nil, fmt.Errorf("get code claim: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("verification code: %w", domain.ErrNotFound)
	}
	return r.getUser(ctx, claim.UserID)
}

// UpdateVerification sets is_verified and, with clearCode, removes the
// pending code from the user and releases its guard item in one
// transaction. A code that was already released reports ErrNotFound.
func (r *UserRepo) UpdateVerification(ctx context.Context, userID string, verified, clearCode bool) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	u, err := r.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.Verified && !verified {
		return fmt.Errorf("verified account cannot be reverted: %w", domain.ErrConflict)
	}
	if clearCode && u.VerificationCode == "" {
		return fmt.Errorf("verification code: %w", domain.ErrNotFound)
	}

	ue, err := buildUpdateExpr(map[string]interface{}{
		attrIsVerified: verified,
		attrUpdatedAt:  r.now().UTC(),
	})
	if err != nil {
		return err
	}
	ue.Names["#pk"] = attrUserID
	cond := "attribute_exists(#pk)"
	if !verified {
		ue.Names["#iv"] = attrIsVerified
		ue.Values[":unverified"] = &types.AttributeValueMemberBOOL{Value: false}
		cond += " AND #iv = :unverified"
	}

	if clearCode {
		ue.Expr += " REMOVE #vc"
		ue.Names["#vc"] = attrVerificationCode
		ue.Values[":code"] = &types.AttributeValueMemberS{Value: u.VerificationCode}
		cond += " AND #vc = :code"
	}
	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                 aws.String(r.tables.Users),
		Key:                       strKey(attrUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}}}
	if clearCode {
		items = append(items, types.TransactWriteItem{Delete: &types.Delete{
			TableName:                aws.String(r.tables.VerificationCodes),
			Key:                      strKey(attrCode, u.VerificationCode),
			ConditionExpression:      aws.String("#uid = :uid"),
			ExpressionAttributeNames: map[string]string{"#uid": attrUserID},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
		}})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	if _, cancelled := conditionFailedAt(err); cancelled {
		return fmt.Errorf("user or code changed concurrently: %w", domain.ErrNotFound)
	}
	return fmt.Errorf("update verification: %w", err)
}

func (r *UserRepo) getUser(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	found, err := r.getItem(ctx, r.tables.Users, strKey(attrUserID, userID), &u)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) getItem(ctx context.Context, table string, key map[string]types.AttributeValue, out interface{}) (bool, error) {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	if res.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return false, err
	}
	return true, nil
}

func putIfAbsent(table, hashKey string, item map[string]types.AttributeValue) *types.Put {
	return &types.Put{
		TableName:                aws.String(table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": hashKey},
	}
}
