package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTables = config.DynamoTables{Users: "users", UserEmails: "user_emails", VerificationCodes: "verification_codes"}

// fakeDynamo serves GetItem from seeded items and records transactions.
// Successful transactions apply their Put items so later reads see them.
type fakeDynamo struct {
	items    map[string]map[string]map[string]types.AttributeValue // table -> key value -> item
	txErr    error
	getErr   error
	tx       []*dynamodb.TransactWriteItemsInput
	deadline bool
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]map[string]types.AttributeValue{}}
}

func (f *fakeDynamo) seed(t *testing.T, table, key string, v interface{}) {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	if f.items[table] == nil {
		f.items[table] = map[string]map[string]types.AttributeValue{}
	}
	f.items[table][key] = item
}

func keyValue(key map[string]types.AttributeValue) string {
	for _, v := range key {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			return s.Value
		}
	}
	return ""
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	_, f.deadline = ctx.Deadline()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.items[*in.TableName][keyValue(in.Key)]}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	_, f.deadline = ctx.Deadline()
	f.tx = append(f.tx, in)
	if f.txErr != nil {
		return nil, f.txErr
	}
	for _, it := range in.TransactItems {
		if it.Put == nil {
			continue
		}
		table := *it.Put.TableName
		if f.items[table] == nil {
			f.items[table] = map[string]map[string]types.AttributeValue{}
		}
		pk := it.Put.ExpressionAttributeNames["#pk"]
		f.items[table][keyValue(map[string]types.AttributeValue{pk: it.Put.Item[pk]})] = it.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{CancellationReasons: reasons}
}

func newTestRepo(f *fakeDynamo) *UserRepo {
	r := NewUserRepo(f, testTables, time.Second)
	r.now = func() time.Time { return time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC) }
	return r
}

func pendingUser() *domain.User {
	return &domain.User{
		UserID:           "01J00000000000000000000000",
		Email:            "a@b.com",
		PasswordHash:     "$2a$10$hash",
		VerificationCode: "123456",
		CreatedAt:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestInsert_WritesUserAndGuardsInOneTransaction(t *testing.T) {
	f := newFakeDynamo()
	r := newTestRepo(f)

	require.NoError(t, r.Insert(context.Background(), pendingUser()))
	require.Len(t, f.tx, 1)
	assert.True(t, f.deadline)

	items := f.tx[0].TransactItems
	require.Len(t, items, 3)
	assert.Equal(t, "users", *items[insertUser].Put.TableName)
	assert.Equal(t, "user_emails", *items[insertEmail].Put.TableName)
	assert.Equal(t, "verification_codes", *items[insertCode].Put.TableName)
	for _, it := range items {
		assert.Equal(t, "attribute_not_exists(#pk)", *it.Put.ConditionExpression)
	}
	assert.Equal(t, &types.AttributeValueMemberS{Value: "123456"}, items[insertCode].Put.Item[attrCode])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "$2a$10$hash"}, items[insertUser].Put.Item["password_hash"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: false}, items[insertUser].Put.Item[attrIsVerified])
}

func TestInsert_WithoutCode_SkipsCodeGuard(t *testing.T) {
	f := newFakeDynamo()
	u := pendingUser()
	u.VerificationCode = ""

	require.NoError(t, newTestRepo(f).Insert(context.Background(), u))
	items := f.tx[0].TransactItems
	require.Len(t, items, 2)
	_, hasCode := items[insertUser].Put.Item[attrVerificationCode]
	assert.False(t, hasCode)
}

func TestInsert_CancellationMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"email taken", cancelled("None", "ConditionalCheckFailed", "None"), domain.ErrConflict},
		{"email and code taken", cancelled("None", "ConditionalCheckFailed", "ConditionalCheckFailed"), domain.ErrConflict},
		{"id taken", cancelled("ConditionalCheckFailed", "None", "None"), domain.ErrConflict},
		{"code taken", cancelled("None", "None", "ConditionalCheckFailed"), domain.ErrCodeTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeDynamo()
			f.txErr = tc.err
			err := newTestRepo(f).Insert(context.Background(), pendingUser())
			assert.True(t, errors.Is(err, tc.want), err)
		})
	}
}

func TestInsert_OtherFailure_IsNotADomainError(t *testing.T) {
	f := newFakeDynamo()
	f.txErr = errors.New("throttled")
	err := newTestRepo(f).Insert(context.Background(), pendingUser())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
	assert.False(t, errors.Is(err, domain.ErrCodeTaken))
}

func TestFind_ThroughGuards(t *testing.T) {
	f := newFakeDynamo()
	r := newTestRepo(f)
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, pendingUser()))

	byEmail, err := r.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "01J00000000000000000000000", byEmail.UserID)
	assert.Equal(t, "123456", byEmail.VerificationCode)

	byCode, err := r.FindByCode(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, byEmail.UserID, byCode.UserID)

	byID, err := r.FindByID(ctx, byEmail.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", byID.Email)
	assert.True(t, byID.CreatedAt.Equal(pendingUser().CreatedAt))
}

func TestFind_Missing_ReturnsNotFound(t *testing.T) {
	r := newTestRepo(newFakeDynamo())
	ctx := context.Background()

	_, err := r.FindByEmail(ctx, "x@x.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = r.FindByCode(ctx, "000000")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = r.FindByID(ctx, "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFind_DanglingGuard_ReturnsNotFound(t *testing.T) {
	f := newFakeDynamo()
	f.seed(t, "user_emails", "a@b.com", domain.EmailClaim{Email: "a@b.com", UserID: "gone"})
	_, err := newTestRepo(f).FindByEmail(context.Background(), "a@b.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFind_ReadFailure_IsNotNotFound(t *testing.T) {
	f := newFakeDynamo()
	f.getErr = errors.New("network down")
	_, err := newTestRepo(f).FindByEmail(context.Background(), "a@b.com")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateVerification_ClearsCodeAndReleasesGuard(t *testing.T) {
	f := newFakeDynamo()
	u := pendingUser()
	f.seed(t, "users", u.UserID, u)
	r := newTestRepo(f)

	require.NoError(t, r.UpdateVerification(context.Background(), u.UserID, true, true))
	require.Len(t, f.tx, 1)
	items := f.tx[0].TransactItems
	require.Len(t, items, 2)

	upd := items[0].Update
	require.NotNil(t, upd)
	assert.Equal(t, "users", *upd.TableName)
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1 REMOVE #vc", *upd.UpdateExpression)
	assert.Equal(t, "attribute_exists(#pk) AND #vc = :code", *upd.ConditionExpression)
	assert.Equal(t, attrIsVerified, upd.ExpressionAttributeNames["#f0"])
	assert.Equal(t, attrUpdatedAt, upd.ExpressionAttributeNames["#f1"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, upd.ExpressionAttributeValues[":v0"])

	del := items[1].Delete
	require.NotNil(t, del)
	assert.Equal(t, "verification_codes", *del.TableName)
	assert.Equal(t, strKey(attrCode, "123456"), del.Key)
}

func TestUpdateVerification_AlreadyConsumed_ReturnsNotFound(t *testing.T) {
	f := newFakeDynamo()
	u := pendingUser()
	u.VerificationCode = ""
	u.Verified = true
	f.seed(t, "users", u.UserID, u)

	err := newTestRepo(f).UpdateVerification(context.Background(), u.UserID, true, true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, f.tx)
}

func TestUpdateVerification_LostRace_ReturnsNotFound(t *testing.T) {
	f := newFakeDynamo()
	u := pendingUser()
	f.seed(t, "users", u.UserID, u)
	f.txErr = cancelled("ConditionalCheckFailed", "None")

	err := newTestRepo(f).UpdateVerification(context.Background(), u.UserID, true, true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdateVerification_CannotRevert(t *testing.T) {
	f := newFakeDynamo()
	u := pendingUser()
	u.VerificationCode = ""
	u.Verified = true
	f.seed(t, "users", u.UserID, u)

	err := newTestRepo(f).UpdateVerification(context.Background(), u.UserID, false, false)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Empty(t, f.tx)
}

func TestUpdateVerification_UnknownUser(t *testing.T) {
	err := newTestRepo(newFakeDynamo()).UpdateVerification(context.Background(), "ghost", true, true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

type fakeCreator struct {
	tables []string
	err    error
}

func (f *fakeCreator) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.tables = append(f.tables, *in.TableName)
	return &dynamodb.CreateTableOutput{}, f.err
}

func TestBootstrap_CreatesAllTables(t *testing.T) {
	c := &fakeCreator{}
	Bootstrap(context.Background(), c, testTables)
	assert.Equal(t, []string{"users", "user_emails", "verification_codes"}, c.tables)

	c = &fakeCreator{err: &types.ResourceInUseException{}}
	Bootstrap(context.Background(), c, testTables)
	assert.Len(t, c.tables, 3)
}
