package draft

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkStoreContract runs the behaviour every Store backend must share.
func checkStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "parcel", []byte(`{"titleNumber":"LR 1"}`)))
	data, err := store.Load(ctx, "parcel")
	require.NoError(t, err)
	assert.JSONEq(t, `{"titleNumber":"LR 1"}`, string(data))

	require.NoError(t, store.Save(ctx, "parcel", []byte(`{"titleNumber":"LR 2"}`)))
	data, err = store.Load(ctx, "parcel")
	require.NoError(t, err)
	assert.JSONEq(t, `{"titleNumber":"LR 2"}`, string(data))

	require.NoError(t, store.Delete(ctx, "parcel"))
	_, err = store.Load(ctx, "parcel")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "parcel"))
}

func TestMemoryStore(t *testing.T) {
	checkStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte(`{"a":1}`)
	require.NoError(t, store.Save(ctx, "k", buf))
	buf[2] = 'b'

	data, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

// fakeDynamo keeps items in memory keyed by draft_key.
type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	tables map[string]int
	err    error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items:  make(map[string]map[string]types.AttributeValue),
		tables: make(map[string]int),
	}
}

func keyOf(key map[string]types.AttributeValue) string {
	if s, ok := key["draft_key"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tables[*in.TableName]++
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tables[*in.TableName]++
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tables[*in.TableName]++
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore(t *testing.T) {
	fake := newFakeDynamo()
	checkStoreContract(t, NewDynamoStore(fake, "parcel_drafts"))

	assert.Equal(t, []string{"parcel_drafts"}, tableNames(fake))
}

func TestDynamoStoreItemShape(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "parcel_drafts")

	require.NoError(t, store.Save(context.Background(), "land_form_data", []byte(`{}`)))

	item := fake.items["land_form_data"]
	require.NotNil(t, item)
	assert.Contains(t, item, "snapshot")
	assert.Contains(t, item, "updated_at")
	_, isBinary := item["snapshot"].(*types.AttributeValueMemberB)
	assert.True(t, isBinary)
}

func TestDynamoStoreWrapsClientErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("throttled")
	store := NewDynamoStore(fake, "parcel_drafts")
	ctx := context.Background()

	_, err := store.Load(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "throttled")

	assert.ErrorContains(t, store.Save(ctx, "k", []byte(`{}`)), "dynamodb put draft")
	assert.ErrorContains(t, store.Delete(ctx, "k"), "dynamodb delete draft")
}

func tableNames(f *fakeDynamo) []string {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	return names
}
