package handler

import (
	"context"
	"net"
	"testing"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/repository"
	"github.com/fekuna/omnipos-variant-service/internal/variant/usecase"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type testServer struct {
	client  *VariantServiceClient
	product *model.Product
	color   *model.AttributeDefinition
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlx.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.ApplySchema(ctx, db))

	uc := usecase.NewVariantUseCase(repository.NewSQLRepository(db), nil, nil, nil, logger.NewNop(), 0)
	p, err := uc.CreateProduct(ctx, &dto.CreateProductInput{MerchantID: "m-1", Name: "Cotton Tee", Code: "TEE"})
	require.NoError(t, err)
	color, err := uc.AddAttribute(ctx, &dto.CreateAttributeInput{ProductID: p.ID, Name: "Color"})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterVariantServiceServer(srv, NewVariantHandler(uc, logger.NewNop()))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testServer{client: NewVariantServiceClient(conn), product: p, color: color}
}

func asUser(role string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(),
		"x-merchant-id", "m-1",
		"x-user-id", "u-1",
		"x-user-role", role,
	)
}

func request(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestCommitAndVerifyOverGRPC(t *testing.T) {
	ts := newTestServer(t)

	res, err := ts.client.Call(asUser("cashier"), "CommitVariant", request(t, map[string]interface{}{
		"product_id": ts.product.ID,
		"values":     map[string]interface{}{ts.color.ID: "Red"},
	}))
	require.NoError(t, err)
	committed := res.GetFields()["variant"].GetStructValue()
	assert.Equal(t, "TEE-RED", getString(committed, "code"))
	assert.True(t, getBool(committed, "is_default"))
	variantID := getString(committed, "id")

	_, err = ts.client.Call(asUser("cashier"), "SetVariantVerified", request(t, map[string]interface{}{
		"variant_id": variantID, "verified": true,
	}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	res, err = ts.client.Call(asUser("qa"), "SetVariantVerified", request(t, map[string]interface{}{
		"variant_id": variantID, "verified": true,
	}))
	require.NoError(t, err)
	assert.True(t, getBool(res.GetFields()["variant"].GetStructValue(), "is_verified"))

	res, err = ts.client.Call(context.Background(), "ListVariants", request(t, map[string]interface{}{
		"product_id": ts.product.ID, "only_verified": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), res.GetFields()["total"].GetNumberValue())
	assert.Len(t, res.GetFields()["variants"].GetListValue().GetValues(), 1)
}

func TestCommitWithoutMerchant(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.client.Call(context.Background(), "CommitVariant", request(t, map[string]interface{}{
		"product_id": ts.product.ID,
	}))

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestValidationDetails(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.client.Call(asUser("cashier"), "CommitVariant", request(t, map[string]interface{}{
		"product_id": ts.product.ID,
	}))

	st := status.Convert(err)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	require.Len(t, st.Details(), 1)
	br, ok := st.Details()[0].(*errdetails.BadRequest)
	require.True(t, ok)
	assert.Equal(t, "attributes", br.GetFieldViolations()[0].GetField())
}

func TestCollisionOverGRPC(t *testing.T) {
	ts := newTestServer(t)
	commit := func() error {
		_, err := ts.client.Call(asUser("cashier"), "CommitVariant", request(t, map[string]interface{}{
			"product_id": ts.product.ID,
			"values":     map[string]interface{}{ts.color.ID: "Red"},
		}))
		return err
	}

	require.NoError(t, commit())
	assert.Equal(t, codes.AlreadyExists, status.Code(commit()))
}

func TestDeriveCodeOverGRPC(t *testing.T) {
	ts := newTestServer(t)

	res, err := ts.client.Call(context.Background(), "DeriveCode", request(t, map[string]interface{}{
		"product_id": ts.product.ID,
		"attributes": []interface{}{
			map[string]interface{}{"name": "Size", "value": "XL"},
			map[string]interface{}{"name": "Color", "value": "Navy"},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, "TEE-XL-NAVY", getString(res, "code"))

	res, err = ts.client.Call(context.Background(), "DeriveCode", request(t, map[string]interface{}{
		"product_id": ts.product.ID, "name": "Red",
	}))
	require.NoError(t, err)
	assert.Equal(t, "TEE-RED", getString(res, "code"))

	_, err = ts.client.Call(context.Background(), "DeriveCode", request(t, map[string]interface{}{"product_id": "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestOptionalBool(t *testing.T) {
	assert.Nil(t, getOptionalBool(request(t, map[string]interface{}{"name": "Renamed"}), "is_default"))

	flag := getOptionalBool(request(t, map[string]interface{}{"is_default": false}), "is_default")
	require.NotNil(t, flag)
	assert.False(t, *flag)
}
