package handler

import (
	"context"
	"sort"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/apperr"
	"github.com/fekuna/omnipos-variant-service/internal/auth"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type VariantHandler struct {
	uc     variant.UseCase
	logger logger.ZapLogger
}

func NewVariantHandler(uc variant.UseCase, log logger.ZapLogger) *VariantHandler {
	return &VariantHandler{
		uc:     uc,
		logger: log,
	}
}

var _ VariantServiceServer = (*VariantHandler)(nil)

// DeriveCode request: product_id, and either attributes [{name, value}] or
// name with optional color, size and size_unit.
func (h *VariantHandler) DeriveCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input := &dto.DeriveCodeInput{
		ProductID: getString(req, "product_id"),
		Name:      getString(req, "name"),
		Color:     getString(req, "color"),
		Size:      getString(req, "size"),
		SizeUnit:  getString(req, "size_unit"),
	}
	for _, item := range req.GetFields()["attributes"].GetListValue().GetValues() {
		attr := item.GetStructValue()
		input.Attributes = append(input.Attributes, dto.AttributeValueInput{
			Name:  getString(attr, "name"),
			Value: getString(attr, "value"),
		})
	}

	code, err := h.uc.DeriveCode(ctx, input)
	if err != nil {
		return nil, h.toStatus("derive code", err)
	}
	return structpb.NewStruct(map[string]interface{}{"code": code})
}

func (h *VariantHandler) ListVariants(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	filters := &dto.VariantFilters{
		ProductID:    getString(req, "product_id"),
		OnlyActive:   getBool(req, "only_active"),
		OnlyVerified: getBool(req, "only_verified"),
	}

	variants, err := h.uc.ListVariants(ctx, filters)
	if err != nil {
		return nil, h.toStatus("list variants", err)
	}

	items := make([]interface{}, len(variants))
	for i := range variants {
		items[i] = mapVariant(&variants[i])
	}
	return structpb.NewStruct(map[string]interface{}{
		"variants": items,
		"total":    len(variants),
	})
}

// CommitVariant runs the variant wizard in one call. values maps attribute
// definition ids to values and is the complete selection.
func (h *VariantHandler) CommitVariant(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID := auth.GetMerchantID(ctx)
	if merchantID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing merchant")
	}

	input := &dto.CommitVariantInput{
		MerchantID: merchantID,
		ProductID:  getString(req, "product_id"),
		VariantID:  getString(req, "variant_id"),
		Name:       getString(req, "name"),
		Code:       getString(req, "code"),
		IsDefault:  getOptionalBool(req, "is_default"),
		Values:     map[string]string{},
	}
	for id, value := range req.GetFields()["values"].GetStructValue().GetFields() {
		input.Values[id] = value.GetStringValue()
	}

	v, err := h.uc.CommitVariant(ctx, input)
	if err != nil {
		return nil, h.toStatus("commit variant", err)
	}
	return structpb.NewStruct(map[string]interface{}{"variant": mapVariant(v)})
}

func (h *VariantHandler) SetVariantVerified(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user := auth.GetUser(ctx)
	if user.MerchantID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing merchant")
	}

	v, err := h.uc.SetVariantVerified(ctx, &dto.SetVerifiedInput{
		MerchantID: user.MerchantID,
		VariantID:  getString(req, "variant_id"),
		Verified:   getBool(req, "verified"),
		ActorID:    user.UserID,
		Role:       user.Role,
	})
	if err != nil {
		return nil, h.toStatus("set variant verified", err)
	}
	return structpb.NewStruct(map[string]interface{}{"variant": mapVariant(v)})
}

// toStatus maps err onto a gRPC status. Validation failures carry their
// field messages as BadRequest details.
func (h *VariantHandler) toStatus(op string, err error) error {
	code := apperr.Code(err)
	if code == codes.Internal || code == codes.Unavailable {
		h.logger.Error("failed to "+op, zap.Error(err))
	} else {
		h.logger.Debug(op+" refused", zap.Error(err))
	}

	st := status.New(code, apperr.PublicMessage(err))
	ae, ok := apperr.As(err)
	if !ok || len(ae.Fields) == 0 {
		return st.Err()
	}

	fields := make([]string, 0, len(ae.Fields))
	for f := range ae.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	br := &errdetails.BadRequest{}
	for _, f := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f,
			Description: ae.Fields[f],
		})
	}
	if withDetails, err := st.WithDetails(br); err == nil {
		st = withDetails
	}
	return st.Err()
}

func mapVariant(v *model.ProductVariant) map[string]interface{} {
	return map[string]interface{}{
		"id":          v.ID,
		"product_id":  v.ProductID,
		"name":        v.Name,
		"code":        v.Code,
		"is_default":  v.IsDefault,
		"is_active":   v.IsActive,
		"is_verified": v.IsVerified,
		"created_at":  v.CreatedAt.Format(time.RFC3339),
		"updated_at":  v.UpdatedAt.Format(time.RFC3339),
	}
}

func getString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func getBool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// getOptionalBool returns nil when key is absent.
func getOptionalBool(s *structpb.Struct, key string) *bool {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	b := v.GetBoolValue()
	return &b
}
