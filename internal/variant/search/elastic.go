// Package search mirrors committed variants into Elasticsearch so the
// storefront can look them up by name or code.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"go.uber.org/zap"
)

const variantMapping = `{
	"mappings": {
		"properties": {
			"merchant_id": { "type": "keyword" },
			"product_id": { "type": "keyword" },
			"name": { "type": "text" },
			"code": { "type": "keyword" },
			"is_default": { "type": "boolean" },
			"is_active": { "type": "boolean" },
			"is_verified": { "type": "boolean" },
			"updated_at": { "type": "date" }
		}
	}
}`

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Transport http.RoundTripper // optional
}

// Document is the indexed form of a variant.
type Document struct {
	MerchantID string    `json:"merchant_id"`
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	IsDefault  bool      `json:"is_default"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Indexer writes variant documents. A nil *Indexer does nothing.
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.ZapLogger
}

func NewIndexer(cfg *Config, log logger.ZapLogger) (*Indexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, err
	}
	index := cfg.Index
	if index == "" {
		index = "product_variants"
	}
	return &Indexer{es: es, index: index, logger: log}, nil
}

// Ping checks that the cluster answers.
func (i *Indexer) Ping(ctx context.Context) error {
	res, err := i.es.Info(i.es.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the variant index with its mapping when missing.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	if i == nil {
		return nil
	}
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(ctx),
		i.es.Indices.Create.WithBody(strings.NewReader(variantMapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", i.index, res.Status())
	}
	return nil
}

func (i *Indexer) Index(ctx context.Context, merchantID string, v *model.ProductVariant) error {
	if i == nil {
		return nil
	}
	body, err := json.Marshal(Document{
		MerchantID: merchantID,
		ProductID:  v.ProductID,
		Name:       v.Name,
		Code:       v.Code,
		IsDefault:  v.IsDefault,
		IsActive:   v.IsActive,
		IsVerified: v.IsVerified,
		UpdatedAt:  v.UpdatedAt,
	})
	if err != nil {
		return err
	}

	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(v.ID),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index variant %s: %s", v.ID, res.Status())
	}
	return nil
}

// Sync indexes v and logs instead of failing; search lags but never blocks
// a commit.
func (i *Indexer) Sync(ctx context.Context, merchantID string, v *model.ProductVariant) {
	if i == nil {
		return
	}
	if err := i.Index(ctx, merchantID, v); err != nil {
		i.logger.Error("failed to index variant", zap.String("variant_id", v.ID), zap.Error(err))
	}
}
