package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder answers every request like a healthy cluster would.
type recorder struct {
	requests []*http.Request
	bodies   []string
	status   map[string]int // "METHOD path" -> status
}

func (r *recorder) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, body)

	code := http.StatusOK
	if c, ok := r.status[req.Method+" "+req.URL.Path]; ok {
		code = c
	}
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: code,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(`{}`)),
		Request:    req,
	}, nil
}

func newTestIndexer(t *testing.T, rt *recorder) *Indexer {
	t.Helper()
	i, err := NewIndexer(&Config{Addresses: []string{"http://es.local:9200"}, Transport: rt}, logger.NewNop())
	require.NoError(t, err)
	return i
}

func TestIndexWritesDocument(t *testing.T) {
	rt := &recorder{}
	i := newTestIndexer(t, rt)

	err := i.Index(context.Background(), "m-1", &model.ProductVariant{
		BaseModel: model.BaseModel{ID: "v-1"}, ProductID: "p-1", Name: "Golden", Code: "PREM-GOLD", IsDefault: true,
	})

	require.NoError(t, err)
	require.Len(t, rt.requests, 1)
	assert.Equal(t, http.MethodPut, rt.requests[0].Method)
	assert.Equal(t, "/product_variants/_doc/v-1", rt.requests[0].URL.Path)

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(rt.bodies[0]), &doc))
	assert.Equal(t, "m-1", doc.MerchantID)
	assert.Equal(t, "PREM-GOLD", doc.Code)
	assert.True(t, doc.IsDefault)
}

func TestIndexReportsClusterErrors(t *testing.T) {
	rt := &recorder{status: map[string]int{"PUT /product_variants/_doc/v-1": http.StatusBadRequest}}
	i := newTestIndexer(t, rt)

	err := i.Index(context.Background(), "m-1", &model.ProductVariant{BaseModel: model.BaseModel{ID: "v-1"}})

	assert.Error(t, err)
}

func TestEnsureIndexCreatesMissingIndex(t *testing.T) {
	rt := &recorder{status: map[string]int{"HEAD /product_variants": http.StatusNotFound}}
	i := newTestIndexer(t, rt)

	require.NoError(t, i.EnsureIndex(context.Background()))

	require.Len(t, rt.requests, 2)
	assert.Equal(t, http.MethodPut, rt.requests[1].Method)
	assert.Equal(t, "/product_variants", rt.requests[1].URL.Path)
	assert.Contains(t, rt.bodies[1], `"code": { "type": "keyword" }`)
}

func TestEnsureIndexSkipsExistingIndex(t *testing.T) {
	rt := &recorder{}
	i := newTestIndexer(t, rt)

	require.NoError(t, i.EnsureIndex(context.Background()))

	assert.Len(t, rt.requests, 1)
}

func TestNilIndexer(t *testing.T) {
	var i *Indexer

	assert.NoError(t, i.EnsureIndex(context.Background()))
	assert.NoError(t, i.Index(context.Background(), "m-1", &model.ProductVariant{}))
	i.Sync(context.Background(), "m-1", &model.ProductVariant{})
}
