package wizard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/model"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
)

// memCatalog is an in-memory Catalog. Failures can be injected per method.
type memCatalog struct {
	mu sync.Mutex

	definitions map[string][]model.AttributeDefinition // product id -> definitions
	variants    map[string]*model.ProductVariant
	values      map[string]map[string]string // variant id -> attribute id -> value
	seq         int

	failOn map[string]error
	calls  []string

	// started is closed when ListVariants is entered, release gates it.
	started chan struct{}
	release chan struct{}
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		definitions: map[string][]model.AttributeDefinition{},
		variants:    map[string]*model.ProductVariant{},
		values:      map[string]map[string]string{},
		failOn:      map[string]error{},
	}
}

func (c *memCatalog) addDefinition(productID, id, name string, defining bool) {
	c.definitions[productID] = append(c.definitions[productID], model.AttributeDefinition{
		BaseModel:         model.BaseModel{ID: id},
		ProductID:         productID,
		Name:              name,
		SortOrder:         len(c.definitions[productID]),
		IsVariantDefining: defining,
	})
}

func (c *memCatalog) addVariant(v model.ProductVariant, values map[string]string) {
	c.variants[v.ID] = &v
	c.values[v.ID] = values
}

func (c *memCatalog) record(call string) error {
	c.calls = append(c.calls, call)
	return c.failOn[call]
}

func (c *memCatalog) ListAttributeDefinitions(_ context.Context, productID string) ([]model.AttributeDefinition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("ListAttributeDefinitions"); err != nil {
		return nil, err
	}
	out := make([]model.AttributeDefinition, len(c.definitions[productID]))
	copy(out, c.definitions[productID])
	return out, nil
}

func (c *memCatalog) GetVariantAttributeValues(_ context.Context, variantID string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("GetVariantAttributeValues"); err != nil {
		return nil, err
	}
	out := map[string]string{}
	for k, v := range c.values[variantID] {
		out[k] = v
	}
	return out, nil
}

func (c *memCatalog) ListVariants(_ context.Context, productID string) ([]model.ProductVariant, error) {
	c.mu.Lock()
	started, release := c.started, c.release
	c.started = nil
	c.mu.Unlock()
	if started != nil {
		close(started)
		<-release
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("ListVariants"); err != nil {
		return nil, err
	}
	return c.listLocked(productID), nil
}

func (c *memCatalog) listLocked(productID string) []model.ProductVariant {
	var out []model.ProductVariant
	for _, v := range c.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *memCatalog) CreateVariant(_ context.Context, in *dto.CreateVariantInput) (*model.ProductVariant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("CreateVariant"); err != nil {
		return nil, err
	}
	c.seq++
	now := time.Now()
	v := &model.ProductVariant{
		BaseModel: model.BaseModel{ID: fmt.Sprintf("v-%d", c.seq), CreatedAt: now, UpdatedAt: now},
		ProductID: in.ProductID,
		Name:      in.Name,
		Code:      in.Code,
		IsDefault: in.IsDefault,
		IsActive:  true,
	}
	if v.IsDefault {
		c.clearDefaultsLocked(v.ProductID, v.ID)
	}
	c.variants[v.ID] = v
	out := *v
	return &out, nil
}

func (c *memCatalog) UpdateVariant(_ context.Context, in *dto.UpdateVariantInput) (*model.ProductVariant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("UpdateVariant"); err != nil {
		return nil, err
	}
	v, ok := c.variants[in.ID]
	if !ok {
		return nil, fmt.Errorf("variant %s not found", in.ID)
	}
	v.Name = in.Name
	v.Code = in.Code
	v.IsDefault = in.IsDefault
	if v.IsDefault {
		c.clearDefaultsLocked(v.ProductID, v.ID)
	}
	out := *v
	return &out, nil
}

func (c *memCatalog) clearDefaultsLocked(productID, keepID string) {
	for _, other := range c.variants {
		if other.ProductID == productID && other.ID != keepID {
			other.IsDefault = false
		}
	}
}

func (c *memCatalog) SetAttributeVariantDefining(_ context.Context, attributeID string, defining bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("SetAttributeVariantDefining"); err != nil {
		return err
	}
	for pid, defs := range c.definitions {
		for i := range defs {
			if defs[i].ID == attributeID {
				c.definitions[pid][i].IsVariantDefining = defining
			}
		}
	}
	return nil
}

func (c *memCatalog) BulkUpsertAttributeValues(_ context.Context, variantID string, values []model.VariantAttributeValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("BulkUpsertAttributeValues"); err != nil {
		return err
	}
	if c.values[variantID] == nil {
		c.values[variantID] = map[string]string{}
	}
	for _, av := range values {
		c.values[variantID][av.AttributeDefinitionID] = av.Value
	}
	return nil
}

func (c *memCatalog) countCalls(call string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, got := range c.calls {
		if got == call {
			n++
		}
	}
	return n
}

func (c *memCatalog) variant(id string) model.ProductVariant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.variants[id]
}

// txCatalog adds all-or-nothing commits on top of memCatalog.
type txCatalog struct {
	*memCatalog
	txs int
}

func (c *txCatalog) WithinTx(_ context.Context, fn func(Catalog) error) error {
	c.mu.Lock()
	c.txs++
	variants := map[string]model.ProductVariant{}
	for id, v := range c.variants {
		variants[id] = *v
	}
	values := map[string]map[string]string{}
	for id, m := range c.values {
		values[id] = map[string]string{}
		for k, v := range m {
			values[id][k] = v
		}
	}
	definitions := map[string][]model.AttributeDefinition{}
	for pid, defs := range c.definitions {
		definitions[pid] = append([]model.AttributeDefinition(nil), defs...)
	}
	c.mu.Unlock()

	if err := fn(c.memCatalog); err != nil {
		c.mu.Lock()
		c.variants = map[string]*model.ProductVariant{}
		for id, v := range variants {
			v := v
			c.variants[id] = &v
		}
		c.values = values
		c.definitions = definitions
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *memCatalog) defaults(productID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for _, v := range c.listLocked(productID) {
		if v.IsDefault {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

func (c *memCatalog) definition(productID, id string) model.AttributeDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.definitions[productID] {
		if d.ID == id {
			return d
		}
	}
	return model.AttributeDefinition{}
}

// manualTimers replaces time.AfterFunc; tasks run only when fired.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (m *manualTimers) AfterFunc(_ time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{f: f}
	m.timers = append(m.timers, t)
	return t
}

// FireAll runs every timer that is still active, as the runtime would.
func (m *manualTimers) FireAll() int {
	m.mu.Lock()
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

func (m *manualTimers) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
