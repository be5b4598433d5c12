package wizard

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/model"
)

type State int

const (
	StateSelectAttributes State = iota
	StateNameAndCode
	StateCommitting // a commit request is in flight
	StateCommitted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSelectAttributes:
		return "select_attributes"
	case StateNameAndCode:
		return "name_and_code"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

type Mode int

const (
	ModeAdd Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "add"
}

// Draft is the variant under construction. It is never persisted as such;
// Save turns it into writes against the Catalog.
type Draft struct {
	Name                 string
	Code                 string
	IsDefault            bool
	SelectedAttributeIDs []string          // definition order
	AttributeValues      map[string]string // attribute definition id -> value
}

const DefaultRegenerateDelay = 300 * time.Millisecond

type Options struct {
	Logger          logger.ZapLogger
	RegenerateDelay time.Duration
	AfterFunc       AfterFunc // nil means time.AfterFunc

	// OnCodeRegenerated runs after a debounced regeneration changed the code.
	// It is called without the wizard lock held.
	OnCodeRegenerated func(code string)

	// OnCommitted runs once the catalog accepted a commit, even when the
	// wizard was cancelled while the request was in flight.
	OnCommitted func(ctx context.Context, mode Mode, v *model.ProductVariant)
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Logger == nil {
		out.Logger = logger.NewNop()
	}
	if out.RegenerateDelay <= 0 {
		out.RegenerateDelay = DefaultRegenerateDelay
	}
	return out
}
