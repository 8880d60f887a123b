// Package orders places orders against a seller's listings and manages
// their status afterwards.
package orders

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/inventory"
)

type Deps struct {
	Store  Store
	Ledger *inventory.Ledger
	// Publisher may be nil, events are then skipped.
	Publisher Publisher
	Policy    Policy
	// Producer names this service in event envelopes.
	Producer string
	Log      *zap.Logger
}

// Service bundles placement, status updates and reads behind one value.
type Service struct {
	*Engine
	*Lifecycle
	*Queries
}

func NewService(d Deps) *Service {
	tracer := otel.Tracer(instrumentationName)
	m := newMetrics(otel.Meter(instrumentationName))
	ev := emitter{pub: d.Publisher, producer: d.Producer, log: d.Log}

	return &Service{
		Engine: &Engine{
			uow:    d.Store,
			reader: d.Store,
			ledger: d.Ledger,
			events: ev,
			log:    d.Log.Named("engine"),
			tracer: tracer,
			m:      m,
		},
		Lifecycle: &Lifecycle{
			uow:    d.Store,
			reader: d.Store,
			ledger: d.Ledger,
			policy: d.Policy,
			events: ev,
			log:    d.Log.Named("lifecycle"),
			tracer: tracer,
			m:      m,
		},
		Queries: &Queries{reader: d.Store},
	}
}
