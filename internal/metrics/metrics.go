package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "asteroids-server/internal/metrics"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the server instruments. Instruments come from the global
// meter provider and are no-ops until one is installed.
type Metrics struct {
	ticks         metric.Int64Counter
	snapshots     metric.Int64Counter
	inputs        metric.Int64Counter
	droppedInputs metric.Int64Counter
	joins         metric.Int64Counter
	leaves        metric.Int64Counter
	droppedSends  metric.Int64Counter
	rooms         metric.Int64ObservableGauge
	registration  metric.Registration
}

// New creates the instruments. roomCount is sampled on every collection.
func New(roomCount func() int) (*Metrics, error) {
	m := meter()
	var err error
	mx := &Metrics{}

	if mx.ticks, err = m.Int64Counter("arena.room.ticks",
		metric.WithDescription("Simulation ticks executed")); err != nil {
		return nil, err
	}
	if mx.snapshots, err = m.Int64Counter("arena.room.snapshots",
		metric.WithDescription("Snapshots broadcast")); err != nil {
		return nil, err
	}
	if mx.inputs, err = m.Int64Counter("arena.room.inputs",
		metric.WithDescription("Input records accepted")); err != nil {
		return nil, err
	}
	if mx.droppedInputs, err = m.Int64Counter("arena.room.inputs.dropped",
		metric.WithDescription("Input records dropped by buffer overflow or ordering")); err != nil {
		return nil, err
	}
	if mx.joins, err = m.Int64Counter("arena.room.joins",
		metric.WithDescription("Successful joins")); err != nil {
		return nil, err
	}
	if mx.leaves, err = m.Int64Counter("arena.room.leaves",
		metric.WithDescription("Players leaving rooms")); err != nil {
		return nil, err
	}
	if mx.droppedSends, err = m.Int64Counter("arena.client.sends.dropped",
		metric.WithDescription("Outbound messages dropped on full client queues")); err != nil {
		return nil, err
	}
	if mx.rooms, err = m.Int64ObservableGauge("arena.rooms.active",
		metric.WithDescription("Rooms currently registered")); err != nil {
		return nil, err
	}
	if roomCount != nil {
		mx.registration, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(mx.rooms, int64(roomCount()))
			return nil
		}, mx.rooms)
		if err != nil {
			return nil, err
		}
	}
	return mx, nil
}

// Close unregisters the room gauge callback
func (m *Metrics) Close() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}

func roomAttr(code string) metric.AddOption {
	return metric.WithAttributes(attribute.String("room", code))
}

// The recorders below are nil-safe so components can run without metrics.

func (m *Metrics) Tick(code string) {
	if m != nil {
		m.ticks.Add(context.Background(), 1, roomAttr(code))
	}
}

func (m *Metrics) Snapshot(code string) {
	if m != nil {
		m.snapshots.Add(context.Background(), 1, roomAttr(code))
	}
}

func (m *Metrics) Input(code string) {
	if m != nil {
		m.inputs.Add(context.Background(), 1, roomAttr(code))
	}
}

func (m *Metrics) InputDropped(code string) {
	if m != nil {
		m.droppedInputs.Add(context.Background(), 1, roomAttr(code))
	}
}

func (m *Metrics) Join(code string) {
	if m != nil {
		m.joins.Add(context.Background(), 1, roomAttr(code))
	}
}

func (m *Metrics) Leave(code string) {
	if m != nil {
		m.leaves.Add(context.Background(), 1, roomAttr(code))
	}
}

func (m *Metrics) SendDropped() {
	if m != nil {
		m.droppedSends.Add(context.Background(), 1)
	}
}
