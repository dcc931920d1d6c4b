package tracing

import (
	"context"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedStore wraps a TableStore with one span per call
type TracedStore struct {
	inner  ports.TableStore
	tracer trace.Tracer
	table  string
}

var _ ports.TableStore = (*TracedStore)(nil)

// NewTracedStore creates the decorator
func NewTracedStore(inner ports.TableStore, tracer trace.Tracer, table string) *TracedStore {
	return &TracedStore{inner: inner, tracer: tracer, table: table}
}

func (s *TracedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.table", s.table))
	return s.tracer.Start(ctx, "tablestore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *TracedStore) Scan(ctx context.Context) (entities.Snapshot, error) {
	ctx, span := s.start(ctx, "Scan")
	rows, err := s.inner.Scan(ctx)
	span.SetAttributes(attribute.Int("rows", rows.Len()))
	finish(span, err)
	return rows, err
}

func (s *TracedStore) Put(ctx context.Context, row entities.Row) error {
	ctx, span := s.start(ctx, "Put", attribute.String("row.id", row.ID()))
	err := s.inner.Put(ctx, row)
	finish(span, err)
	return err
}

func (s *TracedStore) Update(ctx context.Context, id string, set entities.Row, remove []string) error {
	ctx, span := s.start(ctx, "Update",
		attribute.String("row.id", id),
		attribute.StringSlice("set", set.Columns()),
		attribute.StringSlice("remove", remove),
	)
	err := s.inner.Update(ctx, id, set, remove)
	finish(span, err)
	return err
}

func (s *TracedStore) Delete(ctx context.Context, id string) error {
	ctx, span := s.start(ctx, "Delete", attribute.String("row.id", id))
	err := s.inner.Delete(ctx, id)
	finish(span, err)
	return err
}
