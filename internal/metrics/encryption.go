package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EncryptionSnapshot is a point-in-time reading of the field cipher counters.
type EncryptionSnapshot struct {
	Active      bool
	Rotating    bool
	Encryptions int64
	Decryptions int64
	Errors      int64
}

// RegisterEncryptionObservers exports the field cipher counters as observable
// instruments. source is called once per collection.
func RegisterEncryptionObservers(
	meterProvider metric.MeterProvider,
	namespace string,
	source func() EncryptionSnapshot,
) error {
	meter := meterProvider.Meter(namespace)

	fieldOps, err := meter.Int64ObservableCounter(
		fmt.Sprintf("%s_field_operations_total", namespace),
		metric.WithDescription("Field encryptions, decryptions and failures since start"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create field operations counter: %w", err)
	}

	keyState, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_encryption_key_state", namespace),
		metric.WithDescription("1 if the labelled key state holds, else 0"),
	)
	if err != nil {
		return fmt.Errorf("failed to create key state gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		snap := source()
		o.ObserveInt64(fieldOps, snap.Encryptions, metric.WithAttributes(attrKind("encrypt")))
		o.ObserveInt64(fieldOps, snap.Decryptions, metric.WithAttributes(attrKind("decrypt")))
		o.ObserveInt64(fieldOps, snap.Errors, metric.WithAttributes(attrKind("error")))
		o.ObserveInt64(keyState, boolToInt(snap.Active), metric.WithAttributes(attrState("active")))
		o.ObserveInt64(keyState, boolToInt(snap.Rotating), metric.WithAttributes(attrState("rotating")))
		return nil
	}, fieldOps, keyState)
	if err != nil {
		return fmt.Errorf("failed to register encryption callback: %w", err)
	}
	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func attrKind(kind string) attribute.KeyValue {
	return attribute.String("kind", kind)
}

func attrState(state string) attribute.KeyValue {
	return attribute.String("state", state)
}
