// Package telemetry provides logging, tracing, metrics, and event publishing
// for brewplan.
//
// # Overview
//
// The package bundles four concerns behind one Telemetry value:
//
//   - structured logging via zerolog, with component child loggers and
//     generation-scoped fields
//   - distributed tracing via OpenTelemetry, with OTLP and stdout exporters
//   - Prometheus metrics for generations, manifests, policy checks, and
//     remote pushes
//   - an in-process event publisher for subscribers interested in the
//     generation lifecycle
//
// # Usage Example
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx := tel.WithContext(context.Background())
//	op := telemetry.StartOperation(ctx, "manifest.compile")
//	err = compile(op.Ctx)
//	op.End(err)
package telemetry
