// Package infra contains technical adapters such as the zerolog logger,
// metrics and history sinks, the MQTT publisher and Sentry monitoring.
// These packages should depend only on the interfaces defined in the core
// packages.
package infra
