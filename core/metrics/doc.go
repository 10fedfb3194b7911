// Package metrics defines the sinks that observe handled trip requests.
// Implementations (Prometheus, InfluxDB, MQTT) register themselves by type
// name and are built from configuration with NewSink; several configured
// sinks are combined in a MultiSink.
package metrics
