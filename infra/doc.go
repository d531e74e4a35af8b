// Package infra holds the adapters of the hub service: the zerolog
// logger, metrics sinks, the MQTT event publisher and Sentry reporting.
// These packages depend only on the interfaces defined in core.
package infra
