// Package infra holds the adapters behind the core interfaces: the reference
// plant and MQTT simulator backends, metrics sinks, loggers and Sentry.
// Nothing under core imports these packages; they register themselves in
// the core factory registries.
package infra
