// Package infra groups the adapters behind the core interfaces: file and
// database repositories, metrics sinks, the MQTT results publisher, Sentry
// monitoring and the logger backends. Each adapter registers itself with the
// core factories on import.
package infra
