// Package telemetry records printer state into InfluxDB.
//
// The recorder registers as the session's update consumer: every parsed
// report that carries printer state becomes one measurement point,
// tagged with the device serial. Writes are non-blocking and batched by
// the client library; asynchronous write failures surface through an
// error callback, typically wired to the application logger.
//
// Recording is optional. When disabled in configuration the recorder is
// simply never constructed and the session runs without a consumer.
package telemetry
