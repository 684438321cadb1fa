// Package retry wraps fallible operations with classified, bounded,
// exponentially backed-off retry.
//
// Transient failures (connection refused, timeouts) are worth retrying;
// authentication failures are not — retrying a wrong access code only
// delays the inevitable. Operations signal the latter by wrapping their
// error with Permanent, which stops the loop immediately.
//
// # Usage
//
//	policy := retry.FromConfig(cfg.MQTT.Reconnect)
//	err := retry.Do(ctx, policy, func(ctx context.Context) error {
//	    return session.Connect(ctx)
//	})
package retry
