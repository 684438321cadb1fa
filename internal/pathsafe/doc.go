// Package pathsafe validates and normalizes remote path arguments
// before they are handed to the device's file-transfer channel.
//
// The device exposes its storage over a protocol with no server-side
// path policing, so every path a user supplies is checked here first:
// traversal sequences, the device's reserved system directories, length
// limits, control and shell-special characters, and hidden files (with
// an allowance for dot-prefixed sliced-model files) all fail with an
// error naming the specific rule that rejected the input.
//
// Usage:
//
//	clean, err := pathsafe.Sanitize("/cache/model.3mf")
//	if err != nil {
//		// err wraps one of the package sentinels, e.g. ErrPathTraversal
//	}
package pathsafe
