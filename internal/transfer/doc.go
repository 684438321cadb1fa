// Package transfer moves files to and from the device's onboard
// storage over its secure file-transfer channel.
//
// The device speaks FTPS with implicit TLS on its dedicated port and
// presents a self-signed certificate; credentials are the fixed device
// username plus the same access code the messaging channel uses. The
// client here is a thin wrapper over the protocol library: connect,
// upload (from a reader, a byte slice, or a local file, with an
// optional progress callback), list, download, delete, and directory
// operations.
//
// Every remote path argument passes through pathsafe validation before
// it reaches the wire; a rejected path fails the operation without
// touching the connection.
package transfer
