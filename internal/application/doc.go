// Package application wires configuration, logging, the validation pipe and
// the HTTP router into a runnable server. It owns the startup sequence: New
// installs the global policies and Start binds the listener and announces the
// running service.
package application
