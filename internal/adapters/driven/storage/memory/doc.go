// Package memory provides in-memory implementations of driven port
// interfaces: the token store used at runtime and a config store for tests.
package memory
