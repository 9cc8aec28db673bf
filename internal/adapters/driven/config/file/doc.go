// Package file provides the TOML configuration store kept under
// ~/.unifiedhub, plus the atomic write helper shared with token storage.
package file
