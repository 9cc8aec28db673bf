//go:build !unix

package oauth

import "syscall"

// reuseAddrControl is a no-op where SO_REUSEADDR would allow another
// process to take over a bound port.
func reuseAddrControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
