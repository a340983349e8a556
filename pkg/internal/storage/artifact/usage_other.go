//go:build !unix

package artifact

import "errors"

// Usage 在非 unix 平台不可用.
func (l *Local) Usage() (Usage, error) {
	return Usage{}, errors.New("disk usage not supported on this platform")
}
