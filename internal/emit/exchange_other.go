//go:build !linux

package emit

import "errors"

func (osFS) Exchange(a, b string) error { return errors.ErrUnsupported }
