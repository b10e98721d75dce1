//go:build !unix && !windows

package store

import "os"

func platformLock(*os.File) error {
	return errLockUnsupported
}

func platformUnlock(*os.File) error {
	return nil
}
