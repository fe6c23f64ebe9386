//go:build !unix

package engine

import "os"

// acquireDirLock is a no-op on non-unix targets; golang.org/x/sys/unix has
// no flock equivalent there.
func acquireDirLock(dir string) (*os.File, error) { return nil, nil }

func releaseDirLock(f *os.File) {}
