package blackboard

import (
	"fmt"
	"os"
	"time"
)

// acquireFileLock implements an advisory file lock: an O_EXCL-created
// lock file with a 5-second default
// acquisition timeout. A lock file older than staleAfter is treated as
// abandoned (its owning process crashed without cleaning up) and is
// reclaimed rather than waited out forever.
const staleAfter = 30 * time.Second

func acquireFileLock(path string, timeout time.Duration) (release func(), err error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > staleAfter {
			os.Remove(path) // reclaim an abandoned lock, retry immediately
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("blackboard: lock %s not acquired within %s", path, timeout)
		}
		time.Sleep(25 * time.Millisecond)
	}
}
