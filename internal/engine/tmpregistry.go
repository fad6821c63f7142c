package engine

import (
	"os"
	"sync"
)

// In-flight temporary copy files, removed on run teardown so an aborted
// run does not strand tmp files inside the working snapshot.
var (
	tmpMu    sync.Mutex
	tmpFiles = make(map[string]struct{})
)

// RegisterTmp records a temporary file until its copy completes.
func RegisterTmp(path string) {
	tmpMu.Lock()
	tmpFiles[path] = struct{}{}
	tmpMu.Unlock()
}

// DeregisterTmp forgets a temporary file once it has been renamed or removed.
func DeregisterTmp(path string) {
	tmpMu.Lock()
	delete(tmpFiles, path)
	tmpMu.Unlock()
}

// CleanupTmpFiles removes every still-registered temporary file.
func CleanupTmpFiles() {
	tmpMu.Lock()
	paths := make([]string, 0, len(tmpFiles))
	for p := range tmpFiles {
		paths = append(paths, p)
	}
	clear(tmpFiles)
	tmpMu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
