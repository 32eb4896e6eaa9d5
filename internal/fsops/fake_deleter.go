package fsops

import "sync"

// FakeDeleter implements Deleter for testing
// Records all delete calls without performing actual deletions
type FakeDeleter struct {
	mu    sync.Mutex
	Calls []string
	// Errors maps a path to the error Remove returns for it.
	Errors map[string]error
}

func (f *FakeDeleter) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, path)
	if err, ok := f.Errors[path]; ok {
		return err
	}
	return nil
}

// Removed returns a copy of the recorded paths.
func (f *FakeDeleter) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}
