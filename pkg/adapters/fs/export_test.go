package fs

// StopWatchLoop ends the running watch loop without closing the repository,
// the way a failing fsnotify watcher would, and waits for it to exit.
func (r *Repository) StopWatchLoop() {
	r.mu.Lock()
	cancel, done := r.watchCancel, r.watchDone
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
