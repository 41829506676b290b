package audio

// Drain reads from ch until the channel is closed, discarding all values.
// Use this to prevent goroutine leaks when a consumer abandons a streaming
// channel mid-stream (e.g. during shutdown).
func Drain[T any](ch <-chan T) {
	for range ch {
	}
}
