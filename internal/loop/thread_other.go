//go:build !linux

package loop

// threadID is unavailable; OnLoopThread falls back to the bound flag.
func threadID() int64 {
	return 0
}
