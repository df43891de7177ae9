package teamstamp

// Worker pool sizing constants.
const (
	// DefaultWorkers is the number of documents composited at once for one
	// team. Each worker runs two external processes.
	DefaultWorkers = 4

	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent compositor pipelines to limit memory
	// (ImageMagick can hold several hundred MB per rasterized document).
	MaxPoolSize = 16
)

// ResolvePoolSize determines the number of compositing workers.
// Priority: explicit workers > DefaultWorkers. The result is clamped to
// [MinPoolSize, MaxPoolSize].
// Exported for use by CLIs.
func ResolvePoolSize(workers int) int {
	n := workers
	if n <= 0 {
		n = DefaultWorkers
	}
	return clampPoolSize(n)
}

// ResolveRecipientWorkers determines how many teams are processed at once.
// Zero or negative means one team at a time, in table order.
func ResolveRecipientWorkers(workers int) int {
	if workers <= 0 {
		return MinPoolSize
	}
	return clampPoolSize(workers)
}

func clampPoolSize(n int) int {
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
