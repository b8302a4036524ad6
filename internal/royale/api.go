package royale

import "context"

// API defines the raw HTTP access the fetch coordinator needs from the game API.
// Callers see bytes, not typed responses; decoding and caching happen above this layer.
type API interface {
	GetJSON(ctx context.Context, url string) ([]byte, error)

	// API call tracking
	GetAPICallCount() int64
	ResetAPICallCount()
}
