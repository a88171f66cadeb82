package services

import "context"

// persistentContext keeps request values but drops cancellation, so side
// effects that follow a committed write are not cut short when the client
// disconnects.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
