package port

import "context"

// ClaimGuard serializes in-flight claim submissions for the same user and item
// across service instances.
type ClaimGuard interface {
	// AcquireLock sets key to value if absent, returns false if another holder has it
	AcquireLock(ctx context.Context, key, value string) (bool, error)

	// ReleaseLock deletes key only while it still holds value
	ReleaseLock(ctx context.Context, key, value string) error
}
