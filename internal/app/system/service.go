package system

import "context"

// Service is a background component with a start/stop lifecycle, such as
// the round scheduler or the payout retrier.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
