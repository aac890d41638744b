package application

import "context"

// FrameSource is the capture device boundary. Start begins pushing frames
// onto the queue it was constructed with; Err yields at most one fatal
// device error. The source never retries internally; restart policy belongs
// to the Assistant.
type FrameSource interface {
	Start(ctx context.Context) error
	Stop() error
	Err() <-chan error
	Name() string
}
