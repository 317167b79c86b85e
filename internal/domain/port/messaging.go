package port

import (
	"context"

	"github.com/fiapx/chromakey-processing-service/internal/domain/entity"
)

type StatusPublisher interface {
	PublishStatus(ctx context.Context, status entity.VideoStatusMessage) error
}

// DLQPublisher receives the undecoded message body so it can be replayed as is.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

type FailureNotice struct {
	UserEmail string
	JobID     string
	VideoKey  string
	Reason    string
}

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, notice FailureNotice) error
}
