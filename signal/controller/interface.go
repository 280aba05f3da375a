package controller

import (
	"context"

	"github.com/ashwaniclecvdoc/vc-backend-scale/pkg/socket"
)

// Processor serves one socket until it is closed or ctx is done.
type Processor interface {
	Process(ctx context.Context, s socket.Socket) error
}
