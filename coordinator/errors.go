package coordinator

import (
	"errors"
	"fmt"

	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
)

// Below is the Error message for the coordinator. Every failure returned by
// an operation matches exactly one of them with errors.Is.
var (
	ErrEngineNotReady           = errors.New("media engine not ready")
	ErrEngineCallFailed         = errors.New("media engine call failed")
	ErrResourceNotFound         = errors.New("resource not found")
	ErrIncompatibleCapabilities = errors.New("incompatible capabilities")
	ErrDuplicateName            = errors.New("duplicate name")
	ErrInvalidRequest           = errors.New("invalid request")
)

// engineError classifies a failed engine call. The engine cause stays
// reachable through errors.Is.
func engineError(op string, err error) error {
	switch {
	case errors.Is(err, media.ErrNotReady):
		return fmt.Errorf("%s: %w: %w", op, ErrEngineNotReady, err)
	case errors.Is(err, media.ErrTransportNotFound),
		errors.Is(err, media.ErrProducerNotFound),
		errors.Is(err, media.ErrConsumerNotFound):
		return fmt.Errorf("%s: %w: %w", op, ErrResourceNotFound, err)
	case errors.Is(err, media.ErrIncompatibleCapabilities):
		return fmt.Errorf("%s: %w: %w", op, ErrIncompatibleCapabilities, err)
	case errors.Is(err, media.ErrInvalidKind):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidRequest, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrEngineCallFailed, err)
	}
}

// databaseError classifies a failed registry access.
func databaseError(op string, err error) error {
	if database.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrResourceNotFound, err)
	}
	if errors.Is(err, database.ErrNameTaken) {
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicateName, err)
	}
	if errors.Is(err, database.ErrInvalidPresenceTarget) {
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidRequest, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
