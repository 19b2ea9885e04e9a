package populator

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrUnsupportedRequest matches every ContractError.
var ErrUnsupportedRequest = errors.New("unsupported request")

// ContractError reports that the populator was called with something it cannot handle, such as
// a request of an unknown type or a nil next stage. It is returned before any extraction happens.
type ContractError struct {
	// Got is the dynamic type of the rejected value.
	Got    string
	Reason string
}

func newContractError(got any, reason string) error {
	return errors.WithStack(&ContractError{
		Got:    fmt.Sprintf("%T", got),
		Reason: reason,
	})
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("populator contract violation: %s (got %s)", e.Reason, e.Got)
}

func (e *ContractError) Is(target error) bool {
	return target == ErrUnsupportedRequest
}
