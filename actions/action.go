// Package actions defines the capability contract for agent actions and the
// name-keyed registry the pipeline resolves them from at composition time.
package actions

import (
	"context"

	"github.com/dreaminglucid/eliza/store"
)

// Action is one agent capability. Validate decides whether the action
// applies to the exchange; Execute runs it after the response has been
// delivered and logged.
type Action interface {
	Name() string
	Describe() string
	Validate(ctx context.Context, message store.Memory) (bool, error)
	Execute(ctx context.Context, message store.Memory, responses []store.Memory) error
}
