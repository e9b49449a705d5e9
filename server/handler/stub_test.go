package handler_test

import (
	"context"

	"github.com/kbukum/authflow/auth/flow"
	"github.com/kbukum/authflow/auth/identity"
	"github.com/kbukum/authflow/errors"
)

type stubFlow struct {
	auth *flow.Authorization
}

func (s stubFlow) Initiate(context.Context, string) (*flow.Authorization, error) {
	return s.auth, nil
}

func (s stubFlow) CompleteCallback(_ context.Context, cb flow.Callback) (*flow.Result, error) {
	return &flow.Result{Status: flow.StatusCancelled, Provider: cb.Provider}, nil
}

func (s stubFlow) Authenticate(context.Context, string) (identity.Identity, error) {
	return identity.Identity{}, errors.Unauthorized("")
}
