package project

import (
	"context"

	"go.uber.org/zap"

	"projecthub/pkg/logger"
)

// CustomerValidator checks that a customer reference is valid. It is the
// extension point for a real customer directory.
type CustomerValidator interface {
	Validate(ctx context.Context, customerID int64) error
}

// CustomerValidatorFunc adapts a function to CustomerValidator.
type CustomerValidatorFunc func(ctx context.Context, customerID int64) error

func (f CustomerValidatorFunc) Validate(ctx context.Context, customerID int64) error {
	return f(ctx, customerID)
}

// LoggingCustomerValidator accepts every customer id and only logs it.
type LoggingCustomerValidator struct {
	logger *zap.Logger
}

func NewLoggingCustomerValidator(logger *zap.Logger) *LoggingCustomerValidator {
	return &LoggingCustomerValidator{logger: logger}
}

func (v *LoggingCustomerValidator) Validate(ctx context.Context, customerID int64) error {
	logger.WithTrace(ctx, v.logger).Info("Skipping customer validation, no customer directory configured",
		zap.Int64("customer_id", customerID),
	)
	return nil
}
