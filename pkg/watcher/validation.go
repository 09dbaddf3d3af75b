package watcher

import (
	"strings"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
)

// ValidateServiceSpec validates a service specification
func ValidateServiceSpec(spec ServiceSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return errors.NewValidationError("service name cannot be empty", nil)
	}

	if strings.TrimSpace(spec.Command) == "" {
		return errors.NewValidationError("check command cannot be empty", nil).WithContext("service", spec.Name)
	}

	if spec.RefreshInterval <= 0 {
		return errors.NewValidationError("refresh interval must be positive", nil).WithContext("service", spec.Name)
	}

	if spec.ServicePort <= 0 || spec.ServicePort > 65535 {
		return errors.NewValidationError("service port must be between 1 and 65535", nil).WithContext("service", spec.Name)
	}

	if !strings.HasPrefix(spec.RegistrationPath, "/") {
		return errors.NewValidationError("registration path must be absolute", nil).WithContext("service", spec.Name)
	}

	if strings.HasSuffix(spec.RegistrationPath, "/") {
		return errors.NewValidationError("registration path cannot end with a slash", nil).WithContext("service", spec.Name)
	}

	return nil
}

// ValidateOptions validates watcher run options
func ValidateOptions(options Options) error {
	if options.Tick < 0 {
		return errors.NewValidationError("tick cannot be negative", nil)
	}

	if options.CheckTimeout < 0 {
		return errors.NewValidationError("check timeout cannot be negative", nil)
	}

	return nil
}
