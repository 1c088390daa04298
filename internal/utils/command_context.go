package utils

import (
	"context"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	executionEngineContextKeyConstant       = commandContextKey("executionEngine")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// WithExecutionEngine attaches the shared execution engine to the provided context.
func (accessor CommandContextAccessor) WithExecutionEngine(parentContext context.Context, engine *execshell.ExecutionEngine) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, executionEngineContextKeyConstant, engine)
}

// ExecutionEngine extracts the execution engine from the provided context.
func (accessor CommandContextAccessor) ExecutionEngine(executionContext context.Context) (*execshell.ExecutionEngine, bool) {
	if executionContext == nil {
		return nil, false
	}
	engine, engineAvailable := executionContext.Value(executionEngineContextKeyConstant).(*execshell.ExecutionEngine)
	if !engineAvailable || engine == nil {
		return nil, false
	}
	return engine, true
}
