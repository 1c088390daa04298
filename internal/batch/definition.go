package batch

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/temirov/runcmd/internal/execshell"
)

const (
	definitionPathRequiredMessageConstant     = "batch definition path must be provided"
	definitionLoadErrorTemplateConstant       = "failed to load batch definition: %w"
	definitionParseErrorTemplateConstant      = "failed to parse batch definition: %w"
	definitionEmptyCommandsMessageConstant    = "batch definition must define at least one command"
	definitionDuplicateNameTemplateConstant   = "batch definition defines duplicate command name %q"
	definitionInvalidCommandTemplateConstant  = "batch command %s: %w"
	definitionNegativeTimeoutTemplateConstant = "batch command %s: timeout cannot be negative"
	definitionDefaultNameTemplateConstant     = "command-%d"
)

// Definition describes the commands executed by a batch run.
type Definition struct {
	Defaults DefinitionDefaults  `yaml:"defaults"`
	Commands []CommandDefinition `yaml:"commands"`
}

// DefinitionDefaults supplies values for commands that omit them.
type DefinitionDefaults struct {
	Timeout  time.Duration `yaml:"timeout"`
	Encoding string        `yaml:"encoding"`
}

// CommandDefinition describes one command. Exactly one of Shell or Arguments must be set.
type CommandDefinition struct {
	Name      string        `yaml:"name"`
	Shell     string        `yaml:"shell"`
	Arguments []string      `yaml:"argv"`
	Timeout   time.Duration `yaml:"timeout"`
	Encoding  string        `yaml:"encoding"`
}

// LoadDefinition reads a batch definition from disk and validates it.
func LoadDefinition(filePath string) (Definition, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Definition{}, errors.New(definitionPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Definition{}, fmt.Errorf(definitionLoadErrorTemplateConstant, readError)
	}

	return ParseDefinition(contentBytes)
}

// ParseDefinition decodes and validates a batch definition. Unnamed commands are
// named after their one-based position.
func ParseDefinition(contentBytes []byte) (Definition, error) {
	var definition Definition
	if unmarshalError := yaml.Unmarshal(contentBytes, &definition); unmarshalError != nil {
		return Definition{}, fmt.Errorf(definitionParseErrorTemplateConstant, unmarshalError)
	}

	if len(definition.Commands) == 0 {
		return Definition{}, errors.New(definitionEmptyCommandsMessageConstant)
	}

	definition.Defaults.Encoding = strings.TrimSpace(definition.Defaults.Encoding)

	seenNames := make(map[string]struct{}, len(definition.Commands))
	for commandIndex := range definition.Commands {
		commandDefinition := &definition.Commands[commandIndex]
		commandDefinition.Name = strings.TrimSpace(commandDefinition.Name)
		if len(commandDefinition.Name) == 0 {
			commandDefinition.Name = fmt.Sprintf(definitionDefaultNameTemplateConstant, commandIndex+1)
		}
		if _, exists := seenNames[commandDefinition.Name]; exists {
			return Definition{}, fmt.Errorf(definitionDuplicateNameTemplateConstant, commandDefinition.Name)
		}
		seenNames[commandDefinition.Name] = struct{}{}

		if commandDefinition.Timeout < 0 {
			return Definition{}, fmt.Errorf(definitionNegativeTimeoutTemplateConstant, commandDefinition.Name)
		}
		specification := commandDefinition.Specification(definition.Defaults)
		if validationError := specification.Validate(); validationError != nil {
			return Definition{}, fmt.Errorf(definitionInvalidCommandTemplateConstant, commandDefinition.Name, validationError)
		}
		if len(specification.Encoding) > 0 {
			if _, encodingError := execshell.ResolveTextEncoding(specification.Encoding); encodingError != nil {
				return Definition{}, fmt.Errorf(definitionInvalidCommandTemplateConstant, commandDefinition.Name, encodingError)
			}
		}
	}

	return definition, nil
}

// Specification resolves the command into an execution specification, filling
// missing values from defaults.
func (commandDefinition CommandDefinition) Specification(defaults DefinitionDefaults) execshell.CommandSpecification {
	timeout := commandDefinition.Timeout
	if timeout == 0 {
		timeout = defaults.Timeout
	}

	encoding := strings.TrimSpace(commandDefinition.Encoding)
	if len(encoding) == 0 {
		encoding = defaults.Encoding
	}

	return execshell.CommandSpecification{
		ShellCommand: commandDefinition.Shell,
		Arguments:    append([]string(nil), commandDefinition.Arguments...),
		Timeout:      timeout,
		Encoding:     execshell.TextEncoding(encoding),
	}
}
