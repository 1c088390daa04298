package execshell

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	windowsOperatingSystemConstant     = "windows"
	windowsShellExecutableConstant     = "cmd.exe"
	windowsShellCommandFlagConstant    = "/c"
	posixShellExecutableConstant       = "bash"
	posixShellCommandFlagConstant      = "-c"
	windowsDefaultTextEncodingConstant = "gbk"
	posixDefaultTextEncodingConstant   = "utf-8"
)

// TextEncoding names the character set used to decode child process output.
// Any WHATWG encoding label is accepted.
type TextEncoding string

// Commonly used encodings.
const (
	TextEncodingUTF8 TextEncoding = TextEncoding(posixDefaultTextEncodingConstant)
	TextEncodingGBK  TextEncoding = TextEncoding(windowsDefaultTextEncodingConstant)
)

// ResolveShellInvocation wraps a shell command string in the platform shell invocation.
func ResolveShellInvocation(operatingSystem string, command string) []string {
	if isWindows(operatingSystem) {
		return []string{windowsShellExecutableConstant, windowsShellCommandFlagConstant, command}
	}
	return []string{posixShellExecutableConstant, posixShellCommandFlagConstant, command}
}

// ResolveDefaultTextEncoding returns the console encoding conventionally used by the platform shell.
func ResolveDefaultTextEncoding(operatingSystem string) TextEncoding {
	if isWindows(operatingSystem) {
		return TextEncodingGBK
	}
	return TextEncodingUTF8
}

// ResolveTextEncoding maps an encoding label to its decoder implementation.
func ResolveTextEncoding(textEncoding TextEncoding) (encoding.Encoding, error) {
	trimmedLabel := strings.TrimSpace(string(textEncoding))
	if len(trimmedLabel) == 0 {
		return nil, InvalidArgumentError{Reason: emptyEncodingMessageConstant}
	}

	resolvedEncoding, lookupError := htmlindex.Get(trimmedLabel)
	if lookupError != nil {
		return nil, InvalidArgumentError{Reason: fmt.Sprintf(unsupportedEncodingTemplateConstant, trimmedLabel)}
	}

	return resolvedEncoding, nil
}

func isWindows(operatingSystem string) bool {
	return strings.Contains(strings.ToLower(operatingSystem), windowsOperatingSystemConstant)
}
