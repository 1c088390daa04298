package execshell

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

const testShellCommandConstant = "echo hello && echo world"

func TestResolveShellInvocation(testInstance *testing.T) {
	testCases := []struct {
		name              string
		operatingSystem   string
		expectedArguments []string
	}{
		{name: "linux", operatingSystem: "linux", expectedArguments: []string{"bash", "-c", testShellCommandConstant}},
		{name: "darwin", operatingSystem: "darwin", expectedArguments: []string{"bash", "-c", testShellCommandConstant}},
		{name: "windows", operatingSystem: "windows", expectedArguments: []string{"cmd.exe", "/c", testShellCommandConstant}},
		{name: "windows_mixed_case", operatingSystem: "Windows_NT", expectedArguments: []string{"cmd.exe", "/c", testShellCommandConstant}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedArguments, ResolveShellInvocation(testCase.operatingSystem, testShellCommandConstant))
		})
	}
}

func TestResolveDefaultTextEncoding(testInstance *testing.T) {
	require.Equal(testInstance, TextEncodingGBK, ResolveDefaultTextEncoding("windows"))
	require.Equal(testInstance, TextEncodingUTF8, ResolveDefaultTextEncoding("linux"))
}

func TestResolveTextEncoding(testInstance *testing.T) {
	utf8Encoding, utf8Error := ResolveTextEncoding(" UTF-8 ")
	require.NoError(testInstance, utf8Error)
	require.Equal(testInstance, unicode.UTF8, utf8Encoding)

	gbkEncoding, gbkError := ResolveTextEncoding(TextEncodingGBK)
	require.NoError(testInstance, gbkError)
	require.Equal(testInstance, simplifiedchinese.GBK, gbkEncoding)

	_, unknownError := ResolveTextEncoding("ebcdic-martian")
	require.ErrorIs(testInstance, unknownError, ErrInvalidArgument)
	require.ErrorContains(testInstance, unknownError, "ebcdic-martian")

	_, emptyError := ResolveTextEncoding("")
	require.ErrorIs(testInstance, emptyError, ErrInvalidArgument)
}
