package execshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/transform"
)

const (
	drainReadBufferSizeConstant        = 32 * 1024
	emptyStreamNameMessageConstant     = "stream name cannot be empty"
	nilStreamReaderMessageConstant     = "stream reader cannot be nil"
	drainReadErrorTemplateConstant     = "failed to read %s: %w"
	drainStartedMessageConstant        = "stream drain started"
	drainFinishedMessageConstant       = "stream drain finished"
	drainFailedMessageConstant         = "stream drain failed"
	logFieldStreamNameConstant         = "stream"
	logFieldCapturedCharactersConstant = "captured_characters"
)

// TextDrain continuously reads one pipe to end-of-stream, decoding it into text.
//
// The content becomes final once Done is closed. Snapshot may be called at any
// time and returns what has been accumulated so far.
type TextDrain struct {
	streamName string
	reader     io.Reader
	logger     *zap.Logger

	startOnce  sync.Once
	completion chan struct{}

	bufferMutex sync.Mutex
	buffer      strings.Builder
	readError   error
}

// NewTextDrain prepares a drain for the supplied reader. The drain does not read until Start is called.
func NewTextDrain(streamName string, reader io.Reader, textEncoding TextEncoding, logger *zap.Logger) (*TextDrain, error) {
	trimmedStreamName := strings.TrimSpace(streamName)
	if len(trimmedStreamName) == 0 {
		return nil, InvalidArgumentError{Reason: emptyStreamNameMessageConstant}
	}
	if reader == nil {
		return nil, InvalidArgumentError{Reason: nilStreamReaderMessageConstant}
	}

	resolvedEncoding, encodingError := ResolveTextEncoding(textEncoding)
	if encodingError != nil {
		return nil, encodingError
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &TextDrain{
		streamName: trimmedStreamName,
		reader:     transform.NewReader(reader, resolvedEncoding.NewDecoder()),
		logger:     logger,
		completion: make(chan struct{}),
	}, nil
}

// Start begins asynchronous consumption of the stream. Subsequent calls have no effect.
func (drain *TextDrain) Start() {
	drain.startOnce.Do(func() {
		go drain.consume()
	})
}

// Done is closed once the stream reached end-of-stream or failed.
func (drain *TextDrain) Done() <-chan struct{} {
	return drain.completion
}

// AwaitContent blocks until the drain completes or the context ends.
// On completion it returns the full decoded content and the read failure, if any.
// When the context ends first it returns the partial content and the context error.
func (drain *TextDrain) AwaitContent(executionContext context.Context) (string, error) {
	select {
	case <-drain.completion:
		drain.bufferMutex.Lock()
		defer drain.bufferMutex.Unlock()
		return drain.buffer.String(), drain.readError
	case <-executionContext.Done():
		return drain.Snapshot(), executionContext.Err()
	}
}

// Snapshot returns the content accumulated so far without waiting for completion.
func (drain *TextDrain) Snapshot() string {
	drain.bufferMutex.Lock()
	defer drain.bufferMutex.Unlock()
	return drain.buffer.String()
}

func (drain *TextDrain) consume() {
	defer close(drain.completion)

	drain.logger.Debug(drainStartedMessageConstant, zap.String(logFieldStreamNameConstant, drain.streamName))

	readBuffer := make([]byte, drainReadBufferSizeConstant)
	for {
		bytesRead, readError := drain.reader.Read(readBuffer)
		if bytesRead > 0 {
			drain.bufferMutex.Lock()
			drain.buffer.Write(readBuffer[:bytesRead])
			drain.bufferMutex.Unlock()
		}

		if readError == nil {
			continue
		}

		if !isEndOfStream(readError) {
			drain.bufferMutex.Lock()
			drain.readError = fmt.Errorf(drainReadErrorTemplateConstant, drain.streamName, readError)
			drain.bufferMutex.Unlock()
			drain.logger.Debug(drainFailedMessageConstant, zap.String(logFieldStreamNameConstant, drain.streamName), zap.Error(readError))
			return
		}

		drain.logger.Debug(
			drainFinishedMessageConstant,
			zap.String(logFieldStreamNameConstant, drain.streamName),
			zap.Int(logFieldCapturedCharactersConstant, len(drain.Snapshot())),
		)
		return
	}
}

// isEndOfStream treats a closed pipe as a normal end of stream.
func isEndOfStream(readError error) bool {
	return errors.Is(readError, io.EOF) || errors.Is(readError, os.ErrClosed)
}
