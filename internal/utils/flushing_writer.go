package utils

import (
	"io"
	"sync"
)

const lineTerminatorConstant = '\n'

// FlushingWriter makes written data visible immediately by invoking Flush when the underlying writer supports it.
// It also remembers whether the last written byte ended a line.
type FlushingWriter struct {
	writer          io.Writer
	mutex           sync.Mutex
	wroteAnything   bool
	endsWithNewline bool
}

// NewFlushingWriter wraps the provided writer and flushes it after each write when the writer supports flushing.
func NewFlushingWriter(writer io.Writer) *FlushingWriter {
	if existingWriter, alreadyWrapped := writer.(*FlushingWriter); alreadyWrapped {
		return existingWriter
	}
	return &FlushingWriter{writer: writer}
}

// Write delegates to the underlying writer and flushes it when possible.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return len(data), nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	return flushingWriter.writeLocked(data)
}

// WriteString writes text as a single flushed write.
func (flushingWriter *FlushingWriter) WriteString(text string) (int, error) {
	return flushingWriter.Write([]byte(text))
}

// TerminateLine writes a newline unless nothing was written or the output already ends with one.
func (flushingWriter *FlushingWriter) TerminateLine() error {
	if flushingWriter == nil || flushingWriter.writer == nil {
		return nil
	}

	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	if !flushingWriter.wroteAnything || flushingWriter.endsWithNewline {
		return nil
	}
	_, writeError := flushingWriter.writeLocked([]byte{lineTerminatorConstant})
	return writeError
}

func (flushingWriter *FlushingWriter) writeLocked(data []byte) (int, error) {
	bytesWritten, writeError := flushingWriter.writer.Write(data)
	if bytesWritten > 0 {
		flushingWriter.wroteAnything = true
		flushingWriter.endsWithNewline = data[bytesWritten-1] == lineTerminatorConstant
	}
	if writeError != nil {
		return bytesWritten, writeError
	}

	if flushableWriter, implementsFlush := flushingWriter.writer.(interface{ Flush() error }); implementsFlush {
		if flushError := flushableWriter.Flush(); flushError != nil {
			return bytesWritten, flushError
		}
	}

	return bytesWritten, nil
}
