package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// streamChunkSize is the read granularity for large files.
	streamChunkSize = 8 * 1024

	// maxStreamFileSize caps any single streamed file.
	maxStreamFileSize = 100 * 1024 * 1024

	// maxConcurrentStreams bounds how many large files stream at once
	// across all in-flight requests.
	maxConcurrentStreams = 8
)

// streamSlots is a process-wide semaphore for large-file reads.
var streamSlots = make(chan struct{}, maxConcurrentStreams)

// streamFile reads a large file in fixed-size chunks under the
// concurrency bound. The caller has already validated the path.
func streamFile(path string) (string, error) {
	streamSlots <- struct{}{}
	defer func() { <-streamSlots }()

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxStreamFileSize {
		return "", fmt.Errorf("file %s is %d bytes, above the %d byte streaming limit", path, info.Size(), maxStreamFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	sb.Grow(int(info.Size()))
	reader := bufio.NewReaderSize(f, streamChunkSize)
	buf := make([]byte, streamChunkSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// StreamStats reports streaming reader utilisation for diagnostics.
type StreamStats struct {
	ActiveStreams int `json:"active_streams"`
	MaxStreams    int `json:"max_streams"`
}

// CurrentStreamStats returns a snapshot of streaming slots in use.
func CurrentStreamStats() StreamStats {
	return StreamStats{ActiveStreams: len(streamSlots), MaxStreams: maxConcurrentStreams}
}
