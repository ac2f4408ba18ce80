// internal/logger/journal.go
package logger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JournalHeader is the first row of a new journal file.
var JournalHeader = []string{
	"timestamp", "correlation_id", "pool", "base_mint", "quote_mint",
	"fee", "net_quote", "base_amount", "status", "error",
}

// JournalEntry is one migration attempt.
type JournalEntry struct {
	Time          time.Time
	CorrelationID string
	Pool          string
	BaseMint      string
	QuoteMint     string
	Fee           uint64
	NetQuote      uint64
	BaseAmount    uint64
	Status        string
	Err           error
}

func (e JournalEntry) record() []string {
	errText := ""
	if e.Err != nil {
		errText = e.Err.Error()
	}
	return []string{
		e.Time.UTC().Format(time.RFC3339),
		e.CorrelationID,
		e.Pool,
		e.BaseMint,
		e.QuoteMint,
		strconv.FormatUint(e.Fee, 10),
		strconv.FormatUint(e.NetQuote, 10),
		strconv.FormatUint(e.BaseAmount, 10),
		e.Status,
		errText,
	}
}

// Journal appends migration attempts to a CSV file. Safe for concurrent use.
type Journal struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	logger   *zap.Logger
	filePath string

	written uint64
}

// OpenJournal opens (or creates) the journal at filePath.
func OpenJournal(filePath string, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	j := &Journal{
		writer:   csv.NewWriter(file),
		file:     file,
		logger:   logger,
		filePath: filePath,
	}

	if stat.Size() == 0 {
		if err := j.writer.Write(JournalHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	return j, nil
}

// Append writes entry and flushes it to disk.
func (j *Journal) Append(entry JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Write(entry.record()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("csv writer error: %w", err)
	}

	j.written++
	return nil
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("csv writer error on close: %w", err)
	}
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	j.logger.Debug("Journal closed",
		zap.String("file", j.filePath),
		zap.Uint64("written", j.written))
	return nil
}
