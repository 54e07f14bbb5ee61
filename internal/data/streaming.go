package data

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/csv"
)

// StreamingReader yields a large CSV file as a sequence of frames of at most
// batchSize rows. Column types not pinned by opts.Kinds are inferred from the
// first batchSize records; a later value that does not fit its column's type
// fails the batch.
type StreamingReader struct {
	file      *os.File
	reader    *csv.Reader
	opts      CSVOptions
	batchSize int
}

func NewStreamingReader(filename string, batchSize int, opts CSVOptions) (*StreamingReader, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	schema, err := InferSchema(file, opts, batchSize)
	if err != nil {
		file.Close()
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	return &StreamingReader{
		file:      file,
		reader:    csv.NewReader(file, schema, opts.readerOptions(batchSize)...),
		opts:      opts,
		batchSize: batchSize,
	}, nil
}

// ReadBatch returns the next batch, or io.EOF when the file is exhausted.
// The caller releases the returned frame.
func (sr *StreamingReader) ReadBatch() (*Frame, error) {
	if !sr.reader.Next() {
		if err := sr.reader.Err(); err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading batch: %w", err)
		}
		return nil, io.EOF
	}

	return finishRecord(sr.reader.Record(), sr.opts)
}

func (sr *StreamingReader) Close() error {
	sr.reader.Release()
	return sr.file.Close()
}

// ProcessLargeFile streams filename through processor one batch at a time.
// Each batch is released after processor returns.
func ProcessLargeFile(filename string, batchSize int, opts CSVOptions, processor func(*Frame) error) error {
	reader, err := NewStreamingReader(filename, batchSize, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	batchNum := 0
	for {
		batch, err := reader.ReadBatch()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading batch %d: %w", batchNum, err)
		}

		err = processor(batch)
		batch.Release()
		if err != nil {
			return fmt.Errorf("error processing batch %d: %w", batchNum, err)
		}

		batchNum++
	}

	return nil
}
