package data

type BatchProcessor struct {
	batchSize int
}

func NewBatchProcessor(batchSize int) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &BatchProcessor{batchSize: batchSize}
}

// ProcessBatches hands processFn consecutive row windows of f together with
// the offset of the window's first row.
func (bp *BatchProcessor) ProcessBatches(f *Frame, processFn func(batch *Frame, offset int) error) error {
	totalSamples := f.NumRows()

	for start := 0; start < totalSamples; start += bp.batchSize {
		end := start + bp.batchSize
		if end > totalSamples {
			end = totalSamples
		}

		batch := f.Slice(start, end)
		err := processFn(batch, start)
		batch.Release()
		if err != nil {
			return err
		}
	}

	return nil
}
