package csvscan

import (
	"sync/atomic"
	"time"
)

// ScanCounters accumulates per-job bookkeeping shared by every range scanner
// of one logical scan. All fields are updated atomically, so one counter set
// may be handed to multiple Scanner instances working different ranges of the
// same job. The filtered-row count doubles as the gate for bounded error
// reporting: reporting stops at the cap while counting continues.
type ScanCounters struct {
	rowsFiltered atomic.Int64
	bytesRead    atomic.Int64
	fileReads    atomic.Int64
	readNanos    atomic.Int64
	fillNanos    atomic.Int64
}

// NewScanCounters creates an empty counter set.
func NewScanCounters() *ScanCounters {
	return &ScanCounters{}
}

// RowsFiltered returns the number of rows rejected so far.
func (c *ScanCounters) RowsFiltered() int64 {
	return c.rowsFiltered.Load()
}

// BytesRead returns the number of bytes consumed from all byte sources.
func (c *ScanCounters) BytesRead() int64 {
	return c.bytesRead.Load()
}

// FileReads returns the number of fill operations issued against sources.
func (c *ScanCounters) FileReads() int64 {
	return c.fileReads.Load()
}

// ReadTime returns the accumulated time spent reading from byte sources.
func (c *ScanCounters) ReadTime() time.Duration {
	return time.Duration(c.readNanos.Load())
}

// FillTime returns the accumulated time spent converting fields into columns.
func (c *ScanCounters) FillTime() time.Duration {
	return time.Duration(c.fillNanos.Load())
}

// filterRow counts one rejected row and returns the count before the
// increment, which callers compare against the reporting cap.
func (c *ScanCounters) filterRow() int64 {
	return c.rowsFiltered.Add(1) - 1
}

func (c *ScanCounters) addBytesRead(n int64) {
	c.bytesRead.Add(n)
}

func (c *ScanCounters) addReadTime(d time.Duration) {
	c.readNanos.Add(int64(d))
}

func (c *ScanCounters) addFillTime(d time.Duration) {
	c.fillNanos.Add(int64(d))
}
