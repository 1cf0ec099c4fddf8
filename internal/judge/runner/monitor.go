package runner

import (
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const samplePeriod = 10 * time.Millisecond

// watchMemory samples the resident set size of pid and all of its
// descendants every samplePeriod until done is closed, then delivers
// the observed peak on the returned channel. If limit is positive and
// the sample exceeds it, onExceed is invoked once; sampling continues
// so the final peak is still reported.
func watchMemory(done <-chan struct{}, pid int32, limit int64, onExceed func()) <-chan int64 {
	peakCh := make(chan int64, 1)
	go func() {
		var peak int64
		exceeded := false
		proc, err := process.NewProcess(pid)
		if err != nil {
			peakCh <- 0
			return
		}
		ticker := time.NewTicker(samplePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				peakCh <- peak
				return
			case <-ticker.C:
				sample := treeRSS(proc)
				if sample > peak {
					peak = sample
				}
				if limit > 0 && peak > limit && !exceeded {
					exceeded = true
					if onExceed != nil {
						onExceed()
					}
				}
			}
		}
	}()
	return peakCh
}

// treeRSS sums the RSS of a process and its descendants. Processes that
// exit between enumeration and sampling are silently skipped.
func treeRSS(proc *process.Process) int64 {
	var total int64
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		total += int64(mem.RSS)
	}
	children, err := proc.Children()
	if err != nil {
		return total
	}
	for _, child := range children {
		total += treeRSS(child)
	}
	return total
}
