package memory

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/process"
)

// Process measures the resident memory of one process
type Process struct {
	proc *process.Process
}

// Self returns a probe for the current process
func Self() (*Process, error) {
	return ForPID(os.Getpid())
}

// ForPID returns a probe for pid
func ForPID(pid int) (*Process, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return &Process{proc: proc}, nil
}

// Percent returns the share of system memory held by the process, in percent
func (p *Process) Percent() (float64, error) {
	pct, err := p.proc.MemoryPercent()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory percent: %w", err)
	}
	return float64(pct), nil
}

// RSS returns the resident set size in bytes
func (p *Process) RSS() (uint64, error) {
	info, err := p.proc.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return info.RSS, nil
}

// Fixed is a constant pressure reading, for configurations that always or
// never flush
type Fixed float64

// Percent returns the fixed value
func (f Fixed) Percent() (float64, error) {
	return float64(f), nil
}
