package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

type Benchmark struct {
	Warmup         int
	Iterations     int
	ClearCaches    bool
	Timeout        time.Duration
	SampleInterval time.Duration
}

func clearCaches() error {
	switch runtime.GOOS {
	case "linux":
		if err := exec.Command("sync").Run(); err != nil {
			return err
		}
		if err := exec.Command("sh", "-c", "echo 3 | sudo tee /proc/sys/vm/drop_caches").Run(); err != nil {
			return err
		}
		return nil
	case "darwin":
		if err := exec.Command("sync").Run(); err != nil {
			return err
		}
		if err := exec.Command("purge").Run(); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("unable to clear caches for platform '%v'", runtime.GOOS)
}

func (b *Benchmark) clearCachesIfNeeded() {
	if !b.ClearCaches {
		return
	}
	Logger.Info("clear caches")
	if err := clearCaches(); err != nil {
		Logger.Warnf("failed to clear fs caches: %v", err)
	}
}

func (b *Benchmark) WarmupCmd(ctx context.Context, artifact Artifact) error {
	for i := 0; i < b.Warmup; i++ {
		Logger.Infof("running warmup #%v/%v cmd %v", i+1, b.Warmup, artifact.Cmd)
		if _, err := b.runOnce(ctx, artifact); err != nil {
			return fmt.Errorf("warmup #%v failed: %w", i+1, err)
		}
	}
	return nil
}

// Measure executes the artifact Iterations times, one process at a time.
// Iterations that could not start or did not finish in time are skipped;
// an error is returned only when no iteration completed or ctx is done.
func (b *Benchmark) Measure(ctx context.Context, artifact Artifact) ([]Run, error) {
	size, err := artifact.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to measure artifact size: %w", err)
	}
	codeSize := float64(size) / 1024

	runs := make([]Run, 0, b.Iterations)
	var lastErr error
	for i := 0; i < b.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return runs, err
		}
		b.clearCachesIfNeeded()

		Logger.Infof("running iteration #%v/%v cmd %v", i+1, b.Iterations, artifact.Cmd)
		run, err := b.runOnce(ctx, artifact)
		if err != nil {
			Logger.Errorf("iteration #%v failed: %v", i+1, err)
			lastErr = err
			continue
		}
		run.Iteration = i + 1
		run.CodeSize = codeSize
		if run.Failed {
			Logger.Warnf("iteration #%v exited with code %v: %s", i+1, run.ExitCode, bytes.TrimSpace(run.Stderr))
		}
		Logger.Infof(
			"iteration #%v finished: time=%.3fs, startup=%.2fms, memory=%.2fMB",
			i+1, run.ExecutionTime, run.StartupTime, run.MemoryUsage,
		)
		runs = append(runs, run)
	}
	if err := ctx.Err(); err != nil {
		return runs, err
	}
	if len(runs) == 0 && lastErr != nil {
		return nil, fmt.Errorf("no iteration completed: %w", lastErr)
	}
	return runs, nil
}

func (b *Benchmark) runOnce(ctx context.Context, artifact Artifact) (Run, error) {
	if len(artifact.Cmd) == 0 {
		return Run{}, fmt.Errorf("artifact %v has no command", artifact.Path)
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, artifact.Cmd[0], artifact.Cmd[1:]...)
	cmd.Dir = artifact.Dir
	// grandchildren may keep the output pipes open after a kill
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Run{}, fmt.Errorf("failed to start %v: %w", artifact.Cmd[0], err)
	}
	startup := time.Since(start)

	done := make(chan struct{})
	peak := make(chan uint64, 1)
	go func() { peak <- samplePeakMemory(int32(cmd.Process.Pid), b.interval(), done) }()

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	close(done)
	memory := <-peak

	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Run{}, fmt.Errorf("timed out after %v", b.Timeout)
		}
		return Run{}, ctx.Err()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return Run{}, fmt.Errorf("failed to wait for %v: %w", artifact.Cmd[0], waitErr)
	}

	exitCode := cmd.ProcessState.ExitCode()
	return Run{
		ExecutionTime: elapsed.Seconds(),
		StartupTime:   float64(startup.Microseconds()) / 1000,
		MemoryUsage:   float64(memory) / 1024 / 1024,
		ExitCode:      exitCode,
		Failed:        exitCode != 0,
		Stdout:        stdout.Bytes(),
		Stderr:        stderr.Bytes(),
	}, nil
}

func (b *Benchmark) interval() time.Duration {
	if b.SampleInterval <= 0 {
		return 10 * time.Millisecond
	}
	return b.SampleInterval
}

// samplePeakMemory polls the resident set size of pid and its children
// until done is closed and returns the highest observed total.
func samplePeakMemory(pid int32, interval time.Duration, done <-chan struct{}) uint64 {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return 0
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var peak uint64
	for {
		if rss := treeMemory(proc); rss > peak {
			peak = rss
		}
		select {
		case <-done:
			return peak
		case <-ticker.C:
		}
	}
}

func treeMemory(proc *process.Process) uint64 {
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}
	total := info.RSS
	children, err := proc.Children()
	if err != nil {
		return total
	}
	for _, child := range children {
		total += treeMemory(child)
	}
	return total
}
