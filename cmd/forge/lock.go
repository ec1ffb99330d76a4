package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/theckman/go-flock"
)

const lockPollInterval = 200 * time.Millisecond
const lockStatusEvery = 5 * time.Second

// acquireTargetLock takes the advisory, exclusive lock on targetDir
// that guards a single writer driving the fingerprint store and build
// outputs at a time. Contention blocks, printing a status line every
// lockStatusEvery so a user waiting behind another forge invocation
// sees why nothing is happening yet.
func acquireTargetLock(targetDir string, out *log.Logger) (*flock.Flock, error) {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating target directory %q: %w", targetDir, err)
	}
	fl := flock.NewFlock(filepath.Join(targetDir, ".forge-lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking target directory %q: %w", targetDir, err)
	}
	if locked {
		return fl, nil
	}

	out.Printf("waiting to acquire lock on %s", targetDir)
	lastStatus := time.Now()
	for {
		time.Sleep(lockPollInterval)
		locked, err = fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("locking target directory %q: %w", targetDir, err)
		}
		if locked {
			return fl, nil
		}
		if time.Since(lastStatus) >= lockStatusEvery {
			out.Printf("still waiting on lock held by another forge invocation: %s", targetDir)
			lastStatus = time.Now()
		}
	}
}

// acquireCacheLockShared takes a shared read lock on the package
// cache directory, letting any number of concurrent forge invocations
// hold it at once. forge takes no exclusive lock on the cache: entries
// are written while only this shared lock is held.
func acquireCacheLockShared(cacheDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating package cache directory %q: %w", cacheDir, err)
	}
	fl := flock.NewFlock(filepath.Join(cacheDir, ".forge-cache-lock"))
	for {
		locked, err := fl.TryRLock()
		if err != nil {
			return nil, fmt.Errorf("locking package cache %q: %w", cacheDir, err)
		}
		if locked {
			return fl, nil
		}
		time.Sleep(lockPollInterval)
	}
}
