// Package scheduler walks a unitgraph.Graph in dependency order,
// running each dirty unit's compile step through a pool of
// jobserver-gated workers and emitting structured, machine-readable
// progress messages instead of prose logging: every event carries a
// "reason" discriminator.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/forgebuild/forge/internal/executor"
	"github.com/forgebuild/forge/internal/fingerprint"
	"github.com/forgebuild/forge/internal/forgeerr"
	"github.com/forgebuild/forge/internal/jobserver"
	"github.com/forgebuild/forge/internal/unitgraph"
)

// Compiler turns one Unit into a subprocess Invocation.
type Compiler func(u unitgraph.Unit) executor.Invocation

// FreshnessCheck computes the Record a fresh build of u would produce,
// and the DirtyReason comparing it against u's last recorded Record
// (and against depsDirty, whether any of u's dependencies rebuilt).
type FreshnessCheck func(u unitgraph.Unit, depsDirty bool) (fingerprint.Record, fingerprint.DirtyReason)

// Options configures one Run.
type Options struct {
	Graph     *unitgraph.Graph
	Jobs      *jobserver.Server
	Exec      executor.Executor
	Store     *fingerprint.Store
	Compile   Compiler
	Check     FreshnessCheck
	KeepGoing bool
	OnMessage func(Message)
}

// Message is one structured progress event.
type Message struct {
	Reason string `json:"reason"`
	Unit   string `json:"unit"`
	Fresh  bool   `json:"fresh,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is Run's outcome.
type Result struct {
	Built []unitgraph.Key
	Err   error
}

// Run executes every Unit in opts.Graph in topological order. Units
// with no remaining unbuilt dependency are handed to a worker pool
// sized to the jobserver's capacity; a unit whose own fingerprint
// matches its last recorded one is reported fresh and skipped without
// consuming a job token. A unit downstream of a failed one is reported
// skipped rather than run. Without KeepGoing, Run stops handing out
// new work as soon as the first failure is recorded, though units
// already in flight are allowed to finish.
func Run(ctx context.Context, opts Options) Result {
	g := opts.Graph
	byKey := make(map[unitgraph.Key]unitgraph.Unit, len(g.Units))
	for _, u := range g.Units {
		byKey[u.Key()] = u
	}
	indeg := make(map[unitgraph.Key]int, len(g.Units))
	rdeps := make(map[unitgraph.Key][]unitgraph.Key)
	for key, deps := range g.Deps {
		indeg[key] = len(deps)
		for _, d := range deps {
			rdeps[d] = append(rdeps[d], key)
		}
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		built    []unitgraph.Key
		failed   = make(map[unitgraph.Key]bool)
		rebuilt  = make(map[unitgraph.Key]bool) // dirty units actually recompiled, as opposed to fresh-skipped
		firstErr error
		stopped  bool
	)

	ready := make(chan unitgraph.Key, len(g.Units))
	schedule := func(key unitgraph.Key) {
		wg.Add(1)
		ready <- key
	}

	emit := func(m Message) {
		if opts.OnMessage != nil {
			opts.OnMessage(m)
		}
	}

	advance := func(key unitgraph.Key) {
		mu.Lock()
		var newlyReady []unitgraph.Key
		for _, next := range rdeps[key] {
			indeg[next]--
			if indeg[next] == 0 {
				newlyReady = append(newlyReady, next)
			}
		}
		mu.Unlock()
		for _, k := range newlyReady {
			schedule(k)
		}
	}

	recordFailure := func(key unitgraph.Key, err error) {
		mu.Lock()
		failed[key] = true
		if firstErr == nil {
			firstErr = err
		}
		if !opts.KeepGoing {
			stopped = true
		}
		mu.Unlock()
	}

	// recordCancel marks the run stopped unconditionally, ignoring
	// KeepGoing: a host cancellation short-circuits the scheduler
	// outright rather than letting keep-going finish everything
	// already dispatched before the cancel arrived.
	recordCancel := func() {
		mu.Lock()
		if firstErr == nil {
			firstErr = forgeerr.Cancelled
		}
		stopped = true
		mu.Unlock()
	}

	process := func(key unitgraph.Key) {
		defer wg.Done()
		u := byKey[key]

		if ctx.Err() != nil {
			recordCancel()
			emit(Message{Reason: "cancelled", Unit: u.String()})
			return
		}

		mu.Lock()
		skip := stopped
		depFailed := false
		for _, d := range g.Deps[key] {
			if failed[d] {
				depFailed = true
				break
			}
		}
		mu.Unlock()
		if skip {
			return
		}

		if depFailed {
			mu.Lock()
			failed[key] = true
			mu.Unlock()
			emit(Message{Reason: "skipped", Unit: u.String(), Error: "dependency failed"})
			advance(key)
			return
		}

		mu.Lock()
		depsDirty := false
		for _, d := range g.Deps[key] {
			if rebuilt[d] {
				depsDirty = true
				break
			}
		}
		mu.Unlock()

		rec, reason := opts.Check(u, depsDirty)
		if !reason.Dirty() {
			emit(Message{Reason: "fresh", Unit: u.String(), Fresh: true})
			mu.Lock()
			built = append(built, key)
			mu.Unlock()
			advance(key)
			return
		}

		tok, err := opts.Jobs.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				recordCancel()
				emit(Message{Reason: "cancelled", Unit: u.String()})
				return
			}
			recordFailure(key, err)
			emit(Message{Reason: "error", Unit: u.String(), Error: err.Error()})
			advance(key)
			return
		}
		inv := opts.Compile(u)
		res, runErr := opts.Exec.Run(ctx, inv)
		tok.Release()

		if runErr != nil {
			if ctx.Err() != nil {
				recordCancel()
				emit(Message{Reason: "cancelled", Unit: u.String()})
				return
			}
			recordFailure(key, fmt.Errorf("building %s: %w", u, runErr))
			emit(Message{Reason: "compiler-artifact", Unit: u.String(), Error: string(res.Stderr)})
		} else {
			if opts.Store != nil {
				opts.Store.Put(keyString(key), rec)
			}
			mu.Lock()
			built = append(built, key)
			rebuilt[key] = true
			mu.Unlock()
			emit(Message{Reason: "compiler-artifact", Unit: u.String()})
		}
		advance(key)
	}

	for _, u := range g.SortedUnits() {
		if indeg[u.Key()] == 0 {
			schedule(u.Key())
		}
	}

	workers := int(opts.Jobs.Capacity())
	if workers < 1 {
		workers = 1
	}
	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for key := range ready {
				process(key)
			}
		}()
	}

	wg.Wait()
	close(ready)
	workerWG.Wait()

	return Result{Built: built, Err: firstErr}
}

func keyString(k unitgraph.Key) string {
	return fmt.Sprintf("%s@%s/%s/%s/%s/%s", k.Package.Name, k.Package.Version, k.Target, k.Profile, k.Compile, k.Mode)
}
