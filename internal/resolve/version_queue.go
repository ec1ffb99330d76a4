package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
)

// candidateLister fetches every version a Source advertises for a
// package name. It is supplied by the caller so versionQueue itself
// stays source-agnostic; listing is deferred until actually needed so a
// locked or preferred version can often satisfy a dependency without
// ever touching the network.
type candidateLister func(name string) ([]*semver.Version, error)

type failedVersion struct {
	v *semver.Version
	f error
}

// versionQueue lazily enumerates candidate versions for one package
// name, trying a locked version first, then a preferred version, and
// only falling back to a full listing once both are exhausted.
// Minimal-versions mode sorts ascending instead of the library's usual
// descending order; see minimal on newVersionQueue.
type versionQueue struct {
	name         string
	pi           []*semver.Version
	lockv, prefv *semver.Version
	fails        []failedVersion
	list         candidateLister
	minimal      bool
	allLoaded    bool
}

func newVersionQueue(name string, lockv, prefv *semver.Version, minimal bool, list candidateLister) (*versionQueue, error) {
	vq := &versionQueue{name: name, list: list, minimal: minimal}

	if lockv != nil {
		vq.lockv = lockv
		vq.pi = append(vq.pi, lockv)
	}
	if prefv != nil && (lockv == nil || !prefv.Equal(lockv)) {
		vq.prefv = prefv
		vq.pi = append(vq.pi, prefv)
	}

	if len(vq.pi) == 0 {
		var err error
		vq.pi, err = vq.loadAll()
		if err != nil {
			return nil, err
		}
		vq.allLoaded = true
	}
	return vq, nil
}

func (vq *versionQueue) loadAll() ([]*semver.Version, error) {
	all, err := vq.list(vq.name)
	if err != nil {
		return nil, err
	}
	sorted := make([]*semver.Version, len(all))
	copy(sorted, all)
	if vq.minimal {
		sort.Sort(semver.Collection(sorted))
	} else {
		sort.Sort(sort.Reverse(semver.Collection(sorted)))
	}
	return sorted, nil
}

func (vq *versionQueue) current() *semver.Version {
	if len(vq.pi) > 0 {
		return vq.pi[0]
	}
	return nil
}

// advance records why the current head failed and moves to the next
// candidate, lazily loading the full candidate list the first time the
// locked/preferred fast path runs dry.
func (vq *versionQueue) advance(fail error) error {
	if len(vq.pi) == 0 {
		return nil
	}

	vq.fails = append(vq.fails, failedVersion{v: vq.pi[0], f: fail})
	vq.pi = vq.pi[1:]

	if len(vq.pi) == 0 {
		if vq.allLoaded {
			return nil
		}
		vq.allLoaded = true
		all, err := vq.loadAll()
		if err != nil {
			return err
		}
		for _, v := range all {
			if (vq.lockv != nil && v.Equal(vq.lockv)) || (vq.prefv != nil && v.Equal(vq.prefv)) {
				continue
			}
			vq.pi = append(vq.pi, v)
		}
	}
	return nil
}

// isExhausted reports definite exhaustion; a false result does not
// guarantee current() is non-nil.
func (vq *versionQueue) isExhausted() bool {
	return vq.allLoaded && len(vq.pi) == 0
}

func (vq *versionQueue) String() string {
	vs := make([]string, len(vq.pi))
	for i, v := range vq.pi {
		vs[i] = v.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(vs, ", "))
}
