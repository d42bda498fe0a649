package run

import (
	"fmt"

	"gauntlet/pkg/logging"
)

// Guard brackets a run body with state cleanup. Whatever the body does,
// names it introduced into the store are cleared before control returns,
// so a crashed run never leaks provisioning state into whatever the
// process does next. Only the final status survives under StatusKey.
type Guard struct {
	store          *Store
	ignoreFailures bool
}

// NewGuard creates a guard over the given store. With ignoreFailures set,
// the externally observable status is forced to Success after the true
// outcome has been logged.
func NewGuard(store *Store, ignoreFailures bool) *Guard {
	if store == nil {
		store = DefaultStore
	}
	return &Guard{store: store, ignoreFailures: ignoreFailures}
}

// Run executes body under the guard. Panics inside the body are recovered
// and mapped to a RunError carrying the panic site; they never escape.
// Cleanup always runs and never escalates.
func (g *Guard) Run(body func() (Status, error)) (Status, error) {
	before := make(map[string]struct{})
	for _, name := range g.store.Names() {
		before[name] = struct{}{}
	}

	status, err := g.invoke(body)
	if err != nil {
		status = StatusFailure
	}

	g.store.Set(StatusKey, status)
	g.cleanup(before)

	if g.ignoreFailures && (status != StatusSuccess || err != nil) {
		if err != nil {
			logging.Error("Run", err, "Run failed")
		}
		logging.Warn("Run", "True run status is %s; reporting Success because failures are ignored", status)
		return StatusSuccess, nil
	}

	return status, err
}

func (g *Guard) invoke(body func() (Status, error)) (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			re := newPanicError(r)
			logging.Error("Run", re, "Recovered panic during run")
			status = StatusFailure
			err = re
		}
	}()
	return body()
}

// cleanup removes every name added to the store during the run, except the
// status name. It is best effort: failures are logged, never thrown.
func (g *Guard) cleanup(before map[string]struct{}) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Run", fmt.Errorf("%v", r), "State cleanup panicked")
		}
	}()

	for _, name := range g.store.Names() {
		if name == StatusKey {
			continue
		}
		if _, existed := before[name]; existed {
			continue
		}
		g.store.Delete(name)
		logging.Debug("Run", "Cleared run state %q", name)
	}
}
