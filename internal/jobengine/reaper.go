package jobengine

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/secret"
	"github.com/BootBlock/poshbackup/internal/snapshot"
	"github.com/BootBlock/poshbackup/internal/vss"
)

// Reaper releases every resource a job might be holding — VSS shadows, a
// snapshot session, and a plaintext password — exactly once, on every exit
// path (success, failure, or panic), per spec §4.9 and §4.6's Lifecycle
// rule. Release is independent of the Confirm discipline used on the
// success path.
type Reaper struct {
	Log logr.Logger
	VSS *vss.Coordinator

	once sync.Once
}

// Release tears down vssActive (if true), session (if non-nil) under
// providerName, and zeroes password (if non-nil). Safe to call more than
// once; only the first call has effect.
func (r *Reaper) Release(ctx context.Context, vssActive bool, snapshots *snapshot.Coordinator, providerName string, session *snapshot.Session, password *secret.String) {
	r.once.Do(func() {
		if vssActive && r.VSS != nil {
			r.VSS.Remove(ctx)
		}
		if session != nil && snapshots != nil {
			snapshots.Remove(ctx, providerName, *session)
		}
		if password != nil {
			password.Zero()
		}
	})
}
