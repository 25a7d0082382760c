package snapshot

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/BootBlock/poshbackup/internal/errs"
)

var guestPathPattern = regexp.MustCompile(`^([A-Za-z]):\\(.*)$`)

// Coordinator implements SnapshotCoordinator per spec §4.6.
type Coordinator struct {
	Log      logr.Logger
	Registry *Registry
}

// NewCoordinator returns a Coordinator backed by registry.
func NewCoordinator(log logr.Logger, registry *Registry) *Coordinator {
	return &Coordinator{Log: log, Registry: registry}
}

// Create asks the named provider for a snapshot of resourceName and
// translates the job's VM-relative sourcePaths (first element a VM name,
// remaining elements guest paths "<letter>:\<relative>") into host-visible
// paths, per spec §4.6's "VM sub-path translation" rule.
func (c *Coordinator) Create(ctx context.Context, providerName string, sourcePaths []string) (Session, []string, error) {
	provider, ok := c.Registry.Lookup(providerName)
	if !ok {
		return Session{}, nil, &errs.SnapshotError{Kind: errs.SnapshotProviderUnknown, Message: fmt.Sprintf("unknown snapshot provider %q", providerName)}
	}
	if len(sourcePaths) == 0 {
		return Session{}, nil, &errs.SnapshotError{Kind: errs.SnapshotSubPathUnparsable, Message: "source path sequence is empty; first element must be a VM name"}
	}

	resourceName := sourcePaths[0]
	session, err := provider.CreateSession(ctx, resourceName)
	if err != nil {
		return Session{}, nil, &errs.SnapshotError{Kind: errs.SnapshotCreateFailed, Message: err.Error(), Err: err}
	}
	session.SessionID = uuid.NewString()
	session.ProviderName = providerName
	session.ResourceName = resourceName

	mountPaths, err := provider.GetMountPaths(ctx, session)
	if err != nil {
		_ = provider.RemoveSession(ctx, session)
		return Session{}, nil, &errs.SnapshotError{Kind: errs.SnapshotCreateFailed, Message: err.Error(), Err: err}
	}
	if len(mountPaths) == 0 {
		_ = provider.RemoveSession(ctx, session)
		return Session{}, nil, &errs.SnapshotError{Kind: errs.SnapshotNoMountPaths, Message: "snapshot session succeeded but yielded no mount paths"}
	}
	session.MountPaths = mountPaths
	session.Success = true

	translated, err := translateGuestPaths(sourcePaths[1:], mountPaths, c.Log)
	if err != nil {
		_ = provider.RemoveSession(ctx, session)
		return Session{}, nil, err
	}

	return session, translated, nil
}

// Remove tears down session unconditionally — success, failure, or panic —
// per spec §4.6's Lifecycle rule. Errors are logged, never propagated.
func (c *Coordinator) Remove(ctx context.Context, providerName string, session Session) {
	provider, ok := c.Registry.Lookup(providerName)
	if !ok {
		return
	}
	if err := provider.RemoveSession(ctx, session); err != nil {
		c.Log.Error(&errs.ResourceCleanupError{Resource: "snapshot-session", Message: err.Error(), Err: err}, "failed to remove snapshot session", "sessionID", session.SessionID)
	}
}

// translateGuestPaths rewrites each "<letter>:\<relative>" guest path to
// "<hostMountLetter>:\<relative>" using the drive letter of the first
// snapshot disk mounted on the backup host. Malformed entries are dropped
// with a warning, per spec §4.6.
func translateGuestPaths(guestPaths []string, mountPaths []string, log logr.Logger) ([]string, error) {
	if len(mountPaths) == 0 {
		return nil, &errs.SnapshotError{Kind: errs.SnapshotNoMountPaths, Message: "no mount paths available for sub-path translation"}
	}
	hostLetter := volumeLetter(mountPaths[0])

	translated := make([]string, 0, len(guestPaths))
	for _, gp := range guestPaths {
		m := guestPathPattern.FindStringSubmatch(gp)
		if m == nil {
			log.Info("dropping malformed VM sub-path", "path", gp)
			continue
		}
		translated = append(translated, hostLetter+`:\`+m[2])
	}
	return translated, nil
}

func volumeLetter(mountPath string) string {
	if len(mountPath) >= 1 && mountPath[1:2] == ":" {
		return mountPath[:1]
	}
	if len(mountPath) >= 1 {
		return mountPath[:1]
	}
	return "X"
}
