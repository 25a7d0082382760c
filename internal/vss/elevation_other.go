//go:build !windows

package vss

// platformIsElevated: VSS only exists on Windows. Off-Windows builds exist
// only to compile and run this package's tests against the fake
// ShadowCopyLister/DiskshadowRunner, so there is no real elevation token to
// query; this always reports true, so a Coordinator from NewCoordinator
// never fails the elevation check off Windows.
func platformIsElevated() bool {
	return true
}
