// Package vss implements VssCoordinator (spec §4.5): driving diskshadow.exe
// to create volume shadow copies, polling Win32_ShadowCopy for the
// resulting DeviceObject paths, and mapping source paths onto their
// shadows.
package vss

import "time"

// ShadowCopy mirrors the fields of Win32_ShadowCopy the coordinator needs.
type ShadowCopy struct {
	ID              string
	VolumeName      string
	DeviceObject    string
	InstallDate     time.Time
}

// ShadowMap is OriginalPath -> ShadowDeviceObjectPath, per spec §3. Every
// entry is either the input path unchanged (no shadow available for that
// volume) or a fully-qualified
// \\?\GLOBALROOT\Device\HarddiskVolumeShadowCopy… path.
type ShadowMap map[string]string
