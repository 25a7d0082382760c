//go:build windows

package vss

import "golang.org/x/sys/windows"

// platformIsElevated reports whether the current process token is an
// administrator token, the same check PowerShell's
// ([Security.Principal.WindowsPrincipal]...).IsInRole(...Administrator)
// performs, via the process token's elevation bit directly.
func platformIsElevated() bool {
	token := windows.GetCurrentProcessToken()
	return token.IsElevated()
}
