// Package platform detects the OS flavor and answers the filesystem
// questions the host store adapter needs.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL     Platform = "wsl"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

var (
	detectOnce sync.Once
	detected   Platform
)

// Detect returns the current platform, caching the result.
func Detect() Platform {
	detectOnce.Do(func() {
		detected = detectPlatform(runtime.GOOS, os.Getenv("WSL_DISTRO_NAME"), readProcVersion())
	})
	return detected
}

func readProcVersion() string {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return ""
	}
	return string(data)
}

func detectPlatform(goos, wslDistro, procVersion string) Platform {
	switch goos {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
		if wslDistro != "" || strings.Contains(strings.ToLower(procVersion), "microsoft") {
			return PlatformWSL
		}
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL:
		return "WSL"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}

// BrowserDataDirs lists the user-data directories of Chromium-family
// browsers for p, most common first. home is the user's home directory;
// localAppData is %LOCALAPPDATA% and only used on Windows.
func BrowserDataDirs(p Platform, home, localAppData string) []string {
	switch p {
	case PlatformMacOS:
		base := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(base, "Google", "Chrome"),
			filepath.Join(base, "Chromium"),
			filepath.Join(base, "BraveSoftware", "Brave-Browser"),
			filepath.Join(base, "Microsoft Edge"),
		}
	case PlatformWindows:
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return []string{
			filepath.Join(localAppData, "Google", "Chrome", "User Data"),
			filepath.Join(localAppData, "Chromium", "User Data"),
			filepath.Join(localAppData, "BraveSoftware", "Brave-Browser", "User Data"),
			filepath.Join(localAppData, "Microsoft", "Edge", "User Data"),
		}
	case PlatformLinux, PlatformWSL:
		base := filepath.Join(home, ".config")
		return []string{
			filepath.Join(base, "google-chrome"),
			filepath.Join(base, "chromium"),
			filepath.Join(base, "BraveSoftware", "Brave-Browser"),
			filepath.Join(base, "microsoft-edge"),
		}
	}
	return nil
}

// CheckFsnotifySupport reports why change events for path may not arrive
// (9p, NFS, CIFS and SSHFS mounts), or "" when fsnotify should work. WSL
// users reading a Windows browser profile through /mnt/c hit the 9p case.
func CheckFsnotifySupport(path string) string {
	if runtime.GOOS != "linux" {
		return ""
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	mounts, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return ""
	}
	return fsnotifyWarning(mountFSType(string(mounts), absPath))
}

// mountFSType returns the filesystem type of the longest mount point
// containing path. Lines are in /proc/mounts format.
func mountFSType(mounts, path string) string {
	var matchedMount, matchedType string
	for _, line := range strings.Split(mounts, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if !strings.HasPrefix(path, mountPoint) {
			continue
		}
		if len(mountPoint) > len(matchedMount) {
			matchedMount, matchedType = mountPoint, fsType
		}
	}
	return matchedType
}

func fsnotifyWarning(fsType string) string {
	switch {
	case fsType == "9p":
		return "bookmarks file on 9p mount (WSL Windows filesystem): change events disabled, polling instead"
	case fsType == "nfs" || fsType == "nfs4":
		return "bookmarks file on NFS mount: change events may be unreliable, polling instead"
	case fsType == "cifs" || fsType == "smbfs":
		return "bookmarks file on CIFS/SMB mount: change events may be unreliable, polling instead"
	case strings.HasPrefix(fsType, "fuse.sshfs"):
		return "bookmarks file on SSHFS mount: change events disabled, polling instead"
	}
	return ""
}
