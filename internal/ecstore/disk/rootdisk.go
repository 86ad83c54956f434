package disk

import "golang.org/x/sys/unix"

// isRootDisk reports whether root shares a device id with the OS root
// filesystem, the same device-id comparison
// original_source/mojofs/ecstore/disk/os.py's is_root_disk delegates to
// (same_disk). A disk configured directly on the OS root is almost
// always a misconfigured mount that silently fell back to "/" instead
// of the intended separate drive.
func isRootDisk(root string) (bool, error) {
	var osRoot, diskRoot unix.Stat_t
	if err := unix.Stat("/", &osRoot); err != nil {
		return false, err
	}
	if err := unix.Stat(root, &diskRoot); err != nil {
		return false, err
	}
	return osRoot.Dev == diskRoot.Dev, nil
}
