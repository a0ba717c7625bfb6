//go:build !linux

package digest

import "os"

// adviseSequential is a no-op on platforms without posix_fadvise.
func adviseSequential(_ *os.File) {}
