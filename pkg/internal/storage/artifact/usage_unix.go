//go:build unix

package artifact

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// Usage 返回存储目录所在文件系统的容量.
func (l *Local) Usage() (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(l.dir, &st); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", l.dir, err)
	}

	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bfree * bsize
	avail := st.Bavail * bsize
	used := total - free

	u := Usage{Total: total, Used: used, Available: avail}
	if total > 0 {
		u.Percent = int(math.Round(float64(used) / float64(total) * 100))
	}

	return u, nil
}
