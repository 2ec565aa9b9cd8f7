package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// MinFreeBytes is the free space below which the site directory is flagged.
const MinFreeBytes = 256 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatable passes when path is an accessible directory, or does not exist
// yet and its parent is.
func CheckCreatable(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	} else if !os.IsNotExist(err) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	parent := CheckDirectoryAccess(name, filepath.Dir(path))
	if !parent.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: parent unusable: %s)", path, parent.Detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckFileWritable verifies a file can be rewritten in place: the file, if
// present, is writable and its directory accepts new entries.
func CheckFileWritable(name, path string) Result {
	dir := CheckDirectoryAccess(name, filepath.Dir(path))
	if !dir.Passed {
		return Result{Name: name, Detail: dir.Detail}
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	case info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace reports whether the filesystem holding path has at least min
// bytes available to unprivileged users.
func CheckFreeSpace(name, path string, min uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	avail := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s (%s free)", path, humanBytes(avail))
	if avail < min {
		return Result{Name: name, Detail: detail + fmt.Sprintf(", below %s", humanBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckProfileEndpoint verifies the profile host answers. Any response below
// 500 counts as reachable; profile pages for unknown accounts return 404.
func CheckProfileEndpoint(ctx context.Context, baseURL, userAgent string) Result {
	const name = "Profile endpoint"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (profile host unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (profile host unreachable)"
	}
	return fmt.Sprintf("check failed (%v)", err)
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
