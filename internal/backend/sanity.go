package backend

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"worker/internal/common/fsutil"
)

// SanityCheck validates startup configuration before any goroutine is
// started. A missing log file is fine; a missing log directory is not.
func (b *Backend) SanityCheck() error {
	var errs []error
	u, err := url.Parse(b.baseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("model server url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("model server url %q: scheme must be http or https", b.baseURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("model server url %q: missing host", b.baseURL))
	}
	path := b.monitor.path
	if path == "" {
		errs = append(errs, errors.New("model log path is empty"))
	} else if dir := filepath.Dir(path); !fsutil.PathExists(dir) {
		errs = append(errs, fmt.Errorf("model log directory %s does not exist", dir))
	} else if fsutil.IsDir(path) {
		errs = append(errs, fmt.Errorf("model log %s is a directory", path))
	}
	return errors.Join(errs...)
}
