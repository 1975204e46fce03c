package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// APKMediaType is the MIME type of the delivered package.
const APKMediaType = "application/vnd.android.package-archive"

// Download is a finished package ready to hand to the user.
type Download struct {
	FileName string
	MIMEType string
	Data     []byte
}

// FileName picks the download name: the server's suggestion when present,
// otherwise "<app name, whitespace runs replaced by _>_v<version>.apk".
func FileName(suggested, appName, appVersion string) string {
	if name := strings.TrimSpace(suggested); name != "" {
		return name
	}

	return strings.Join(strings.Fields(appName), "_") + "_v" + strings.TrimSpace(appVersion) + ".apk"
}

// Saver hands a Download to the user.
type Saver interface {
	Save(ctx context.Context, dl Download) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, dl Download) error

func (f SaverFunc) Save(ctx context.Context, dl Download) error { return f(ctx, dl) }

// DirSaver writes downloads into a directory.
type DirSaver struct {
	Dir string
	// Written is set to the final path after a successful Save.
	Written string
}

func (d *DirSaver) Save(_ context.Context, dl Download) error {
	dir := d.Dir
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}

	// Server-suggested names must not escape the target directory.
	name := filepath.Base(filepath.Clean("/" + dl.FileName))
	if name == "/" || name == "." {
		return fmt.Errorf("invalid download name %q", dl.FileName)
	}

	target := filepath.Join(dir, name)
	tmp := target + ".part"

	if err := os.WriteFile(tmp, dl.Data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	d.Written = target

	return nil
}
