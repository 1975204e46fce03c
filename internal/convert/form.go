package convert

import (
	"context"
	"sync"

	"site2apk/internal/blob"
	"site2apk/internal/validate"
)

// Form holds the user's current selections. Files only enter the form after
// their validator accepts them; a rejected file leaves the previous choice in
// place.
type Form struct {
	mu      sync.Mutex
	name    string
	version string
	archive blob.File
	icon    blob.File
}

func (f *Form) SetName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.name = name
}

func (f *Form) SetVersion(version string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.version = version
}

// SetArchive validates and stores the site archive.
func (f *Form) SetArchive(file blob.File) error {
	if err := validate.Archive(file); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.archive = file

	return nil
}

// SetIcon validates and stores the icon. Decoding happens outside the lock.
func (f *Form) SetIcon(ctx context.Context, file blob.File) error {
	if err := validate.Icon(ctx, file); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.icon = file

	return nil
}

// Request snapshots the form for submission.
func (f *Form) Request() Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Request{AppName: f.name, AppVersion: f.version, Archive: f.archive, Icon: f.icon}
}
