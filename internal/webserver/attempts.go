package webserver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"site2apk/internal/convert"
	"site2apk/internal/notify"
)

// attemptTTL is how long a finished attempt, and its package, stays downloadable.
const attemptTTL = 30 * time.Minute

// attempt is one browser-initiated conversion.
type attempt struct {
	id       string
	owner    string
	orch     *convert.Orchestrator
	toasts   *notify.Recorder
	download *convert.Download

	mu       sync.Mutex
	done     bool
	finished time.Time
}

// AttemptStatus is the polling view of an attempt.
type AttemptStatus struct {
	ID          string        `json:"id"`
	Phase       convert.Phase `json:"phase"`
	Progress    int           `json:"progress"`
	Done        bool          `json:"done"`
	FileName    string        `json:"fileName,omitempty"`
	DownloadURL string        `json:"downloadUrl,omitempty"`
	Toast       *notify.Toast `json:"toast,omitempty"`
}

func (a *attempt) status() AttemptStatus {
	a.mu.Lock()
	done := a.done
	dl := a.download
	a.mu.Unlock()

	st := AttemptStatus{
		ID:       a.id,
		Phase:    a.orch.Session().Phase,
		Progress: a.orch.Progress(),
		Done:     done,
	}

	// The toast is published only once the attempt is over, so a client never
	// sees a success message before the download exists.
	if done {
		if toast, ok := a.toasts.Last(); ok {
			st.Toast = &toast
		}

		if dl != nil {
			st.FileName = dl.FileName
			st.DownloadURL = "/api/attempts/" + a.id + "/download"
		}
	}

	return st
}

func (a *attempt) save(_ context.Context, dl convert.Download) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.download = &dl

	return nil
}

func (a *attempt) finish() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.done = true
	a.finished = time.Now()
}

func (a *attempt) expired(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.done && now.Sub(a.finished) > attemptTTL
}

// registry tracks attempts by id and enforces one running attempt per
// browser session.
type registry struct {
	mu     sync.Mutex
	byID   map[string]*attempt
	active map[string]string
	now    func() time.Time
}

func newRegistry() *registry {
	return &registry{
		byID:   make(map[string]*attempt),
		active: make(map[string]string),
		now:    time.Now,
	}
}

// reserve registers a new attempt for owner unless one is already running.
func (r *registry) reserve(owner string, build func(a *attempt) (*convert.Orchestrator, error)) (*attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())

	if id, ok := r.active[owner]; ok {
		if a, ok := r.byID[id]; ok {
			a.mu.Lock()
			running := !a.done
			a.mu.Unlock()

			if running {
				return nil, convert.ErrInFlight
			}
		}
	}

	a := &attempt{id: uuid.NewString(), owner: owner, toasts: &notify.Recorder{}}

	orch, err := build(a)
	if err != nil {
		return nil, err
	}

	a.orch = orch
	r.byID[a.id] = a
	r.active[owner] = a.id

	return a, nil
}

func (r *registry) get(id string) (*attempt, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())

	a, ok := r.byID[id]

	return a, ok
}

func (r *registry) release(a *attempt) {
	a.finish()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active[a.owner] == a.id {
		delete(r.active, a.owner)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byID)
}

// sweep drops expired attempts every interval until ctx ends, so packages do
// not outlive attemptTTL on an idle server.
func (r *registry) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.prune()
		}
	}
}

func (r *registry) prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())
}

func (r *registry) pruneLocked(now time.Time) {
	for id, a := range r.byID {
		if a.expired(now) {
			delete(r.byID, id)
		}
	}
}
