package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"site2apk/internal/blob"
	"site2apk/internal/builder"
	"site2apk/internal/encoder"
	"site2apk/internal/notify"
	"site2apk/internal/progress"
	"site2apk/internal/validate"
)

// Resolver finds the conversion endpoint.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Builder calls the remote build service.
type Builder interface {
	Build(ctx context.Context, target string, payload builder.Payload) (builder.Result, error)
}

// Deps wires an Orchestrator.
type Deps struct {
	Resolver Resolver
	Builder  Builder
	Saver    Saver
	Sink     notify.Sink
	Catalog  Catalog

	ProgressInterval time.Duration
	ProgressStep     int
	// OnProgress observes every progress change.
	OnProgress func(int)
	// OnPhase observes every phase change.
	OnPhase func(Phase)
}

// Orchestrator runs conversion attempts one at a time.
type Orchestrator struct {
	deps     Deps
	progress *progress.Reporter
	inFlight atomic.Bool
	log      *slog.Logger

	mu      sync.Mutex
	session Session
}

// New builds an Orchestrator. Resolver, Builder, Saver, Sink and Catalog are required.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Resolver == nil:
		return nil, errors.New("orchestrator: resolver is required")
	case deps.Builder == nil:
		return nil, errors.New("orchestrator: builder is required")
	case deps.Saver == nil:
		return nil, errors.New("orchestrator: saver is required")
	case deps.Sink == nil:
		return nil, errors.New("orchestrator: notification sink is required")
	case deps.Catalog == nil:
		return nil, errors.New("orchestrator: catalog is required")
	}

	return &Orchestrator{
		deps:     deps,
		progress: progress.New(deps.ProgressInterval, deps.ProgressStep, deps.OnProgress),
		log:      slog.With("component", "orchestrator"),
		session:  Session{Phase: PhaseIdle},
	}, nil
}

// Busy reports whether an attempt is in flight.
func (o *Orchestrator) Busy() bool { return o.inFlight.Load() }

// Progress returns the current progress percentage.
func (o *Orchestrator) Progress() int { return o.progress.Value() }

// Session returns a snapshot of the latest attempt.
func (o *Orchestrator) Session() Session {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.session
}

// Run performs one attempt and returns its final session. The error is
// ErrInFlight when another attempt is running, otherwise the attempt's
// *Failure or nil on success. Exactly one notification is sent per attempt
// that starts.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Session, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return o.Session(), ErrInFlight
	}
	defer o.inFlight.Store(false)

	// No tick may outlive the attempt, whatever path it exits by.
	defer o.progress.Stop()

	o.progress.Reset()

	log := o.log.With("app_name", req.AppName, "app_version", req.AppVersion)
	log.Info("Conversion submitted")

	started := time.Now()
	s := Session{Phase: PhaseIdle}

	var ev Event = Submitted{Request: req}

	for ev != nil {
		var effects []Effect

		prev := s.Phase
		s, effects = Step(s, ev)
		o.publish(s, prev)

		ev = nil

		for _, eff := range effects {
			if next := o.execute(ctx, log, eff); next != nil {
				ev = next
			}
		}
	}

	if !s.Phase.Terminal() {
		// Only reachable if Step ignored an event; treat as an internal error.
		prev := s.Phase
		s, _ = fail(s, &Failure{Kind: KindInternal, Err: fmt.Errorf("attempt stalled in %s", s.Phase)}, true)
		o.progress.Stop()
		o.notify(ctx, log, Notify{Failure: s.Failure})
		o.publish(s, prev)
	}

	log = log.With("phase", s.Phase, "duration", time.Since(started).Round(time.Millisecond))

	if s.Failure != nil {
		log.Warn("Conversion failed", "kind", s.Failure.Kind, "error", s.Failure)
		return s, s.Failure
	}

	log.Info("Conversion succeeded", "filename", s.Download.FileName, "size", len(s.Download.Data))

	return s, nil
}

func (o *Orchestrator) publish(s Session, prev Phase) {
	o.mu.Lock()
	o.session = s
	o.mu.Unlock()

	if s.Phase != prev && o.deps.OnPhase != nil {
		o.deps.OnPhase(s.Phase)
	}
}

func (o *Orchestrator) execute(ctx context.Context, log *slog.Logger, eff Effect) Event {
	switch e := eff.(type) {
	case Validate:
		return Validated{Err: o.validate(ctx, e.Request)}

	case StartProgress:
		o.progress.Start()

	case StopProgress:
		o.progress.Stop()

	case CompleteProgress:
		o.progress.Complete()

	case Encode:
		archive, icon, err := encodeBoth(ctx, e.Archive, e.Icon)
		if err != nil {
			return EncodeFailed{Err: err}
		}

		log.Debug("Inputs encoded", "archive_len", len(archive), "icon_len", len(icon))

		return Encoded{ArchiveURI: archive, IconURI: icon}

	case Resolve:
		target, err := o.deps.Resolver.Resolve(ctx)
		if err != nil {
			return ResolveFailed{Err: err}
		}

		return Resolved{URL: target}

	case Send:
		log.Info("Sending conversion request", "endpoint", e.URL)

		result, err := o.deps.Builder.Build(ctx, e.URL, e.Payload)
		if err != nil {
			return SendFailed{Err: err}
		}

		return Responded{Result: result}

	case Save:
		if err := o.deps.Saver.Save(ctx, e.Download); err != nil {
			return SaveFailed{Err: err}
		}

		return Saved{Download: e.Download}

	case Notify:
		o.notify(ctx, log, e)
	}

	return nil
}

func (o *Orchestrator) validate(ctx context.Context, req Request) error {
	if err := validate.Archive(req.Archive); err != nil {
		return err
	}

	return validate.Icon(ctx, req.Icon)
}

func (o *Orchestrator) notify(ctx context.Context, log *slog.Logger, n Notify) {
	toast := ToastFor(o.deps.Catalog, n.Failure, n.Download, n.Note)

	// A failing sink must not change the attempt's outcome.
	if err := o.deps.Sink.Notify(ctx, toast); err != nil {
		log.Error("Notification failed", "error", err)
	}
}

// encodeBoth reads both files concurrently; both must finish before the
// attempt moves on.
func encodeBoth(ctx context.Context, archive, icon blob.File) (string, string, error) {
	archiveTask := encoder.Encode(archive)
	iconTask := encoder.Encode(icon)

	archiveTask.Start()
	iconTask.Start()

	archiveURI, archiveErr := archiveTask.Wait(ctx)
	iconURI, iconErr := iconTask.Wait(ctx)

	if err := errors.Join(archiveErr, iconErr); err != nil {
		return "", "", err
	}

	return archiveURI, iconURI, nil
}
