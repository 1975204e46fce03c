package convert

import (
	"errors"
	"strings"

	"site2apk/internal/blob"
	"site2apk/internal/builder"
	"site2apk/internal/encoder"
)

// Phase is a state of one conversion attempt.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseValidating        Phase = "validating"
	PhaseEncoding          Phase = "encoding"
	PhaseResolvingEndpoint Phase = "resolving_endpoint"
	PhaseAwaitingResponse  Phase = "awaiting_response"
	PhaseSucceeded         Phase = "succeeded"
	PhaseFailed            Phase = "failed"
)

// Terminal reports whether no further transition happens without a new submission.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Busy reports whether an attempt in this phase blocks resubmission. The zero
// Phase counts as idle.
func (p Phase) Busy() bool {
	return p != PhaseIdle && p != "" && !p.Terminal()
}

// Request is everything the user submits.
type Request struct {
	AppName    string
	AppVersion string
	Archive    blob.File
	Icon       blob.File
}

// Complete reports whether all four fields are present.
func (r Request) Complete() bool {
	return strings.TrimSpace(r.AppName) != "" &&
		strings.TrimSpace(r.AppVersion) != "" &&
		r.Archive != nil &&
		r.Icon != nil
}

// Session is the state container of one attempt. Step is the only code that
// produces a new Session.
type Session struct {
	Phase      Phase
	Request    Request
	ArchiveURI string
	IconURI    string
	Endpoint   string
	Note       string
	Download   *Download
	Failure    *Failure
}

// Event drives a transition.
type Event interface{ isEvent() }

type (
	// Submitted starts an attempt.
	Submitted struct{ Request Request }
	// Validated carries the submit-time re-check of both files.
	Validated struct{ Err error }
	// Encoded carries both data URIs.
	Encoded struct{ ArchiveURI, IconURI string }
	// EncodeFailed means one of the files could not be read.
	EncodeFailed struct{ Err error }
	// Resolved carries the conversion endpoint address.
	Resolved struct{ URL string }
	// ResolveFailed means the endpoint map was unusable or lacked the key.
	ResolveFailed struct{ Err error }
	// Responded carries a well-formed success answer.
	Responded struct{ Result builder.Result }
	// SendFailed carries any failure of the conversion request.
	SendFailed struct{ Err error }
	// Saved means the download was handed to the user.
	Saved struct{ Download Download }
	// SaveFailed means the download could not be handed over.
	SaveFailed struct{ Err error }
)

func (Submitted) isEvent()     {}
func (Validated) isEvent()     {}
func (Encoded) isEvent()       {}
func (EncodeFailed) isEvent()  {}
func (Resolved) isEvent()      {}
func (ResolveFailed) isEvent() {}
func (Responded) isEvent()     {}
func (SendFailed) isEvent()    {}
func (Saved) isEvent()         {}
func (SaveFailed) isEvent()    {}

// Effect is work the runner performs after a transition. At most one effect
// per batch produces a follow-up event, and it is always the last one.
type Effect interface{ isEffect() }

type (
	Validate         struct{ Request Request }
	StartProgress    struct{}
	StopProgress     struct{}
	CompleteProgress struct{}
	Encode           struct{ Archive, Icon blob.File }
	Resolve          struct{}
	Send             struct {
		URL     string
		Payload builder.Payload
	}
	Save   struct{ Download Download }
	Notify struct {
		Failure  *Failure
		Download *Download
		Note     string
	}
)

func (Validate) isEffect()         {}
func (StartProgress) isEffect()    {}
func (StopProgress) isEffect()     {}
func (CompleteProgress) isEffect() {}
func (Encode) isEffect()           {}
func (Resolve) isEffect()          {}
func (Send) isEffect()             {}
func (Save) isEffect()             {}
func (Notify) isEffect()           {}

// Step is the transition function. It performs no I/O. Events that do not
// apply to the current phase leave the session unchanged and yield no effects.
func Step(s Session, ev Event) (Session, []Effect) {
	switch e := ev.(type) {
	case Submitted:
		if s.Phase.Busy() {
			return s, nil
		}

		next := Session{Phase: PhaseValidating, Request: e.Request}
		if !e.Request.Complete() {
			return fail(next, Classify(errIncompleteForm), false)
		}

		return next, []Effect{Validate{Request: e.Request}}

	case Validated:
		if s.Phase != PhaseValidating {
			return s, nil
		}

		if e.Err != nil {
			return fail(s, Classify(e.Err), false)
		}

		s.Phase = PhaseEncoding

		return s, []Effect{StartProgress{}, Encode{Archive: s.Request.Archive, Icon: s.Request.Icon}}

	case Encoded:
		if s.Phase != PhaseEncoding {
			return s, nil
		}

		s.Phase = PhaseResolvingEndpoint
		s.ArchiveURI = e.ArchiveURI
		s.IconURI = e.IconURI

		return s, []Effect{Resolve{}}

	case EncodeFailed:
		if s.Phase != PhaseEncoding {
			return s, nil
		}

		return fail(s, Classify(e.Err), true)

	case Resolved:
		if s.Phase != PhaseResolvingEndpoint {
			return s, nil
		}

		s.Phase = PhaseAwaitingResponse
		s.Endpoint = e.URL

		return s, []Effect{Send{
			URL: e.URL,
			Payload: builder.Payload{
				AppName:    s.Request.AppName,
				AppVersion: s.Request.AppVersion,
				ZipFile:    s.ArchiveURI,
				IconFile:   s.IconURI,
			},
		}}

	case ResolveFailed:
		if s.Phase != PhaseResolvingEndpoint {
			return s, nil
		}

		return fail(s, Classify(e.Err), true)

	case Responded:
		if s.Phase != PhaseAwaitingResponse {
			return s, nil
		}

		_, data, err := encoder.Decode(e.Result.APKFile)
		if err != nil {
			return fail(s, Classify(err), true)
		}

		dl := Download{
			FileName: FileName(e.Result.FileName, s.Request.AppName, s.Request.AppVersion),
			MIMEType: APKMediaType,
			Data:     data,
		}

		s.Phase = PhaseSucceeded
		s.Note = e.Result.Note
		// The encoded payloads are no longer needed once the build exists.
		s.ArchiveURI, s.IconURI = "", ""

		return s, []Effect{CompleteProgress{}, Save{Download: dl}}

	case SendFailed:
		if s.Phase != PhaseAwaitingResponse {
			return s, nil
		}

		return fail(s, Classify(e.Err), true)

	case Saved:
		if s.Phase != PhaseSucceeded || s.Download != nil {
			return s, nil
		}

		dl := e.Download
		s.Download = &dl

		return s, []Effect{Notify{Download: s.Download, Note: s.Note}}

	case SaveFailed:
		if s.Phase != PhaseSucceeded || s.Download != nil {
			return s, nil
		}

		failure := Classify(e.Err)
		if failure.Kind != KindInternal {
			failure = &Failure{Kind: KindInternal, Err: e.Err}
		}

		return fail(s, failure, false)
	}

	return s, nil
}

func fail(s Session, failure *Failure, stopProgress bool) (Session, []Effect) {
	if failure == nil {
		failure = &Failure{Kind: KindInternal, Err: errors.New("unknown failure")}
	}

	s.Phase = PhaseFailed
	s.Failure = failure
	s.Download = nil
	s.ArchiveURI, s.IconURI = "", ""

	effects := make([]Effect, 0, 2)
	if stopProgress {
		effects = append(effects, StopProgress{})
	}

	return s, append(effects, Notify{Failure: failure})
}
