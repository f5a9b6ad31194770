package redemption

import (
	"qrpass/entity"
	"time"
)

// Kind tags the outcome of a check-in attempt.
type Kind int

const (
	// KindSuccess: this attempt performed the unused -> used transition.
	KindSuccess Kind = iota
	// KindIdempotentSuccess: the pass was used within the idempotency window,
	// treated as a retry of that same success.
	KindIdempotentSuccess
	// KindConflict: the pass was used before the window; a genuine reuse attempt.
	KindConflict
	KindNotFound
	// KindInconsistent: a snapshot the protocol cannot produce.
	KindInconsistent
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindIdempotentSuccess:
		return "idempotent_success"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

type Outcome struct {
	Kind        Kind
	Name        string
	CheckedInAt *time.Time
}

func (o Outcome) Ok() bool {
	return o.Kind == KindSuccess || o.Kind == KindIdempotentSuccess
}

// Code is the guest-facing classification. Idempotent retries share CHECKED_IN
// with the original success; inconsistent snapshots carry no code.
func (o Outcome) Code() entity.Code {
	switch o.Kind {
	case KindSuccess, KindIdempotentSuccess:
		return entity.CodeCheckedIn
	case KindConflict:
		return entity.CodeAlreadyUsed
	case KindNotFound:
		return entity.CodeNotFound
	default:
		return ""
	}
}

// Evaluate classifies a check-in attempt from the snapshot the store returned.
// performed reports whether the conditional update matched; snapshot is the updated
// record when it did, and the re-read record (nil when absent) when it did not.
func Evaluate(snapshot *entity.Pass, performed bool, now time.Time, window time.Duration) Outcome {
	if snapshot == nil {
		if performed {
			return Outcome{Kind: KindInconsistent}
		}
		return Outcome{Kind: KindNotFound}
	}

	outcome := Outcome{
		Name:        snapshot.Name,
		CheckedInAt: snapshot.CheckedInAt,
	}

	if !snapshot.IsUsed() || snapshot.CheckedInAt == nil {
		outcome.Kind = KindInconsistent
		return outcome
	}

	if performed {
		outcome.Kind = KindSuccess
		return outcome
	}

	if withinWindow(now, *snapshot.CheckedInAt, window) {
		outcome.Kind = KindIdempotentSuccess
		return outcome
	}
	outcome.Kind = KindConflict
	return outcome
}

func withinWindow(now, checkedInAt time.Time, window time.Duration) bool {
	delta := now.Sub(checkedInAt)
	if delta < 0 {
		delta = -delta
	}
	return delta < window
}
