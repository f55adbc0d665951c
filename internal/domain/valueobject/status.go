package valueobject

// Step - шаг мастера оформления заказа.
type Step int

const (
	StepDetails Step = iota
	StepRequirements
	StepFiles
	StepPayment
	StepReview
)

const (
	FirstStep = StepDetails
	LastStep  = StepReview
)

var stepNames = [...]string{"details", "requirements", "files", "payment", "review"}

func (s Step) IsValid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return stepNames[s]
}

type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSucceeded  SubmissionState = "succeeded"
	SubmissionFailed     SubmissionState = "failed"
)

func (s SubmissionState) IsValid() bool {
	switch s {
	case SubmissionIdle, SubmissionSubmitting, SubmissionSucceeded, SubmissionFailed:
		return true
	}
	return false
}

func (s SubmissionState) CanTransitionTo(newState SubmissionState) bool {
	transitions := map[SubmissionState][]SubmissionState{
		SubmissionIdle:       {SubmissionSubmitting},
		SubmissionSubmitting: {SubmissionSucceeded, SubmissionFailed},
		SubmissionFailed:     {SubmissionSubmitting, SubmissionIdle},
		SubmissionSucceeded:  {SubmissionIdle},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == newState {
			return true
		}
	}
	return false
}

// FailureReason уточняет причину состояния failed.
type FailureReason string

const (
	FailureRejected  FailureReason = "rejected"
	FailureTransient FailureReason = "transient"
	FailureTimeout   FailureReason = "timeout"
	FailureFatal     FailureReason = "fatal"
	FailureCancelled FailureReason = "cancelled"
)

// Retryable сообщает, можно ли повторить ту же отправку.
func (r FailureReason) Retryable() bool {
	return r == FailureTransient || r == FailureTimeout || r == FailureCancelled
}
