package types

import (
	"encoding/json"
	"time"
)

// SubmissionRecord is the judged outcome of one student attempt on a problem.
// The catalog only reads these records to build homework progress.
type SubmissionRecord struct {
	// ID is the unique identifier of the submission.
	ID int64 `json:"id" db:"id"`

	// ProblemID identifies the problem this submission is for.
	ProblemID int `json:"problem_id" db:"problem_id"`

	// StudentID identifies the student who made the submission.
	StudentID int `json:"student_id" db:"student_id"`

	// Language is the language the submission was written in.
	Language Language `json:"language" db:"language"`

	// Verdict is the final outcome of judging the submission.
	Verdict Verdict `json:"verdict" db:"verdict"`

	// Grade is the total number of points awarded to the submission.
	Grade int `json:"grade" db:"grade"`

	// CreatedAt is the timestamp when the submission was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Verdict represents the outcome of judging a submission.
type Verdict int

// Supported verdict values.
const (
	// VerdictPending indicates the submission has not been judged yet.
	VerdictPending Verdict = iota

	// VerdictAccepted indicates the submission passed all testcases.
	VerdictAccepted

	// VerdictWrongAnswer indicates the submission produced incorrect output.
	VerdictWrongAnswer

	// VerdictTimeLimitExceeded indicates the submission exceeded the time limit.
	VerdictTimeLimitExceeded

	// VerdictMemoryLimitExceeded indicates the submission exceeded the memory limit.
	VerdictMemoryLimitExceeded

	// VerdictOutputLimitExceeded indicates the submission printed too much.
	VerdictOutputLimitExceeded

	// VerdictRuntimeError indicates a runtime error occurred during execution.
	VerdictRuntimeError

	// VerdictCompilationError indicates the submission failed to compile.
	VerdictCompilationError

	// VerdictSystemError indicates an internal failure of the judge.
	VerdictSystemError
)

// String returns the compact string representation of the verdict
// used in API responses and logs.
func (v Verdict) String() string {
	switch v {
	case VerdictPending:
		return "PENDING"
	case VerdictAccepted:
		return "AC"
	case VerdictWrongAnswer:
		return "WA"
	case VerdictTimeLimitExceeded:
		return "TLE"
	case VerdictMemoryLimitExceeded:
		return "MLE"
	case VerdictOutputLimitExceeded:
		return "OLE"
	case VerdictRuntimeError:
		return "RE"
	case VerdictCompilationError:
		return "CE"
	case VerdictSystemError:
		return "SE"
	default:
		return "UNKNOWN"
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}
