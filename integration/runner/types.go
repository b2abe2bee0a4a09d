package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name       string     `json:"name"`
	World      string     `json:"world,omitempty"`        // world_template_id for regular tests
	KnownLore  []string   `json:"known_lore,omitempty"`   // sent with start and every turn
	StartCheck *Snapshot  `json:"expect_start,omitempty"` // checked against the start response
	Steps      []TestStep `json:"steps,omitempty"`        // Used for regular tests
	Cases      []string   `json:"cases,omitempty"`        // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single turn and its expected outcomes.
// Choice picks an option from the previous verdict (1-based) instead of Action.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action,omitempty"`
	Choice       int          `json:"choice,omitempty"`
	Repeat       int          `json:"repeat,omitempty"`      // play the step this many times, checking only the last
	AwaitEvent   string       `json:"await_event,omitempty"` // SSE event type expected after the turn
	Expectations Expectations `json:"expect"`
}

// Snapshot is the subset of session state a case can assert on.
type Snapshot struct {
	TurnCount *int    `json:"turn_count,omitempty"`
	Status    *string `json:"status,omitempty"`
	HPMin     *int    `json:"hp_min,omitempty"`
	HPMax     *int    `json:"hp_max,omitempty"`
	Location  *string `json:"location,omitempty"`
	Options   *int    `json:"min_options,omitempty"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Snapshot

	IsDeath           *bool `json:"is_death,omitempty"`
	IsVictory         *bool `json:"is_victory,omitempty"`
	EnvStatePending   *bool `json:"env_state_pending,omitempty"`
	HistoryLength     *int  `json:"history_length,omitempty"`
	CompressedHistory *bool `json:"compressed_history,omitempty"` // true when a summary must exist

	// Narrative Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	Turns        int    // turns played by this step
	Event        string // event type received when the step awaited one
}

// TestJob represents a test suite to be executed by a worker
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	SessionID uuid.UUID
}
