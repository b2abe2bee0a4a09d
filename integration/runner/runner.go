package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/worker"
	"github.com/jwebster45206/adventure-engine/pkg/game"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running adventure-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	WorldOverride     string // If set, overrides the world for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		// A turn runs several agents in sequence
		Client:            &http.Client{Timeout: 5 * time.Minute},
		Timeout:           EventTimeout,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite starts a session and plays each step against it
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	world := suite.World
	if r.WorldOverride != "" {
		world = r.WorldOverride
	}
	started, err := StartGame(ctx, r.Client, r.BaseURL, world, suite.KnownLore)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.SessionID = started.SessionID

	if suite.StartCheck != nil {
		if err := checkSnapshot(*suite.StartCheck, started.WorldState, started.PlayerProfile, started.InitialVerdict); err != nil {
			result.Error = fmt.Errorf("start expectation failed: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
	}

	prev := started.InitialVerdict
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, verdict := r.runStep(ctx, started.SessionID, step, prev, suite.KnownLore)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
		if verdict != nil {
			prev = *verdict
		}
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep plays the step Repeat times and checks expectations after the last turn
func (r *Runner) runStep(ctx context.Context, sessionID uuid.UUID, step TestStep, prev game.Verdict, lore []string) (TestResult, *game.Verdict) {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) (TestResult, *game.Verdict) {
		result.Error = err
		result.Duration = time.Since(start)
		return result, nil
	}

	repeat := step.Repeat
	if repeat < 1 {
		repeat = 1
	}

	var resp *worker.TurnResponse
	for n := 0; n < repeat; n++ {
		action, err := stepAction(step, prev)
		if err != nil {
			return fail(err)
		}

		// Subscribe before the last turn so its maintenance event cannot be missed
		var stream *EventStream
		if step.AwaitEvent != "" && n == repeat-1 {
			stream, err = OpenEventStream(ctx, r.BaseURL, sessionID)
			if err != nil {
				return fail(err)
			}
		}

		resp, err = PlayTurn(ctx, r.Client, r.BaseURL, sessionID, action, lore)
		if err == nil && stream != nil {
			result.Event, err = stream.Wait(ctx, step.AwaitEvent, r.Timeout)
		}
		if stream != nil {
			stream.Close()
		}
		if err != nil {
			return fail(err)
		}
		result.Turns++
		prev = resp.Verdict
	}
	result.ResponseText = resp.Verdict.Narrative.Content

	view, err := GetSession(ctx, r.Client, r.BaseURL, sessionID)
	if err != nil {
		return fail(err)
	}
	if err := checkExpectations(step.Expectations, resp, view); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, &resp.Verdict
}

func stepAction(step TestStep, prev game.Verdict) (game.PlayerAction, error) {
	if step.Choice > 0 {
		if step.Choice > len(prev.Options) {
			return game.PlayerAction{}, fmt.Errorf("choice %d out of range, verdict offered %d options", step.Choice, len(prev.Options))
		}
		return game.PlayerAction{Type: game.ActionChoice, Content: prev.Options[step.Choice-1].Text}, nil
	}
	if strings.TrimSpace(step.Action) == "" {
		return game.PlayerAction{}, fmt.Errorf("step has neither action nor choice")
	}
	return game.PlayerAction{Type: game.ActionFreeText, Content: step.Action}, nil
}

func checkSnapshot(exp Snapshot, world game.WorldState, profile game.PlayerProfile, verdict game.Verdict) error {
	if exp.TurnCount != nil && world.TurnCount != *exp.TurnCount {
		return fmt.Errorf("expected turn_count to be %d, got %d", *exp.TurnCount, world.TurnCount)
	}
	if exp.Status != nil && string(profile.Status) != *exp.Status {
		return fmt.Errorf("expected status %s, got %s", *exp.Status, profile.Status)
	}
	if exp.HPMin != nil && profile.Stats.HP < *exp.HPMin {
		return fmt.Errorf("expected hp >= %d, got %d", *exp.HPMin, profile.Stats.HP)
	}
	if exp.HPMax != nil && profile.Stats.HP > *exp.HPMax {
		return fmt.Errorf("expected hp <= %d, got %d", *exp.HPMax, profile.Stats.HP)
	}
	if exp.Location != nil && world.Environment.Location != *exp.Location {
		return fmt.Errorf("expected location %s, got %s", *exp.Location, world.Environment.Location)
	}
	if exp.Options != nil && len(verdict.Options) < *exp.Options {
		return fmt.Errorf("expected at least %d options, got %d", *exp.Options, len(verdict.Options))
	}
	return nil
}

// checkExpectations validates the turn response and the stored session
func checkExpectations(exp Expectations, resp *worker.TurnResponse, view *worker.SessionView) error {
	if err := checkSnapshot(exp.Snapshot, view.WorldState, view.PlayerProfile, resp.Verdict); err != nil {
		return err
	}

	if exp.IsDeath != nil && resp.Verdict.IsDeath != *exp.IsDeath {
		return fmt.Errorf("expected is_death to be %t, got %t", *exp.IsDeath, resp.Verdict.IsDeath)
	}
	if exp.IsVictory != nil && resp.Verdict.IsVictory != *exp.IsVictory {
		return fmt.Errorf("expected is_victory to be %t, got %t", *exp.IsVictory, resp.Verdict.IsVictory)
	}
	if exp.EnvStatePending != nil && resp.EnvStatePending != *exp.EnvStatePending {
		return fmt.Errorf("expected env_state_pending to be %t, got %t", *exp.EnvStatePending, resp.EnvStatePending)
	}
	if exp.HistoryLength != nil && len(view.History) != *exp.HistoryLength {
		return fmt.Errorf("expected %d history items, got %d", *exp.HistoryLength, len(view.History))
	}
	if exp.CompressedHistory != nil && (view.CompressedHistory != "") != *exp.CompressedHistory {
		return fmt.Errorf("expected compressed history present to be %t, got %q", *exp.CompressedHistory, view.CompressedHistory)
	}

	responseText := resp.Verdict.Narrative.Content
	lowerResponse := strings.ToLower(responseText)
	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(responseText))
	}
	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		return fmt.Errorf("expected response length <= %d, got %d", *exp.ResponseMaxLength, len(responseText))
	}

	return nil
}
