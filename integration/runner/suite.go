package runner

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Discover loads every case file in dir. Sequence files run first, in name
// order; a case already scheduled by a sequence is not scheduled again.
func Discover(dir string) ([]TestJob, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var sequences, singles []string
	for _, file := range files {
		suite, err := LoadTestSuite(file)
		if err != nil {
			return nil, err
		}
		if suite.IsSequence() {
			sequences = append(sequences, file)
		} else {
			singles = append(singles, file)
		}
	}

	var jobs []TestJob
	scheduled := make(map[string]bool)
	add := func(file string) error {
		expanded, err := LoadTestSuiteWithExpansion(file, dir)
		if err != nil {
			return err
		}
		for _, job := range expanded {
			key := filepath.Clean(job.CaseFile)
			if scheduled[key] {
				continue
			}
			scheduled[key] = true
			jobs = append(jobs, job)
		}
		return nil
	}
	for _, file := range append(sequences, singles...) {
		if err := add(file); err != nil {
			return nil, err
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no cases found in %s", dir)
	}
	return jobs, nil
}

// Select loads the comma-separated case names from dir, in the order given.
// The .json suffix is optional.
func Select(dir, names string) ([]TestJob, error) {
	var jobs []TestJob
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		expanded, err := LoadTestSuiteWithExpansion(filepath.Join(dir, name), dir)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no cases selected by %q", names)
	}
	return jobs, nil
}

// caseTally is the outcome of one case across runs.
type caseTally struct {
	passes, failures int
	turns            int
	events           map[string]int
	stepErrors       map[string][]string // step name -> error per failed run
}

// Report accumulates suite results across runs.
type Report struct {
	order []string
	cases map[string]*caseTally
}

func NewReport() *Report {
	return &Report{cases: make(map[string]*caseTally)}
}

// Add records one run of a case.
func (r *Report) Add(res TestRunResult) {
	name := res.Job.Name
	c, ok := r.cases[name]
	if !ok {
		c = &caseTally{events: map[string]int{}, stepErrors: map[string][]string{}}
		r.cases[name] = c
		r.order = append(r.order, name)
	}
	if res.Error != nil {
		c.failures++
	} else {
		c.passes++
	}
	for _, step := range res.Results {
		c.turns += step.Turns
		if step.Event != "" {
			c.events[step.Event]++
		}
		if step.Error != nil {
			c.stepErrors[step.StepName] = append(c.stepErrors[step.StepName], step.Error.Error())
		}
	}
	// A suite can fail before any step runs
	if res.Error != nil && len(res.Results) == 0 {
		c.stepErrors["start"] = append(c.stepErrors["start"], res.Error.Error())
	}
}

// Failed returns the number of failed case runs.
func (r *Report) Failed() int {
	n := 0
	for _, c := range r.cases {
		n += c.failures
	}
	return n
}

// Flaky lists cases that both passed and failed.
func (r *Report) Flaky() []string {
	var out []string
	for _, name := range r.order {
		if c := r.cases[name]; c.passes > 0 && c.failures > 0 {
			out = append(out, name)
		}
	}
	return out
}

func (r *Report) String() string {
	var sb strings.Builder
	total, failed := 0, r.Failed()
	for _, c := range r.cases {
		total += c.passes + c.failures
	}
	fmt.Fprintf(&sb, "%d/%d case runs passed\n", total-failed, total)

	for _, name := range r.order {
		c := r.cases[name]
		status := "PASS"
		switch {
		case c.passes > 0 && c.failures > 0:
			status = "FLAKY"
		case c.failures > 0:
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "  %-5s %s: %d/%d, %d turns", status, name, c.passes, c.passes+c.failures, c.turns)
		if len(c.events) > 0 {
			fmt.Fprintf(&sb, ", events %s", formatCounts(c.events))
		}
		sb.WriteString("\n")

		steps := make([]string, 0, len(c.stepErrors))
		for step := range c.stepErrors {
			steps = append(steps, step)
		}
		sort.Strings(steps)
		for _, step := range steps {
			errs := c.stepErrors[step]
			fmt.Fprintf(&sb, "        ✗ %s (%d): %s\n", step, len(errs), errs[len(errs)-1])
		}
	}
	return sb.String()
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s×%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
