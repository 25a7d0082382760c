package sevenzip

import "context"

// TestOutcome is ArchiveTester's verdict, translated from the invoker's
// raw result using the same TreatWarningsAsSuccess rule the creation step
// uses (DESIGN.md Open Question 3).
type TestOutcome string

const (
	TestPassed             TestOutcome = "Passed"
	TestPassedWithWarnings TestOutcome = "PassedWithWarnings"
	TestFailed             TestOutcome = "Failed"
)

// Tester runs `7z t` against a produced archive, inheriting the same
// priority/affinity/retry/hide-output discipline as archive creation.
type Tester struct {
	Invoker *Invoker
}

// NewTester returns a Tester wrapping inv.
func NewTester(inv *Invoker) *Tester {
	return &Tester{Invoker: inv}
}

// Test invokes `7z t <archivePath>` (plus -spf"<tempPasswordFile>" when a
// password file is present), and classifies the result. Testing never
// simulates, per spec §4.4.
func (t *Tester) Test(ctx context.Context, base InvocationInput, archivePath, tempPasswordFile string) (TestOutcome, Result, error) {
	args := []string{"t", archivePath}
	if tempPasswordFile != "" {
		args = append(args, `-spf"`+tempPasswordFile+`"`)
	}

	in := base
	in.ArgTokens = args
	in.Simulate = false

	result, err := t.Invoker.Run(ctx, in)
	if err != nil {
		if result.ExitCode == 0 {
			return TestFailed, result, err
		}
	}

	switch {
	case result.ExitCode == 0:
		return TestPassed, result, nil
	case result.ExitCode == 1 && base.TreatWarningsAsSuccess:
		return TestPassedWithWarnings, result, nil
	default:
		return TestFailed, result, err
	}
}
