package wpcli_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/sshexec"
	"github.com/pressmill/pressmill/internal/wpcli"
)

// fakeRunner records commands and plays back canned results.
type fakeRunner struct {
	ExecuteFn func(ctx context.Context, command string) (*sshexec.CommandResult, error)

	Commands []string
}

func (f *fakeRunner) Execute(ctx context.Context, command string) (*sshexec.CommandResult, error) {
	f.Commands = append(f.Commands, command)
	if f.ExecuteFn != nil {
		return f.ExecuteFn(ctx, command)
	}
	return &sshexec.CommandResult{Command: command}, nil
}

// fakeMultiRunner adds the sequence surface, replaying canned results per
// command and stopping at the first non-zero exit the way a real session
// does.
type fakeMultiRunner struct {
	fakeRunner
}

func (f *fakeMultiRunner) ExecuteMany(ctx context.Context, commands []string) ([]*sshexec.CommandResult, error) {
	var results []*sshexec.CommandResult
	for _, cmd := range commands {
		res, err := f.Execute(ctx, cmd)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.ExitCode != 0 {
			break
		}
	}
	return results, nil
}

func newTestClient() *wpcli.Client {
	return wpcli.NewClient("/var/www/html", "example.app", zap.NewNop())
}

// Test: site list output is matched by canonical URL, ignoring the CSV
// header and trailing slashes.
func TestSiteExists(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{
				Stdout: "url\nhttps://first.example.app/\nhttps://second.example.app\n",
			}, nil
		},
	}
	c := newTestClient()

	exists, err := c.SiteExists(context.Background(), run, "first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected first to exist")
	}

	exists, err = c.SiteExists(context.Background(), run, "third")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected third to not exist")
	}
}

// Test: non-zero exit from wp site list is a tool error, not a false.
func TestSiteExists_ToolFailure(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{ExitCode: 1, Stderr: "Error: This does not seem to be a WordPress installation.\n"}, nil
		},
	}
	c := newTestClient()

	_, err := c.SiteExists(context.Background(), run, "first")
	var toolErr *wpcli.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Reason != "This does not seem to be a WordPress installation." {
		t.Errorf("unexpected reason: %q", toolErr.Reason)
	}
}

// Test: porcelain site id is parsed into the created site.
func TestCreateSite(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{Stdout: "7\n"}, nil
		},
	}
	c := newTestClient()

	created, err := c.CreateSite(context.Background(), run, "myblog", "My Blog", "admin@example.app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.SiteID != 7 {
		t.Errorf("expected site id 7, got %d", created.SiteID)
	}
	if created.URL != "https://myblog.example.app" {
		t.Errorf("unexpected url: %s", created.URL)
	}

	if len(run.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(run.Commands))
	}
	cmd := run.Commands[0]
	if !strings.Contains(cmd, "--slug='myblog'") || !strings.Contains(cmd, "--porcelain") {
		t.Errorf("unexpected command: %s", cmd)
	}
}

// Test: unparsable porcelain output is a tool error, never a success.
func TestCreateSite_UnparsableOutput(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{Stdout: "Success: Site created\n"}, nil
		},
	}
	c := newTestClient()

	_, err := c.CreateSite(context.Background(), run, "myblog", "My Blog", "admin@example.app")
	var toolErr *wpcli.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
}

// Test: non-zero exit surfaces the tool's own failure reason.
func TestCreateSite_Refused(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{ExitCode: 1, Stderr: "Error: The site address is taken.\n"}, nil
		},
	}
	c := newTestClient()

	_, err := c.CreateSite(context.Background(), run, "myblog", "My Blog", "admin@example.app")
	var toolErr *wpcli.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Reason != "The site address is taken." {
		t.Errorf("unexpected reason: %q", toolErr.Reason)
	}
}

// Test: a refused application password comes back as nil, nil so the
// caller decides how to surface it.
func TestCreateAppPassword_Refused(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{ExitCode: 1, Stderr: "Error: Application passwords are unavailable.\n"}, nil
		},
	}
	c := newTestClient()

	pass, err := c.CreateAppPassword(context.Background(), run, "https://myblog.example.app", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass != nil {
		t.Errorf("expected nil password on refusal, got %+v", pass)
	}
}

// Test: empty porcelain output on success exit is a tool error.
func TestCreateAppPassword_EmptyOutput(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{Stdout: "\n"}, nil
		},
	}
	c := newTestClient()

	_, err := c.CreateAppPassword(context.Background(), run, "https://myblog.example.app", "admin")
	var toolErr *wpcli.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
}

// Test: issued credential carries the user and trimmed porcelain password.
func TestCreateAppPassword_Success(t *testing.T) {
	run := &fakeRunner{
		ExecuteFn: func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
			return &sshexec.CommandResult{Stdout: "abcd EFGH 1234 ijkl\n"}, nil
		},
	}
	c := newTestClient()

	pass, err := c.CreateAppPassword(context.Background(), run, "https://myblog.example.app", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pass.Username != "admin" {
		t.Errorf("expected username admin, got %s", pass.Username)
	}
	if pass.Password != "abcd EFGH 1234 ijkl" {
		t.Errorf("unexpected password: %q", pass.Password)
	}
	if !strings.HasPrefix(pass.ItemID, "pressmill-") {
		t.Errorf("unexpected item id: %q", pass.ItemID)
	}
}

// Test: theme setup enables on the network then activates for the site.
func TestApplyTheme(t *testing.T) {
	run := &fakeMultiRunner{}
	c := newTestClient()

	err := c.ApplyTheme(context.Background(), run, "https://myblog.example.app", "astra")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.Commands) != 2 {
		t.Fatalf("expected 2 commands, got %d: %v", len(run.Commands), run.Commands)
	}
	if !strings.Contains(run.Commands[0], "wp theme enable 'astra' --network") {
		t.Errorf("unexpected enable command: %q", run.Commands[0])
	}
	if !strings.Contains(run.Commands[1], "wp theme activate 'astra'") ||
		!strings.Contains(run.Commands[1], "--url='https://myblog.example.app'") {
		t.Errorf("unexpected activate command: %q", run.Commands[1])
	}
}

// Test: a failed enable stops the sequence before activation and surfaces
// the tool's reason.
func TestApplyTheme_EnableFails(t *testing.T) {
	run := &fakeMultiRunner{}
	run.ExecuteFn = func(ctx context.Context, command string) (*sshexec.CommandResult, error) {
		if strings.Contains(command, "theme enable") {
			return &sshexec.CommandResult{ExitCode: 1, Stderr: "Error: 'astra' is not an installed theme.\n"}, nil
		}
		return &sshexec.CommandResult{Command: command}, nil
	}
	c := newTestClient()

	err := c.ApplyTheme(context.Background(), run, "https://myblog.example.app", "astra")
	var toolErr *wpcli.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Reason != "'astra' is not an installed theme." {
		t.Errorf("unexpected reason: %q", toolErr.Reason)
	}
	if len(run.Commands) != 1 {
		t.Errorf("expected activation to be skipped, ran %v", run.Commands)
	}
}

// Test: an empty theme is a no-op.
func TestApplyTheme_NoTheme(t *testing.T) {
	run := &fakeMultiRunner{}
	c := newTestClient()

	if err := c.ApplyTheme(context.Background(), run, "https://myblog.example.app", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.Commands) != 0 {
		t.Errorf("expected no commands, ran %v", run.Commands)
	}
}
