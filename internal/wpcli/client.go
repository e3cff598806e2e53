// Package wpcli drives site lifecycle operations on the remote multisite
// install by composing wp-cli invocations and parsing their output.
package wpcli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/sshexec"
)

// Runner executes commands on the remote host. Satisfied by
// *sshexec.Session; tests substitute a fake.
type Runner interface {
	Execute(ctx context.Context, command string) (*sshexec.CommandResult, error)
}

// MultiRunner additionally runs command sequences that stop at the first
// non-zero exit. Satisfied by *sshexec.Session.
type MultiRunner interface {
	Runner
	ExecuteMany(ctx context.Context, commands []string) ([]*sshexec.CommandResult, error)
}

// ToolError is returned when wp-cli ran but reported failure or produced
// output the client cannot parse. It is never an empty success.
type ToolError struct {
	Op     string
	Reason string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("wpcli: %s: %s", e.Op, e.Reason)
}

// CreatedSite is the outcome of a successful site creation.
type CreatedSite struct {
	SiteID int
	URL    string
}

// AppPassword is a scoped credential issued for one site.
type AppPassword struct {
	Username string
	Password string
	ItemID   string
}

// Client wraps a Runner with wp-cli site management operations.
type Client struct {
	wpPath     string
	baseDomain string
	logger     *zap.Logger
}

// NewClient creates a site control client. wpPath is the WordPress install
// path on the remote host; baseDomain is the apex under which subdomain
// sites live.
func NewClient(wpPath, baseDomain string, logger *zap.Logger) *Client {
	return &Client{wpPath: wpPath, baseDomain: baseDomain, logger: logger}
}

// SiteURL returns the canonical URL a slug maps to.
func (c *Client) SiteURL(slug string) string {
	return fmt.Sprintf("https://%s.%s", slug, c.baseDomain)
}

// SiteExists checks whether a site with the given slug already exists in
// the multisite network.
func (c *Client) SiteExists(ctx context.Context, run Runner, slug string) (bool, error) {
	cmd := fmt.Sprintf("wp site list --path=%s --field=url --format=csv", shellQuote(c.wpPath))
	res, err := run.Execute(ctx, cmd)
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, &ToolError{Op: "site list", Reason: firstLine(res.Stderr)}
	}

	want := c.SiteURL(slug)
	for _, line := range strings.Split(res.Stdout, "\n") {
		url := strings.TrimRight(strings.TrimSpace(line), "/")
		if url == "" || url == "url" {
			continue
		}
		if url == want {
			return true, nil
		}
	}
	return false, nil
}

// CreateSite creates a new subdomain site and returns its provider-assigned
// id and URL. A non-zero exit reports the tool's failure reason.
func (c *Client) CreateSite(ctx context.Context, run Runner, slug, title, email string) (*CreatedSite, error) {
	cmd := fmt.Sprintf(
		"wp site create --path=%s --slug=%s --title=%s --email=%s --porcelain",
		shellQuote(c.wpPath), shellQuote(slug), shellQuote(title), shellQuote(email),
	)
	res, err := run.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		reason := firstLine(res.Stderr)
		if reason == "" {
			reason = firstLine(res.Stdout)
		}
		if reason == "" {
			reason = fmt.Sprintf("wp site create exited %d", res.ExitCode)
		}
		return nil, &ToolError{Op: "site create", Reason: reason}
	}

	// --porcelain prints only the new blog id.
	id, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return nil, &ToolError{Op: "site create", Reason: "unparsable site id: " + firstLine(res.Stdout)}
	}

	c.logger.Info("site created",
		zap.String("slug", slug),
		zap.Int("remote_site_id", id),
	)

	return &CreatedSite{SiteID: id, URL: c.SiteURL(slug)}, nil
}

// CreateAppPassword issues a site-scoped application password for the given
// user. Returns nil (no error) when wp-cli refuses, so the caller decides
// how to surface the failure.
func (c *Client) CreateAppPassword(ctx context.Context, run Runner, siteURL, user string) (*AppPassword, error) {
	name := "pressmill-" + uuid.NewString()[:8]
	cmd := fmt.Sprintf(
		"wp user application-password create %s %s --path=%s --url=%s --porcelain",
		shellQuote(user), shellQuote(name), shellQuote(c.wpPath), shellQuote(siteURL),
	)
	res, err := run.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		c.logger.Warn("application password creation refused",
			zap.String("site_url", siteURL),
			zap.String("reason", firstLine(res.Stderr)),
		)
		return nil, nil
	}

	password := strings.TrimSpace(res.Stdout)
	if password == "" {
		return nil, &ToolError{Op: "application-password create", Reason: "empty porcelain output"}
	}

	return &AppPassword{Username: user, Password: password, ItemID: name}, nil
}

// ApplyTheme enables the theme on the network and activates it for one
// site. The two commands run as a sequence: activation is skipped when
// enabling fails.
func (c *Client) ApplyTheme(ctx context.Context, run MultiRunner, siteURL, theme string) error {
	if theme == "" {
		return nil
	}

	cmds := []string{
		fmt.Sprintf("wp theme enable %s --network --path=%s", shellQuote(theme), shellQuote(c.wpPath)),
		fmt.Sprintf("wp theme activate %s --path=%s --url=%s", shellQuote(theme), shellQuote(c.wpPath), shellQuote(siteURL)),
	}
	results, err := run.ExecuteMany(ctx, cmds)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return &ToolError{Op: "theme setup", Reason: "no commands ran"}
	}

	last := results[len(results)-1]
	if last.ExitCode != 0 {
		reason := firstLine(last.Stderr)
		if reason == "" {
			reason = fmt.Sprintf("theme command exited %d", last.ExitCode)
		}
		return &ToolError{Op: "theme setup", Reason: reason}
	}

	c.logger.Info("theme applied",
		zap.String("site_url", siteURL),
		zap.String("theme", theme),
	)
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "Error: ")
}

// shellQuote single-quotes an argument for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
