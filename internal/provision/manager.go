// Package provision orchestrates "create a new hosted site" as a single
// operation over the site control client.
package provision

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
	"github.com/pressmill/pressmill/internal/sshexec"
	"github.com/pressmill/pressmill/internal/wpcli"
)

// Credentials is the scoped secret issued for a freshly created site.
type Credentials struct {
	Username string
	Password string
}

// Success carries the outcome of a completed provisioning run.
type Success struct {
	SiteID      int
	URL         string
	Credentials Credentials
}

// Failure carries the classified reason provisioning did not complete.
type Failure struct {
	Code    domain.ErrorCode
	Message string
}

// Result is a tagged union: exactly one of Data or Error is set. Expected
// failure modes come back in Error, never as a returned error.
type Result struct {
	OK    bool
	Data  *Success
	Error *Failure
}

func failure(code domain.ErrorCode, msg string) *Result {
	return &Result{OK: false, Error: &Failure{Code: code, Message: msg}}
}

// RemoteSession is an acquired connection handle: commands run against it
// and it must be released when the operation finishes.
type RemoteSession interface {
	wpcli.MultiRunner
	Close() error
}

// Connector acquires remote sessions.
type Connector interface {
	Connect(ctx context.Context) (RemoteSession, error)
}

// SSHConnector adapts *sshexec.Client to the Connector interface.
type SSHConnector struct {
	Client *sshexec.Client
}

func (c SSHConnector) Connect(ctx context.Context) (RemoteSession, error) {
	return c.Client.Connect(ctx)
}

// SiteControl is the subset of wpcli.Client the manager drives.
type SiteControl interface {
	SiteExists(ctx context.Context, run wpcli.Runner, slug string) (bool, error)
	CreateSite(ctx context.Context, run wpcli.Runner, slug, title, email string) (*wpcli.CreatedSite, error)
	CreateAppPassword(ctx context.Context, run wpcli.Runner, siteURL, user string) (*wpcli.AppPassword, error)
	ApplyTheme(ctx context.Context, run wpcli.MultiRunner, siteURL, theme string) error
}

// Manager owns the connect/disconnect lifecycle around one provisioning run.
type Manager struct {
	connector Connector
	control   SiteControl
	adminUser string
	logger    *zap.Logger
}

// NewManager creates a provisioning manager. adminUser is the multisite
// account for which scoped application passwords are issued.
func NewManager(connector Connector, control SiteControl, adminUser string, logger *zap.Logger) *Manager {
	return &Manager{
		connector: connector,
		control:   control,
		adminUser: adminUser,
		logger:    logger,
	}
}

// Create provisions one site: existence check, creation, credential
// issuance, theme setup. The remote session is released on every exit
// path. Retrying is the caller's concern; Create never retries internally.
//
// When credential issuance fails the site has already been created and is
// left in place uncredentialed. This is a known, recoverable inconsistency:
// an operator (or a later run against a fresh slug) resolves it; nothing is
// rolled back automatically.
func (m *Manager) Create(ctx context.Context, slug, title, email, theme string) *Result {
	session, err := m.connector.Connect(ctx)
	if err != nil {
		return failure(domain.CodeSSHError, err.Error())
	}
	defer session.Close()

	exists, err := m.control.SiteExists(ctx, session, slug)
	if err != nil {
		return m.classify(err)
	}
	if exists {
		return failure(domain.CodeSiteExists, "site already exists: "+slug)
	}

	created, err := m.control.CreateSite(ctx, session, slug, title, email)
	if err != nil {
		return m.classify(err)
	}

	appPass, err := m.control.CreateAppPassword(ctx, session, created.URL, m.adminUser)
	if err != nil {
		return m.classify(err)
	}
	if appPass == nil {
		m.logger.Warn("site left uncredentialed after creation",
			zap.String("slug", slug),
			zap.Int("remote_site_id", created.SiteID),
		)
		return failure(domain.CodeWPCLIError, "Failed to create application password")
	}

	// Theme setup is best effort: a failure leaves the new site on the
	// network default rather than failing a site that already works.
	if err := m.control.ApplyTheme(ctx, session, created.URL, theme); err != nil {
		m.logger.Warn("theme setup failed, site stays on default theme",
			zap.String("slug", slug),
			zap.String("theme", theme),
			zap.Error(err),
		)
	}

	return &Result{
		OK: true,
		Data: &Success{
			SiteID: created.SiteID,
			URL:    created.URL,
			Credentials: Credentials{
				Username: appPass.Username,
				Password: appPass.Password,
			},
		},
	}
}

// classify maps component errors into the tagged failure taxonomy:
// transport faults become SSH_ERROR, tool failures become WP_CLI_ERROR.
func (m *Manager) classify(err error) *Result {
	var toolErr *wpcli.ToolError
	if errors.As(err, &toolErr) {
		return failure(domain.CodeWPCLIError, toolErr.Reason)
	}
	var connErr *sshexec.ConnectionError
	var execErr *sshexec.ExecError
	if errors.As(err, &connErr) || errors.As(err, &execErr) {
		return failure(domain.CodeSSHError, err.Error())
	}
	return failure(domain.CodeSSHError, err.Error())
}
