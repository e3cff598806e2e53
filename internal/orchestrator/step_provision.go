package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/domain"
)

// ProvisionSite handles site/provision: it drives the provisioning manager
// and flips the Site's status based on the tagged result. Consumers only
// ever see domain state (ACTIVE or PROVISION_FAILED), never transport
// detail.
func (s *Steps) ProvisionSite(ctx context.Context, event *domain.Event) *StepResult {
	var payload domain.ProvisionSitePayload
	if err := decodePayload(event, &payload); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	site, err := s.sites.GetByID(ctx, payload.SiteID)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	// Redelivery safety: a site that already finished provisioning is done.
	if site.Status == domain.SiteActive {
		s.logger.Info("site already active, skipping provision",
			zap.String("site_id", site.SiteID.String()),
		)
		return stepOK()
	}

	if err := s.sites.UpdateStatus(ctx, site.SiteID, domain.SiteProvisioning); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	result := s.provisioner.Create(ctx, payload.Subdomain, site.Title, s.contactEmail, site.Theme)
	if !result.OK {
		// SITE_EXISTS on a redelivered event means a previous attempt got
		// through; treat it as success if our record already points there.
		if result.Error.Code == domain.CodeSiteExists && site.RemoteSiteID != 0 {
			if err := s.sites.UpdateStatus(ctx, site.SiteID, domain.SiteActive); err != nil {
				return stepFail(domain.CodeUnknown, err.Error())
			}
			return stepOK()
		}

		return stepFail(result.Error.Code, result.Error.Message)
	}

	encrypted, err := s.crypter.Seal(result.Data.Credentials.Password)
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	credID, err := uuid.NewV7()
	if err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}
	cred := &domain.Credential{
		CredentialID:      credID,
		SiteID:            site.SiteID,
		Username:          result.Data.Credentials.Username,
		EncryptedPassword: encrypted,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	if err := s.sites.SetProvisioned(ctx, site.SiteID, result.Data.SiteID, result.Data.URL); err != nil {
		return stepFail(domain.CodeUnknown, err.Error())
	}

	s.logger.Info("site provisioned",
		zap.String("site_id", site.SiteID.String()),
		zap.String("url", result.Data.URL),
	)

	return stepOK()
}

// provisionFailed marks the site PROVISION_FAILED once the job is terminal.
func (s *Steps) provisionFailed(ctx context.Context, event *domain.Event, result *StepResult) {
	var payload domain.ProvisionSitePayload
	if err := decodePayload(event, &payload); err != nil {
		s.logger.Error("failure hook: bad payload", zap.Error(err))
		return
	}
	if err := s.sites.UpdateStatus(ctx, payload.SiteID, domain.SiteProvisionFailed); err != nil {
		s.logger.Error("failure hook: update site status",
			zap.String("site_id", payload.SiteID.String()),
			zap.Error(err),
		)
	}
}
