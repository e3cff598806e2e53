package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// SiteStatus represents the lifecycle state of a hosted blog instance.
type SiteStatus string

const (
	SitePending         SiteStatus = "PENDING"
	SiteProvisioning    SiteStatus = "PROVISIONING"
	SiteActive          SiteStatus = "ACTIVE"
	SiteProvisionFailed SiteStatus = "PROVISION_FAILED"
	SiteSuspended       SiteStatus = "SUSPENDED"
	SiteDeleted         SiteStatus = "DELETED"
)

// Site represents one hosted blog instance. The slug is globally unique;
// status transitions are driven exclusively by the provisioning workflow.
type Site struct {
	SiteID       uuid.UUID  `json:"site_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	URL          string     `json:"url,omitempty"`
	RemoteSiteID int        `json:"remote_site_id,omitempty"`
	Theme        string     `json:"theme,omitempty"`
	Status       SiteStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Credential is a site-scoped application password issued during
// provisioning. The password is stored encrypted; it is decrypted only at
// the moment the publish workflow needs it and must never be logged.
type Credential struct {
	CredentialID      uuid.UUID `json:"credential_id"`
	SiteID            uuid.UUID `json:"site_id"`
	Username          string    `json:"username"`
	EncryptedPassword []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])?$`)

// reservedSlugs are subdomains that can never be claimed by a user site.
var reservedSlugs = map[string]bool{
	"www": true, "api": true, "app": true, "admin": true, "mail": true,
	"blog": true, "dashboard": true, "staging": true, "dev": true,
	"test": true, "cdn": true, "static": true, "assets": true,
	"status": true, "support": true, "help": true, "docs": true,
}

// ValidSlug reports whether s is an acceptable subdomain slug: lowercase
// alphanumeric plus hyphens, 3-63 characters, not in the reserved set.
func ValidSlug(s string) bool {
	if len(s) < 3 || len(s) > 63 {
		return false
	}
	if !slugPattern.MatchString(s) {
		return false
	}
	return !reservedSlugs[s]
}
