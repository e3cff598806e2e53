package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names. An event name doubles as the AMQP routing key, so step
// functions are bound to these exact strings in the orchestrator registry.
const (
	EventSiteProvision   = "site/provision"
	EventProductAnalyze  = "product/analyze"
	EventArticleGenerate = "article/generate"
	EventPublishSync     = "publish/sync"
	EventScheduleTrigger = "schedule/trigger-manual"
)

// Event is an immutable named message carrying a typed payload. Events are
// the sole trigger for workflow steps; delivery is at-least-once, so every
// step must tolerate redelivery of the same event.
type Event struct {
	Name      string          `json:"name"`
	JobID     uuid.UUID       `json:"job_id"`
	Data      json.RawMessage `json:"data"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// ProvisionSitePayload is the data carried by a site/provision event.
type ProvisionSitePayload struct {
	SiteID    uuid.UUID `json:"siteId"`
	UserID    uuid.UUID `json:"userId"`
	Subdomain string    `json:"subdomain"`
	Title     string    `json:"title,omitempty"`
	Theme     string    `json:"theme,omitempty"`
}

// AnalyzeMode selects how the product analysis gathers its source material.
type AnalyzeMode string

const (
	AnalyzeModeURL         AnalyzeMode = "url"
	AnalyzeModeInteractive AnalyzeMode = "interactive"
	AnalyzeModeResearch    AnalyzeMode = "research"
)

// AnalyzeProductPayload is the data carried by a product/analyze event.
type AnalyzeProductPayload struct {
	ProductID uuid.UUID   `json:"productId"`
	Mode      AnalyzeMode `json:"mode"`
	URL       string      `json:"url,omitempty"`
}

// GenerateArticlePayload is the data carried by an article/generate event.
type GenerateArticlePayload struct {
	ArticleID     uuid.UUID  `json:"articleId"`
	ProductID     uuid.UUID  `json:"productId"`
	TargetKeyword string     `json:"targetKeyword"`
	ClusterID     *uuid.UUID `json:"clusterId,omitempty"`
}

// PublishAction selects what the publish step does with the remote post.
type PublishAction string

const (
	PublishActionCreate PublishAction = "create"
	PublishActionUpdate PublishAction = "update"
	PublishActionDelete PublishAction = "delete"
)

// PublishSyncPayload is the data carried by a publish/sync event.
type PublishSyncPayload struct {
	ArticleID uuid.UUID     `json:"articleId"`
	SiteID    uuid.UUID     `json:"siteId"`
	Action    PublishAction `json:"action"`
}

// ScheduleTriggerPayload is the data carried by a schedule/trigger-manual event.
type ScheduleTriggerPayload struct {
	ScheduleID uuid.UUID `json:"scheduleId"`
}

// KindForEvent maps an event name to the job kind responsible for it.
func KindForEvent(name string) (JobKind, bool) {
	switch name {
	case EventSiteProvision:
		return KindProvisionSite, true
	case EventProductAnalyze:
		return KindAnalyzeProduct, true
	case EventArticleGenerate, EventScheduleTrigger:
		return KindGenerateArticle, true
	case EventPublishSync:
		return KindSyncPublish, true
	}
	return "", false
}
