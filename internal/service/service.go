package service

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/pkg/events"
)

// Clock supplies the current time. Injected so tests can pin it.
type Clock func() time.Time

func defaultClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// publish emits a domain event after the surrounding transaction committed.
// Event delivery is at-least-once and never fails the operation.
func publish(ctx context.Context, pub events.Publisher, event domain.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event.Name, event); err != nil {
		log.Printf("[EVENTS] Failed to publish %s for principal %s: %v", event.Name, event.PrincipalID, err)
	}
}

// markSyncOutcome records the result of a best-effort IdP call on the
// principal. Failures are logged and counted, never propagated.
func markSyncOutcome(p *domain.Principal, operation string, err error) {
	if err != nil {
		log.Printf("[IDP] Best-effort %s failed for principal %s: %v", operation, p.ID, err)
		p.SyncStatus = domain.SyncStatusFailed
		p.SyncRetryCount++
		return
	}
	p.SyncStatus = domain.SyncStatusSynced
	p.SyncRetryCount = 0
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify converts a display identifier into a lowercase username-safe form.
func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 100 {
		slug = slug[:100]
	}
	return slug
}
