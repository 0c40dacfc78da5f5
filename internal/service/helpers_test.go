package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PaymentService", "paymentservice"},
		{"Payment Service", "payment-service"},
		{"SAP Gateway (EU)", "sap-gateway-eu"},
		{"--Already--Slugged--", "already-slugged"},
		{"Sensor 042", "sensor-042"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}

	long := slugify(strings.Repeat("a", 250))
	assert.Len(t, long, 100)
}

func TestMarkSyncOutcome(t *testing.T) {
	p := &domain.Principal{ID: uuid.New(), SyncStatus: domain.SyncStatusPending}

	markSyncOutcome(p, "enable", errors.New("idp down"))
	assert.Equal(t, domain.SyncStatusFailed, p.SyncStatus)
	assert.Equal(t, 1, p.SyncRetryCount)

	markSyncOutcome(p, "enable", errors.New("idp still down"))
	assert.Equal(t, 2, p.SyncRetryCount)

	markSyncOutcome(p, "enable", nil)
	assert.Equal(t, domain.SyncStatusSynced, p.SyncStatus)
	assert.Zero(t, p.SyncRetryCount)
}
