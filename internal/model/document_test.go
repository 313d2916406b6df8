package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/casatico/stayfly/internal/model"
)

func TestDocumentIsFresh(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	d := &model.Document{FreshnessDate: now.AddDate(0, -2, 0)}
	assert.True(t, d.IsFresh(now, 180*24*time.Hour))
	assert.False(t, d.IsFresh(now, 30*24*time.Hour))
}

func TestDocumentVisibleTo(t *testing.T) {
	d := &model.Document{Visibility: model.NewVisibilitySet(model.RoleTourist, model.RoleBuyer)}
	assert.True(t, d.VisibleTo(model.RoleTourist))
	assert.False(t, d.VisibleTo(model.RoleVendor))
}

func TestRetrievalStatsRecordRetrievalEMA(t *testing.T) {
	var s model.RetrievalStats
	s.RecordRetrieval(0.8, 0.5)
	assert.Equal(t, 1, s.TimesRetrieved)
	assert.Equal(t, 0.8, s.AvgRelevanceScore)

	s.RecordRetrieval(0.4, 0.5)
	assert.Equal(t, 2, s.TimesRetrieved)
	assert.InDelta(t, 0.6, s.AvgRelevanceScore, 1e-9)
}
