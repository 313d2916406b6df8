package convstore_test

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/convstore"
	"github.com/casatico/stayfly/internal/model"
	"github.com/casatico/stayfly/internal/retrieval"
	"github.com/casatico/stayfly/internal/store"
)

func TestGetOrCreateStartsNewConversationWhenIDIsNil(t *testing.T) {
	s := store.NewMemoryStore()
	tenant := &model.Tenant{Slug: "acme"}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))

	cs := convstore.New(s)
	conv, err := cs.GetOrCreate(context.Background(), tenant.ID, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, nil, conv.ID)
}

func TestAppendAssistantMessageIncrementsAggregatesAndStoresSources(t *testing.T) {
	s := store.NewMemoryStore()
	tenant := &model.Tenant{Slug: "acme"}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))

	cs := convstore.New(s)
	conv, err := cs.GetOrCreate(context.Background(), tenant.ID, nil, nil)
	require.NoError(t, err)

	sources := []model.SourceRef{{ContentType: model.DocumentContentTypeRealEstate, Score: 0.9}}
	require.NoError(t, cs.AppendAssistantMessage(context.Background(), conv.ID, "answer", "gpt-cheap", 100, 50, 0.002, sources))

	got, err := s.GetConversation(context.Background(), tenant.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Totals.InputTokens)
	assert.Equal(t, 50, got.Totals.OutputTokens)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Sources, 1)
}

func TestSnapshotTruncatesLongExcerpt(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	cand := retrieval.Candidate{
		Document: model.Document{Content: string(long)},
	}
	ref := convstore.Snapshot(cand)
	assert.LessOrEqual(t, utf8.RuneCountInString(ref.Excerpt), 201)
}

func TestRecentTurnsReturnsTailOnly(t *testing.T) {
	conv := &model.Conversation{}
	for i := 0; i < 5; i++ {
		conv.AddUserMessage(model.Message{Content: "msg"})
	}
	recent := convstore.RecentTurns(conv, 2)
	assert.Len(t, recent, 2)
}
