package agentregistry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archiveflow/coordinator/model"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()
	r.Register(context.Background(), model.AgentRecord{Name: "metadata-worker", Kind: model.AgentKindMetadata, BaseURL: "http://localhost:8081"})

	rec, err := r.Get("metadata-worker")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8081", rec.BaseURL)
}

func TestGetUnknownIsNotFound(t *testing.T) {
	r := New()
	_, err := r.Get("nope")
	require.Error(t, err)
}

func TestListReturnsDefensiveCopy(t *testing.T) {
	r := New()
	r.Register(context.Background(), model.AgentRecord{Name: "a", Kind: model.AgentKindMetadata, BaseURL: "http://a"})

	list := r.List()
	require.Len(t, list, 1)
	list[0].BaseURL = "mutated"

	second := r.List()
	require.Len(t, second, 1)
	require.Equal(t, "http://a", second[0].BaseURL)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	r := New()
	r.Register(context.Background(), model.AgentRecord{Name: "a", Kind: model.AgentKindMetadata, BaseURL: "http://a"})
	r.Unregister("a")
	r.Unregister("a")

	_, err := r.Get("a")
	require.Error(t, err)
}

func TestGetByKindReturnsFirstMatch(t *testing.T) {
	r := New()
	r.Register(context.Background(), model.AgentRecord{Name: "conversion-worker", Kind: model.AgentKindConversion, BaseURL: "http://c"})

	rec, err := r.GetByKind(model.AgentKindConversion)
	require.NoError(t, err)
	require.Equal(t, "conversion-worker", rec.Name)

	_, err = r.GetByKind(model.AgentKindEvaluation)
	require.Error(t, err)
}

func TestReregisterUnderSameNameUpserts(t *testing.T) {
	r := New()
	r.Register(context.Background(), model.AgentRecord{Name: "a", BaseURL: "http://old"})
	r.Register(context.Background(), model.AgentRecord{Name: "a", BaseURL: "http://new"})

	rec, err := r.Get("a")
	require.NoError(t, err)
	require.Equal(t, "http://new", rec.BaseURL)
	require.Len(t, r.List(), 1)
}
