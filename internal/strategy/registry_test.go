package strategy

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	maker := NewSpreadQuoter(quoterConfig(), NewPositionTracker("maker-1"),
		NewCapitalManager(decimal.RequireFromString("1000")), testLogger())
	reg.Register(maker.Name(), maker)

	got, err := reg.Get("spread_quoter")
	require.NoError(t, err)
	assert.Same(t, maker, got)

	_, err = reg.Get("momentum")
	assert.Error(t, err)

	assert.Equal(t, []string{"spread_quoter"}, reg.List())
}

func TestRegistryListInfoStartsPending(t *testing.T) {
	reg := NewRegistry()
	maker := NewSpreadQuoter(quoterConfig(), NewPositionTracker("maker-1"),
		NewCapitalManager(decimal.RequireFromString("1000")), testLogger())
	reg.Register(maker.Name(), maker)

	infos := reg.ListInfo()
	require.Len(t, infos, 1)
	assert.Equal(t, "spread_quoter", infos[0].Name)
	assert.Equal(t, "pending", infos[0].Status)
}

func TestRuntimeReportsActiveCounters(t *testing.T) {
	reg := NewRegistry()
	maker := NewSpreadQuoter(quoterConfig(), NewPositionTracker("maker-1"),
		NewCapitalManager(decimal.RequireFromString("1000")), testLogger())
	reg.Register(maker.Name(), maker)

	sub := &fakeSubmitter{}
	q := NewQuoter(maker, sub, &fakeDepth{snap: depthWith("99.00", "101.00")}, 0, 0, testLogger())
	rt := NewRuntime(reg, maker.Name(), q)

	assert.Equal(t, "spread_quoter", rt.ActiveName())

	infos := rt.ListInfo()
	require.Len(t, infos, 1)
	assert.Equal(t, "running", infos[0].Status)
	assert.Equal(t, int64(0), infos[0].OrdersSent)
	assert.Nil(t, infos[0].LastOrderAt)

	require.NoError(t, maker.Init(context.Background()))
	q.requote(context.Background())

	infos = rt.ListInfo()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(2), infos[0].OrdersSent)
	require.NotNil(t, infos[0].LastOrderAt)
	assert.False(t, infos[0].LastOrderAt.IsZero())
}
