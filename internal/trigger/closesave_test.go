package trigger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/trigger"
)

func TestCloseSaveDisambiguator_CloseInsideGraceIsSaveOnClose(t *testing.T) {
	t.Parallel()

	d := trigger.NewCloseSaveDisambiguator(time.Hour, time.Hour)

	d.WillSave("doc")
	assert.True(t, d.DidClose("doc"))
	assert.True(t, d.SuppressSave("doc"))
}

func TestCloseSaveDisambiguator_CloseWithoutWillSaveIsOrdinary(t *testing.T) {
	t.Parallel()

	d := trigger.NewCloseSaveDisambiguator(time.Hour, time.Hour)

	assert.False(t, d.DidClose("doc"))
	assert.False(t, d.SuppressSave("doc"))
}

func TestCloseSaveDisambiguator_GraceExpiryClearsSuspicion(t *testing.T) {
	t.Parallel()

	d := trigger.NewCloseSaveDisambiguator(15*time.Millisecond, time.Hour)

	d.WillSave("doc")
	require.Eventually(t, func() bool { return !d.SuppressSave("doc") }, waitFor, tick)

	assert.False(t, d.DidClose("doc"))
}

func TestCloseSaveDisambiguator_ClosingMarkSelfClears(t *testing.T) {
	t.Parallel()

	d := trigger.NewCloseSaveDisambiguator(time.Hour, 15*time.Millisecond)

	d.WillSave("doc")
	require.True(t, d.DidClose("doc"))
	require.True(t, d.SuppressSave("doc"))

	require.Eventually(t, func() bool { return !d.SuppressSave("doc") }, waitFor, tick)
}

func TestCloseSaveDisambiguator_KeysAreIndependent(t *testing.T) {
	t.Parallel()

	d := trigger.NewCloseSaveDisambiguator(time.Hour, time.Hour)

	d.WillSave("a")
	require.True(t, d.DidClose("a"))

	assert.False(t, d.DidClose("b"))
	assert.False(t, d.SuppressSave("b"))
	assert.True(t, d.SuppressSave("a"))
}

func TestCloseSaveDisambiguator_PendingWillSaveSuppressesSavePath(t *testing.T) {
	t.Parallel()

	d := trigger.NewCloseSaveDisambiguator(time.Hour, time.Hour)

	d.WillSave("doc")
	assert.True(t, d.SuppressSave("doc"))
}
