package claim

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/reminder-service/internal/campaign"
)

func TestTryClaimExactlyOneWinner(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	apptID := uuid.New()
	key := campaign.ReminderKey(1)

	const racers = 64
	var wins int64
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelSMS)
			require.NoError(t, err)
			if won {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)

	c, err := store.Get(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, StatusClaimed, c.Status)
	assert.Equal(t, 1, c.Attempts)
}

func TestClaimsAreIndependentPerKeyAndChannel(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	apptID := uuid.New()

	won, err := store.TryClaim(ctx, apptID, campaign.ReminderKey(0), campaign.ChannelSMS)
	require.NoError(t, err)
	assert.True(t, won)

	// Same appointment: a different interval and a different channel are
	// separately claimable.
	won, err = store.TryClaim(ctx, apptID, campaign.ReminderKey(1), campaign.ChannelSMS)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.TryClaim(ctx, apptID, campaign.ReminderKey(0), campaign.ChannelEmail)
	require.NoError(t, err)
	assert.True(t, won)

	// A different appointment does not contend at all.
	won, err = store.TryClaim(ctx, uuid.New(), campaign.ReminderKey(0), campaign.ChannelSMS)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestDeliveredIsTerminal(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	apptID := uuid.New()
	key := campaign.EventKey(campaign.TypeConfirmation)

	won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, store.RecordOutcome(ctx, apptID, key, campaign.ChannelSMS, OutcomeDelivered, ""))

	won, err = store.TryClaim(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	assert.False(t, won)

	c, err := store.Get(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, c.Status)
	assert.True(t, c.Status.Terminal())
}

func TestTransientFailureRetriesUntilExhausted(t *testing.T) {
	const maxRetries = 3
	store := NewMemoryStore(maxRetries)
	ctx := context.Background()
	apptID := uuid.New()
	key := campaign.ReminderKey(2)

	// maxRetries+1 total claims succeed, each followed by a transient
	// failure; the last one lands on failed_exhausted.
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelEmail)
		require.NoError(t, err)
		require.True(t, won, "attempt %d", attempt)

		require.NoError(t, store.RecordOutcome(ctx, apptID, key, campaign.ChannelEmail, OutcomeTransientFailure, "gateway timeout"))
	}

	c, err := store.Get(ctx, apptID, key, campaign.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, StatusFailedExhausted, c.Status)
	assert.Equal(t, maxRetries+1, c.Attempts)
	require.NotNil(t, c.LastError)
	assert.Equal(t, "gateway timeout", *c.LastError)

	// Exhausted keys are never claimable again.
	won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelEmail)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestPermanentFailureSkipsRetry(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	apptID := uuid.New()
	key := campaign.EventKey(campaign.TypeNoShow)

	won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, store.RecordOutcome(ctx, apptID, key, campaign.ChannelSMS, OutcomePermanentFailure, "invalid number"))

	won, err = store.TryClaim(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestSkippedIsTerminal(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	apptID := uuid.New()
	key := campaign.EventKey(campaign.TypeCancellation)

	won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelEmail)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, store.RecordOutcome(ctx, apptID, key, campaign.ChannelEmail, OutcomeSkipped, "no eligible contact"))

	won, err = store.TryClaim(ctx, apptID, key, campaign.ChannelEmail)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestRecordOutcomeRequiresClaimedState(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	apptID := uuid.New()
	key := campaign.EventKey(campaign.TypeConfirmation)

	err := store.RecordOutcome(ctx, apptID, key, campaign.ChannelSMS, OutcomeDelivered, "")
	assert.ErrorIs(t, err, ErrNotClaimed)

	won, err := store.TryClaim(ctx, apptID, key, campaign.ChannelSMS)
	require.NoError(t, err)
	require.True(t, won)
	require.NoError(t, store.RecordOutcome(ctx, apptID, key, campaign.ChannelSMS, OutcomeDelivered, ""))

	// Double outcome is rejected, not silently applied.
	err = store.RecordOutcome(ctx, apptID, key, campaign.ChannelSMS, OutcomeDelivered, "")
	assert.ErrorIs(t, err, ErrNotClaimed)
}

func TestGetUnknownClaim(t *testing.T) {
	store := NewMemoryStore(3)

	_, err := store.Get(context.Background(), uuid.New(), campaign.ReminderKey(0), campaign.ChannelSMS)
	assert.ErrorIs(t, err, ErrClaimNotFound)
}
