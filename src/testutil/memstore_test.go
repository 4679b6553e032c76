package testutil

import (
	"apaeventus/src/models"
	"apaeventus/src/services"
	"apaeventus/src/types"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	paid := &models.Sale{TicketID: 1, UserID: 1}
	require.NoError(t, store.CreateSale(ctx, paid))

	started := make(chan struct{})
	release := make(chan struct{})
	txErr := make(chan error, 1)
	go func() {
		txErr <- store.Transaction(ctx, func(tx services.Store) error {
			close(started)
			<-release
			if err := tx.CreateSale(ctx, &models.Sale{TicketID: 1, UserID: 2}); err != nil {
				return err
			}
			return ErrInjected
		})
	}()
	<-started

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- store.MarkSalePaid(ctx, paid.ID, types.SaleArtifacts{PdfURL: "https://bucket.test/a.pdf"})
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, <-txErr, ErrInjected)
	require.NoError(t, <-writeErr)

	sales := store.Sales()
	require.Len(t, sales, 1)
	assert.Equal(t, types.PAYMENT_PAID, sales[0].PaymentStatus)
}

func TestClaimLease(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	claim := &models.CheckoutSession{ID: "cs_test_1", Status: types.CHECKOUT_OPEN}

	claimed, err := store.ClaimCheckoutSession(ctx, claim)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.ClaimCheckoutSession(ctx, claim)
	require.NoError(t, err)
	assert.False(t, claimed)

	stale, _ := store.Session("cs_test_1")
	stale.UpdatedAt = time.Now().Add(-services.ClaimLease - time.Second)
	store.PutSession(*stale)

	claimed, err = store.ClaimCheckoutSession(ctx, claim)
	require.NoError(t, err)
	assert.True(t, claimed)
	session, _ := store.Session("cs_test_1")
	assert.Equal(t, 2, session.Attempts)
}
