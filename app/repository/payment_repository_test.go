package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/fitcoach/app/models"
	"github.com/fitcoach/fitcoach/internal/pkg/database/databasetest"
)

func TestPaymentCreateIfNotExists(t *testing.T) {
	db := databasetest.Open(t)
	repo := NewPaymentRepository(db)

	uid := uint(7)
	first := &models.Payment{ID: "evt_1", Status: models.PaymentStatusSucceeded, Amount: 4900, InvoiceStatus: models.InvoiceStatusPaid, UserID: &uid}
	created, err := repo.CreateIfNotExists(first)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &models.Payment{ID: "evt_1", Status: models.PaymentStatusFailed, Amount: 1}
	created, err = repo.CreateIfNotExists(dup)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := repo.GetByID("evt_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSucceeded, stored.Status)
	assert.Equal(t, int64(4900), stored.Amount)
}

func TestPaymentCountPaidByUser(t *testing.T) {
	db := databasetest.Open(t)
	repo := NewPaymentRepository(db)

	uid := uint(3)
	other := uint(4)
	rows := []*models.Payment{
		{ID: "evt_a", Status: models.PaymentStatusSucceeded, InvoiceStatus: models.InvoiceStatusPaid, UserID: &uid},
		{ID: "evt_b", Status: models.PaymentStatusFailed, InvoiceStatus: "open", UserID: &uid},
		{ID: "evt_c", Status: models.PaymentStatusSucceeded, InvoiceStatus: models.InvoiceStatusPaid, UserID: &other},
		{ID: "evt_d", Status: models.PaymentStatusFailed, InvoiceStatus: "open"},
	}
	for _, p := range rows {
		_, err := repo.CreateIfNotExists(p)
		require.NoError(t, err)
	}

	count, err := repo.CountPaidByUser(uid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	list, err := repo.ListByUser(uid)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
