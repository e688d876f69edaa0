package repository

import (
	"github.com/fitcoach/fitcoach/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateIfNotExists(payment *models.Payment) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *paymentRepository) GetByID(id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// CountPaidByUser counts the user's payments whose invoice ended up paid.
func (r *paymentRepository) CountPaidByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("user_id = ? AND invoice_status = ?", userID, models.InvoiceStatusPaid).
		Count(&count).Error
	return count, err
}

func (r *paymentRepository) ListByUser(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&payments).Error
	return payments, err
}
