package repository

import (
	"time"

	"github.com/fitcoach/fitcoach/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	Count() (int64, error)
}

// PaymentRepository defines the interface for the append-only payment ledger
type PaymentRepository interface {
	// CreateIfNotExists inserts the payment unless a row with the same id
	// exists. It reports whether a row was written.
	CreateIfNotExists(payment *models.Payment) (bool, error)
	GetByID(id string) (*models.Payment, error)
	CountPaidByUser(userID uint) (int64, error)
	ListByUser(userID uint) ([]models.Payment, error)
}

// FormRepository defines the interface for form templates and responses
type FormRepository interface {
	CreateTemplate(template *models.FormTemplate) error
	GetTemplate(id uint) (*models.FormTemplate, error)
	ListActiveTemplates() ([]models.FormTemplate, error)
	GetResponse(id string) (*models.FormResponse, error)
	FindResponse(userID, templateID uint) (*models.FormResponse, error)
	ListResponsesByUser(userID uint) ([]models.FormResponse, error)
	// CreateResponse writes the response, its answers and selected options atomically.
	CreateResponse(response *models.FormResponse) error
	// ReplaceAnswers deletes every answer of the response, writes the new set
	// and stamps updatedAt, atomically.
	ReplaceAnswers(responseID string, answers []models.QuestionAnswer, updatedAt time.Time) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Payment PaymentRepository
	Form    FormRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Payment: NewPaymentRepository(db),
		Form:    NewFormRepository(db),
	}
}
