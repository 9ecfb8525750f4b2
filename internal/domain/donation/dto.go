package donation

import "github.com/google/uuid"

type StartDonationRequest struct {
	ChurchID        string `json:"church_id" validate:"required,max=64,excludesall=0x7C"`
	ProjectID       string `json:"project_id" validate:"omitempty,max=64,excludesall=0x7C"`
	DonorID         string `json:"donor_id" validate:"omitempty,max=64,excludesall=0x7C"`
	Amount          string `json:"amount" validate:"required,max=16"`
	ItemName        string `json:"item_name" validate:"omitempty,max=100"`
	ItemDescription string `json:"item_description" validate:"omitempty,max=255"`
	NameFirst       string `json:"name_first" validate:"omitempty,max=100"`
	NameLast        string `json:"name_last" validate:"omitempty,max=100"`
	EmailAddress    string `json:"email_address" validate:"omitempty,email,max=100"`
}

type StartDonationResponse struct {
	TransactionID     uuid.UUID `json:"transaction_id"`
	MerchantPaymentID string    `json:"m_payment_id"`
	RedirectURL       string    `json:"redirect_url"`
}

// Result describes what reconciliation did with an authenticated notification.
type Result struct {
	Outcome       NotificationOutcome `json:"outcome"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	Status        TransactionStatus   `json:"status"`
}
