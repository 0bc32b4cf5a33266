package stream

// Topic names shared between producers and consumers so the two sides can
// never drift apart.
const (
	// WithdrawalUpdatedTopic carries the latest snapshot of a withdrawal request after every status change
	WithdrawalUpdatedTopic = "withdrawal.updated"

	// WalletCreditedTopic carries referral bonus credits so the referrer can be notified
	WalletCreditedTopic = "wallet.credited"
)

// WithdrawalEvent is the payload produced whenever a withdrawal request is
// created or changes status. Consumers use it to notify the request owner.
type WithdrawalEvent struct {
	WithdrawalID string `json:"withdrawal_id"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Amount       string `json:"amount"`
	NetAmount    string `json:"net_amount"`
	Status       string `json:"status"`
	Note         string `json:"note,omitempty"`
}

// WalletCreditedEvent is produced when a wallet is credited outside a
// request cycle, such as a referral bonus landing after a confirmed
// subscription payment.
type WalletCreditedEvent struct {
	UserID   string `json:"user_id"`
	Amount   string `json:"amount"`
	Reason   string `json:"reason"`
	SourceID string `json:"source_id"`
}
