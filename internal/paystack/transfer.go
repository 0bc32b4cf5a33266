package paystack

import (
	"context"
	"fmt"
)

type Recipient struct {
	RecipientCode string `json:"recipient_code"`
	Type          string `json:"type"`
	Name          string `json:"name"`
}

type Transfer struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"` // kobo
}

// CreateTransferRecipient registers a bank account to pay out to and returns
// a reusable recipient code.
func (c *Client) CreateTransferRecipient(ctx context.Context, accountName, accountNumber, bankCode string) (*Recipient, error) {
	result := new(envelope[Recipient])

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"type":           "nuban",
			"name":           accountName,
			"account_number": accountNumber,
			"bank_code":      bankCode,
			"currency":       "NGN",
		}).
		SetResult(result).
		Post("/transferrecipient")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() || !result.Status {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, result.Message)
	}

	return &result.Data, nil
}

// InitiateTransfer starts a payout of amountKobo to a recipient. The
// reference we pass is how the eventual transfer.success/failed webhook maps
// back to our withdrawal request.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amountKobo int64, reference, reason string) (*Transfer, error) {
	result := new(envelope[Transfer])

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"source":    "balance",
			"recipient": recipientCode,
			"amount":    amountKobo,
			"reference": reference,
			"reason":    reason,
		}).
		SetResult(result).
		Post("/transfer")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() || !result.Status {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, result.Message)
	}

	return &result.Data, nil
}

type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ListBanks fetches the Nigerian bank list used to validate bank codes.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	result := new(envelope[[]Bank])

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(result).
		SetQueryParam("country", "nigeria").
		Get("/bank")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() || !result.Status {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, result.Message)
	}

	return result.Data, nil
}
