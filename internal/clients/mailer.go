package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NoticeEmail is the structured payload handed to the mail/PDF collaborator.
// The collaborator owns templates, HTML and PDF bytes; the core only supplies
// the figures and dates that go on the document.
type NoticeEmail struct {
	Recipient string `json:"recipient"`
	Template  string `json:"template"`

	CaseReference string `json:"case_reference"`
	DebtorName    string `json:"debtor_name"`

	Principal  string `json:"principal"`
	FeeAmount  string `json:"fee_amount"`
	LevyAmount string `json:"levy_amount"`
	TotalDue   string `json:"total_due"`
	Balance    string `json:"balance"`
	Currency   string `json:"currency"`

	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`

	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`

	InviteURL string `json:"invite_url,omitempty"`
}

// MailerClient talks to the document/mail renderer service.
type MailerClient struct {
	baseURL string
	http    *http.Client
}

func NewMailerClient(baseURL string, timeout time.Duration) *MailerClient {
	return &MailerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *MailerClient) SendNotice(ctx context.Context, email NoticeEmail) error {
	body, err := json.Marshal(email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notices/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mailer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mailer returned status %d for template %q", resp.StatusCode, email.Template)
	}
	return nil
}
