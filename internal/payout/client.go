// Package payout предоставляет клиент платёжного провайдера для выплат продавцам.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/Maithiliii/Flairies/internal/model"
)

// ErrProvider возвращается, когда провайдер отклонил запрос или не ответил
// в отведённое время.
var (
	ErrProvider = errors.New("payout provider error")
	// ErrNoPayoutMethod возвращается, если у продавца нет ни UPI,
	// ни пары счёт + IFSC. Проверяется до любого обращения к провайдеру.
	ErrNoPayoutMethod = errors.New("seller has no payout method")
)

// Client инкапсулирует HTTP-взаимодействие с провайдером выплат.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *retryablehttp.Client
}

// NewClient создаёт клиент провайдера выплат по указанному адресу.
// Транзиентные ошибки сети ретраятся внутри клиента; истечение общего
// таймаута трактуется вызывающим кодом как неуспех попытки.
func NewClient(baseURL, keyID, keySecret string) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 10 * time.Second
	c.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: c,
	}
}

type contactRequest struct {
	Name        string `json:"name"`
	Contact     string `json:"contact"`
	Type        string `json:"type"`
	ReferenceID string `json:"reference_id"`
}

type fundAccountRequest struct {
	ContactID   string       `json:"contact_id"`
	AccountType string       `json:"account_type"`
	VPA         *vpaDetails  `json:"vpa,omitempty"`
	BankAccount *bankDetails `json:"bank_account,omitempty"`
}

type vpaDetails struct {
	Address string `json:"address"`
}

type bankDetails struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
}

type payoutRequest struct {
	FundAccountID string `json:"fund_account_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Mode          string `json:"mode"`
	Purpose       string `json:"purpose"`
	ReferenceID   string `json:"reference_id"`
	Narration     string `json:"narration"`
}

type idResponse struct {
	ID string `json:"id"`
}

func (c *Client) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrProvider, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: %s: status %d: %s", ErrProvider, path, resp.StatusCode, respBody)
	}

	var result idResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %s: decode response: %s", ErrProvider, path, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: %s: empty id in response", ErrProvider, path)
	}

	return result.ID, nil
}

// CreateContact регистрирует продавца у провайдера и возвращает
// идентификатор контакта.
func (c *Client) CreateContact(ctx context.Context, p *model.SellerProfile) (string, error) {
	name := p.AccountHolderName
	if name == "" {
		name = fmt.Sprintf("seller_%d", p.UserID)
	}

	return c.post(ctx, "/contacts", contactRequest{
		Name:        name,
		Contact:     p.Phone,
		Type:        "vendor",
		ReferenceID: fmt.Sprintf("seller_%d", p.UserID),
	})
}

// CreateFundAccount создаёт у провайдера счёт назначения для продавца.
// UPI предпочитается банковскому счёту; при отсутствии реквизитов
// возвращается ErrNoPayoutMethod без обращения к провайдеру.
func (c *Client) CreateFundAccount(ctx context.Context, contactID string, p *model.SellerProfile) (string, error) {
	req := fundAccountRequest{ContactID: contactID}

	switch {
	case p.UPIID != "":
		req.AccountType = "vpa"
		req.VPA = &vpaDetails{Address: p.UPIID}
	case p.AccountNumber != "" && p.IFSCCode != "":
		req.AccountType = "bank_account"
		req.BankAccount = &bankDetails{
			Name:          p.AccountHolderName,
			AccountNumber: p.AccountNumber,
			IFSC:          p.IFSCCode,
		}
	default:
		return "", ErrNoPayoutMethod
	}

	return c.post(ctx, "/fund_accounts", req)
}

// CreatePayout инициирует перевод указанной суммы в минорных единицах
// валюты и возвращает идентификатор выплаты у провайдера.
func (c *Client) CreatePayout(ctx context.Context, fundAccountID string, amountMinor int64, mode, orderID string) (string, error) {
	return c.post(ctx, "/payouts", payoutRequest{
		FundAccountID: fundAccountID,
		Amount:        amountMinor,
		Currency:      "INR",
		Mode:          mode,
		Purpose:       "payout",
		ReferenceID:   "order_" + orderID,
		Narration:     "Payment for order " + orderID,
	})
}

// TransferResult содержит идентификаторы, полученные от провайдера при
// успешной выплате.
type TransferResult struct {
	PayoutID  string
	ContactID string
}

// AttemptTransfer выполняет одну логическую попытку выплаты: контакт
// (повторно используется сохранённый), счёт назначения, перевод. Любая
// ошибка на любом шаге — неуспех всей попытки.
func (c *Client) AttemptTransfer(ctx context.Context, p *model.SellerProfile, amountMinor int64, orderID string) (*TransferResult, error) {
	if !p.HasPayoutMethod() {
		return nil, ErrNoPayoutMethod
	}

	contactID := p.ProviderContactID
	if contactID == "" {
		var err error
		contactID, err = c.CreateContact(ctx, p)
		if err != nil {
			return nil, err
		}
	}

	fundAccountID, err := c.CreateFundAccount(ctx, contactID, p)
	if err != nil {
		return nil, err
	}

	mode := "NEFT"
	if p.UPIID != "" {
		mode = "UPI"
	}

	payoutID, err := c.CreatePayout(ctx, fundAccountID, amountMinor, mode, orderID)
	if err != nil {
		return nil, err
	}

	return &TransferResult{PayoutID: payoutID, ContactID: contactID}, nil
}
