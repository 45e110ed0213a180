package payout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Maithiliii/Flairies/internal/model"
)

func upiProfile() *model.SellerProfile {
	return &model.SellerProfile{
		UserID:            7,
		Phone:             "+911234567890",
		AccountHolderName: "Seller Seven",
		UPIID:             "seller@upi",
	}
}

func TestAttemptTransfer_UPI(t *testing.T) {
	var gotPaths []string
	var payoutReq payoutRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		gotPaths = append(gotPaths, r.URL.Path)

		switch r.URL.Path {
		case "/contacts":
			json.NewEncoder(w).Encode(idResponse{ID: "cont_1"})
		case "/fund_accounts":
			var req fundAccountRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode fund account: %v", err)
			}
			if req.AccountType != "vpa" || req.VPA == nil || req.VPA.Address != "seller@upi" {
				t.Fatalf("unexpected fund account request: %+v", req)
			}
			json.NewEncoder(w).Encode(idResponse{ID: "fa_1"})
		case "/payouts":
			if err := json.NewDecoder(r.Body).Decode(&payoutReq); err != nil {
				t.Fatalf("decode payout: %v", err)
			}
			json.NewEncoder(w).Encode(idResponse{ID: "pout_1"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.AttemptTransfer(ctx, upiProfile(), 85000, "ORD1")
	if err != nil {
		t.Fatalf("AttemptTransfer error: %v", err)
	}
	if res.PayoutID != "pout_1" || res.ContactID != "cont_1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(gotPaths) != 3 {
		t.Fatalf("paths = %v, want contact, fund account, payout", gotPaths)
	}
	if payoutReq.Amount != 85000 || payoutReq.Mode != "UPI" || payoutReq.ReferenceID != "order_ORD1" {
		t.Fatalf("unexpected payout request: %+v", payoutReq)
	}
}

func TestAttemptTransfer_ReusesContact(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contacts":
			t.Fatalf("contact must not be recreated when profile already has one")
		case "/fund_accounts":
			var req fundAccountRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if req.ContactID != "cont_existing" {
				t.Fatalf("contact id = %s, want cont_existing", req.ContactID)
			}
			json.NewEncoder(w).Encode(idResponse{ID: "fa_2"})
		case "/payouts":
			json.NewEncoder(w).Encode(idResponse{ID: "pout_2"})
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	profile := upiProfile()
	profile.ProviderContactID = "cont_existing"

	res, err := client.AttemptTransfer(context.Background(), profile, 100, "ORD2")
	if err != nil {
		t.Fatalf("AttemptTransfer error: %v", err)
	}
	if res.ContactID != "cont_existing" {
		t.Fatalf("contact id = %s, want cont_existing", res.ContactID)
	}
}

func TestAttemptTransfer_BankMode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/contacts":
			json.NewEncoder(w).Encode(idResponse{ID: "cont_3"})
		case "/fund_accounts":
			var req fundAccountRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if req.AccountType != "bank_account" || req.BankAccount == nil || req.BankAccount.IFSC != "HDFC0000001" {
				t.Fatalf("unexpected fund account request: %+v", req)
			}
			json.NewEncoder(w).Encode(idResponse{ID: "fa_3"})
		case "/payouts":
			var req payoutRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if req.Mode != "NEFT" {
				t.Fatalf("mode = %s, want NEFT", req.Mode)
			}
			json.NewEncoder(w).Encode(idResponse{ID: "pout_3"})
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	profile := &model.SellerProfile{
		UserID:            8,
		AccountHolderName: "Seller Eight",
		AccountNumber:     "1234567890",
		IFSCCode:          "HDFC0000001",
	}

	if _, err := client.AttemptTransfer(context.Background(), profile, 100, "ORD3"); err != nil {
		t.Fatalf("AttemptTransfer error: %v", err)
	}
}

func TestAttemptTransfer_NoPayoutMethod(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("provider must not be contacted without a payout method")
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	_, err := client.AttemptTransfer(context.Background(), &model.SellerProfile{UserID: 9}, 100, "ORD4")
	if !errors.Is(err, ErrNoPayoutMethod) {
		t.Fatalf("error = %v, want ErrNoPayoutMethod", err)
	}
}

func TestAttemptTransfer_ProviderFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient balance"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	_, err := client.AttemptTransfer(context.Background(), upiProfile(), 100, "ORD5")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("error = %v, want ErrProvider", err)
	}
}
