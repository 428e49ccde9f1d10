package contracts

import "time"

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type CreateLoadRequest struct {
	OriginCity      string  `json:"origin_city"`
	DestinationCity string  `json:"destination_city"`
	EquipmentType   string  `json:"equipment_type"`
	PostedRate      float64 `json:"posted_rate"`
}

type TransitionLoadRequest struct {
	Status string `json:"status"`
}

type PlaceBidRequest struct {
	Amount    float64    `json:"amount"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type CreateHoldRequest struct {
	LoadID    string  `json:"load_id"`
	BidID     string  `json:"bid_id"`
	CarrierID string  `json:"carrier_id"`
	Amount    float64 `json:"amount"`
}

type CreateHoldResponse struct {
	PaymentID    string  `json:"payment_id"`
	LoadID       string  `json:"load_id"`
	HoldRef      string  `json:"hold_ref"`
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	AmountCents  int64   `json:"amount_cents"`
	Status       string  `json:"status"`
}

type ConfirmHoldRequest struct {
	HoldRef string `json:"hold_ref"`
	LoadID  string `json:"load_id"`
	BidID   string `json:"bid_id"`
}

type ReleasePaymentRequest struct {
	FinalAmount *float64 `json:"final_amount,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type OpenDisputeRequest struct {
	LoadID string `json:"load_id"`
	Reason string `json:"reason"`
}

type ResolveDisputeRequest struct {
	ReleaseToCarrier bool `json:"release_to_carrier"`
}

type AttachDocumentRequest struct {
	DocType string `json:"doc_type"`
	FileURL string `json:"file_url"`
}

type UpsertCarrierAccountRequest struct {
	ProcessorAccountID string `json:"processor_account_id"`
	PayoutsEnabled     bool   `json:"payouts_enabled"`
}

type PayoutResponse struct {
	PayoutID           string  `json:"payout_id"`
	PaymentID          string  `json:"payment_id"`
	LoadID             string  `json:"load_id"`
	CarrierID          string  `json:"carrier_id"`
	AmountCents        int64   `json:"amount_cents"`
	PlatformFeeCents   int64   `json:"platform_fee_cents"`
	CarrierAmountCents int64   `json:"carrier_amount_cents"`
	CarrierAmount      float64 `json:"carrier_amount"`
	Status             string  `json:"status"`
	TransferRef        string  `json:"transfer_ref,omitempty"`
}

type SweepResponse struct {
	Processed int `json:"processed"`
	Released  int `json:"released,omitempty"`
	Expired   int `json:"expired,omitempty"`
	Failed    int `json:"failed"`
}
