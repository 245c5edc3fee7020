package payloads

import "time"

// AssetMintedEvent is emitted when a new property asset is created.
type AssetMintedEvent struct {
	AssetID uint64 `json:"asset_id"`
	Owner   string `json:"owner"`
	URI     string `json:"uri"`
}

// AssetTransferredEvent is emitted when ownership of an asset moves.
type AssetTransferredEvent struct {
	AssetID uint64 `json:"asset_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// AssetURISetEvent is emitted when an owner replaces an asset's metadata URI.
type AssetURISetEvent struct {
	AssetID uint64 `json:"asset_id"`
	URI     string `json:"uri"`
}

type CreditMintedEvent struct {
	Identity string `json:"identity"`
	Amount   int64  `json:"amount"`
	Balance  int64  `json:"balance"`
}

type CreditApprovedEvent struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  int64  `json:"amount"`
}

// PropertyRegisteredEvent is emitted when an owner (re)lists a property for stays.
type PropertyRegisteredEvent struct {
	AssetID uint64 `json:"asset_id"`
	Owner   string `json:"owner"`
	Price   int64  `json:"price"`
}

type StayRequestedEvent struct {
	AssetID  uint64    `json:"asset_id"`
	Guest    string    `json:"guest"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type StayApprovedEvent struct {
	AssetID uint64 `json:"asset_id"`
	Owner   string `json:"owner"`
	Guest   string `json:"guest"`
}

type StayCheckedInEvent struct {
	AssetID uint64 `json:"asset_id"`
	Guest   string `json:"guest"`
}

type StayCheckedOutEvent struct {
	AssetID  uint64    `json:"asset_id"`
	Guest    string    `json:"guest"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// StaySettledEvent records the credit movement that closed a stay cycle.
type StaySettledEvent struct {
	AssetID           uint64 `json:"asset_id"`
	Payer             string `json:"payer"`
	Payee             string `json:"payee"`
	Amount            int64  `json:"amount"`
	TotalStaysSettled int64  `json:"total_stays_settled"`
}
