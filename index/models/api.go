package models

// toncenter v3 payloads

type WalletInformation struct {
	Balance             string  `json:"balance"`
	WalletType          *string `json:"wallet_type,omitempty"`
	Seqno               *int64  `json:"seqno,omitempty"`
	WalletId            *int64  `json:"wallet_id,omitempty"`
	LastTransactionLt   string  `json:"last_transaction_lt"`
	LastTransactionHash string  `json:"last_transaction_hash"`
	Status              string  `json:"status"`
}

type JettonWallet struct {
	Address           string  `json:"address"`
	Balance           string  `json:"balance"`
	Owner             string  `json:"owner"`
	Jetton            string  `json:"jetton"`
	LastTransactionLt string  `json:"last_transaction_lt"`
	CodeHash          *string `json:"code_hash"`
	DataHash          *string `json:"data_hash"`
}

type JettonWalletsResponse struct {
	Wallets []JettonWallet `json:"jetton_wallets"`
}
