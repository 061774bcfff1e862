package index

import (
	"time"
)

// settings
type RequestSettings struct {
	WalletUrl        string
	JettonWalletsUrl string
	Timeout          time.Duration
	RequestDelay     time.Duration
	IsTestnet        bool
}

func DefaultRequestSettings() RequestSettings {
	return RequestSettings{
		WalletUrl:        "https://toncenter.com/api/v3/wallet",
		JettonWalletsUrl: "https://toncenter.com/api/v3/jetton/wallets",
		Timeout:          10 * time.Second,
		RequestDelay:     200 * time.Millisecond,
	}
}
