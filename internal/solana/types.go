package solana

import "strconv"

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
}

// Blockhash is a recent blockhash with its expiry height.
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SimulationResult is the outcome of a pre-send simulation.
type SimulationResult struct {
	OK   bool
	Logs []string
	Err  string
}

// Confirmation is the outcome of waiting on a submitted signature.
type Confirmation struct {
	OK   bool
	Slot uint64
	Err  string
}

// getAccountInfoResult is the raw RPC response for getAccountInfo.
type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
}

// getTokenAccountsResult is the raw RPC response for getTokenAccountsByOwner.
type getTokenAccountsResult struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount tokenAmount `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

type tokenAmount struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

// AmountUint parses the raw amount string, 0 on malformed input.
func (t tokenAmount) AmountUint() uint64 {
	v, err := strconv.ParseUint(t.Amount, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
