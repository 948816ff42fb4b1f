// Package evm talks to EVM block explorers and JSON-RPC nodes and turns
// their responses into domain chain records.
package evm

import (
	"encoding/json"
)

// explorerResponse is the Etherscan-style envelope.
// Result is an array on success and a string on most errors.
type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// explorerTx is one row of action=txlist.
type explorerTx struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	GasUsed         string `json:"gasUsed"`
	GasPrice        string `json:"gasPrice"`
	IsError         string `json:"isError"`
	ContractAddress string `json:"contractAddress"`
	FunctionName    string `json:"functionName"`
}

// explorerTokenTx is one row of action=tokentx.
type explorerTokenTx struct {
	Hash            string `json:"hash"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
}

// explorerNFTTx is one row of action=tokennfttx.
type explorerNFTTx struct {
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	TokenID         string `json:"tokenID"`
	TokenName       string `json:"tokenName"`
}
