package contractgrp

import (
	"github.com/cloutcontracts/cloutnet/foundation/boinc"
	"github.com/cloutcontracts/cloutnet/foundation/cachedb"
	"github.com/cloutcontracts/cloutnet/foundation/network"
)

type newCompile struct {
	Name        string `json:"name" validate:"required"`
	Source      string `json:"source" validate:"required"`
	UseSharding bool   `json:"useSharding"`
}

// CompileResult is what the cache holds for a compiled source.
type CompileResult struct {
	ContractName string   `json:"contractName"`
	SourceHash   string   `json:"sourceHash"`
	WorkID       string   `json:"workId"`
	NodeID       string   `json:"nodeId"`
	ShardIDs     []string `json:"shardIds,omitempty"`
	Cached       bool     `json:"cached"`
}

type newDeployment struct {
	ContractHash    string `json:"contractHash" validate:"required,hexadecimal"`
	ContractAddress string `json:"contractAddress" validate:"required,ethaddr"`
	Network         string `json:"network" validate:"required"`
	TxHash          string `json:"txHash" validate:"omitempty,hexadecimal"`
}

// Deployment is what the cache holds for a deployed contract.
type Deployment struct {
	ContractHash    string `json:"contractHash"`
	ContractAddress string `json:"contractAddress"`
	Network         string `json:"network"`
	TxHash          string `json:"txHash,omitempty"`
}

// NetworkStats is the overview served to the dashboard.
type NetworkStats struct {
	Network network.NetworkStatus `json:"network"`
	BOINC   boinc.Statistics      `json:"boinc"`
	Cache   cachedb.Stats         `json:"cache"`
}
