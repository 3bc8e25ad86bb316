package workgrp

import "encoding/json"

type newWork struct {
	Kind        string          `json:"kind" validate:"required,oneof=compile verify process"`
	Payload     json.RawMessage `json:"payload"`
	Priority    int             `json:"priority" validate:"gte=0"`
	EstimatedMs int64           `json:"estimatedMs" validate:"gte=0"`
}

type newCompile struct {
	ContractName string `json:"contractName" validate:"required"`
	SourceCode   string `json:"sourceCode" validate:"required"`
}

type newVerify struct {
	ContractAddress string `json:"contractAddress" validate:"required,ethaddr"`
	SourceCode      string `json:"sourceCode" validate:"required"`
}
