package netgrp

// shardRequest carries the data as a base64 string.
type shardRequest struct {
	Name string `json:"name" validate:"required"`
	Data []byte `json:"data"`
}

type shardResponse struct {
	ShardIDs []string `json:"shardIds"`
}

type reconstructRequest struct {
	ShardIDs []string `json:"shardIds" validate:"required,min=1"`
}

type reconstructResponse struct {
	Data []byte `json:"data"`
}
