package network

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Discovery represents the behavior required to be implemented by any
// package providing the set of nodes the core can use. Swapping the
// implementation lets real peers stand in for the simulated ones.
type Discovery interface {
	Discover(ctx context.Context) ([]Node, error)
}

// SeedNodes returns the fixed set of simulated nodes the network starts
// with when nothing else is configured.
func SeedNodes() []Node {
	return []Node{
		{
			ID:           "node-1",
			Address:      "https://node1.cloutcontracts.net",
			Capabilities: []string{"compile", "storage", "compute"},
			Load:         0.3,
			Status:       StatusOnline,
		},
		{
			ID:           "node-2",
			Address:      "https://node2.cloutcontracts.net",
			Capabilities: []string{"deploy", "storage", "boinc"},
			Load:         0.1,
			Status:       StatusOnline,
		},
		{
			ID:           "node-3",
			Address:      "https://node3.cloutcontracts.net",
			Capabilities: []string{"compile", "compute", "boinc"},
			Load:         0.7,
			Status:       StatusBusy,
		},
	}
}

// StaticDiscovery returns a fixed list of nodes.
type StaticDiscovery []Node

// Discover implements the Discovery interface.
func (sd StaticDiscovery) Discover(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nodes := make([]Node, len(sd))
	for i, node := range sd {
		nodes[i] = node.clone()
	}

	return nodes, nil
}

// FileDiscovery loads the node list from a YAML document of the form:
//
//	nodes:
//	  - id: node-1
//	    address: https://node1.cloutcontracts.net
//	    capabilities: [compile, storage, compute]
//	    load: 0.3
//	    status: online
type FileDiscovery struct {
	Path string
}

// Discover implements the Discovery interface.
func (fd FileDiscovery) Discover(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fd.Path)
	if err != nil {
		return nil, fmt.Errorf("reading node file: %w", err)
	}

	return ParseNodes(data)
}

// ParseNodes decodes a YAML node list.
func ParseNodes(data []byte) ([]Node, error) {
	var doc struct {
		Nodes []Node `yaml:"nodes"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding node file: %w", err)
	}

	for _, node := range doc.Nodes {
		if err := node.validate(); err != nil {
			return nil, err
		}
	}

	return doc.Nodes, nil
}
