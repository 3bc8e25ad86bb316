package network_test

import (
	"testing"

	"github.com/cloutcontracts/cloutnet/foundation/network"
)

func TestRegistry(t *testing.T) {
	type table struct {
		name  string
		nodes []network.Node
	}

	tt := []table{
		{
			name: "basic",
			nodes: []network.Node{
				{ID: "node-c", Status: network.StatusOnline},
				{ID: "node-a", Status: network.StatusOnline},
				{ID: "node-b", Status: network.StatusBusy},
			},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			r := network.NewRegistry()

			for _, node := range tst.nodes {
				if !r.Add(node) {
					t.Fatalf("Test %s:\tShould be able to add node %s.", tst.name, node.ID)
				}
			}

			if r.Add(tst.nodes[0]) {
				t.Fatalf("Test %s:\tShould not add a node twice.", tst.name)
			}

			nodes := r.Copy()
			if len(nodes) != len(tst.nodes) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(nodes))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.nodes))
				t.Fatalf("Test %s:\tShould get back the right nodes.", tst.name)
			}
			for i := range nodes {
				if nodes[i].ID != tst.nodes[i].ID {
					t.Fatalf("Test %s:\tShould keep insertion order, got %s at %d.", tst.name, nodes[i].ID, i)
				}
			}

			if err := r.ReportLoad("node-a", 1.7); err != nil {
				t.Fatalf("Test %s:\tShould be able to report load: %s", tst.name, err)
			}
			if node, _ := r.Node("node-a"); node.Load != 1 {
				t.Fatalf("Test %s:\tShould clamp the load to 1, got %v.", tst.name, node.Load)
			}

			if err := r.SetStatus("node-a", "sleeping"); err == nil {
				t.Fatalf("Test %s:\tShould reject an unknown status.", tst.name)
			}

			r.Remove("node-a")
			if r.Len() != len(tst.nodes)-1 {
				t.Fatalf("Test %s:\tShould remove the node.", tst.name)
			}
			if _, exists := r.Node("node-a"); exists {
				t.Fatalf("Test %s:\tShould not find a removed node.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
