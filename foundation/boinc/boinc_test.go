package boinc_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cloutcontracts/cloutnet/foundation/boinc"
	"github.com/cloutcontracts/cloutnet/foundation/network"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newCore(t *testing.T, discovery network.Discovery) *network.Core {
	core, err := network.New(network.Config{Discovery: discovery})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the core: %s", failed, err)
	}

	if err := core.Initialize(context.Background()); err != nil {
		t.Fatalf("\t%s\tShould be able to initialize the core: %s", failed, err)
	}

	return core
}

func newManager(t *testing.T, cfg boinc.Config) *boinc.Manager {
	m, err := boinc.New(cfg)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the manager: %s", failed, err)
	}
	t.Cleanup(m.Shutdown)

	return m
}

func TestSubmitWork(t *testing.T) {
	t.Log("Given the need to dispatch and complete work.")
	{
		t.Logf("\tTest 0:\tWhen submitting a unit of work.")
		{
			core := newCore(t, nil)
			m := newManager(t, boinc.Config{Core: core})
			ctx := context.Background()

			id, err := m.SubmitWork(ctx, boinc.KindProcess, "payload", 1, 50*time.Millisecond)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit work: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to submit work.", success)

			unit, err := m.Work(id)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to poll the work: %s", failed, err)
			}
			if unit.Status != boinc.StatusDispatched || unit.TargetNodeID != "node-1" {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, unit)
				t.Fatalf("\t%s\tTest 0:\tShould be dispatched to node-1 on return.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be dispatched to node-1 on return.", success)

			if n := core.NetworkStatus().ActiveTasks; n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have one active task in the core, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould have one active task in the core.", success)

			ctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			unit, err = m.Wait(ctx, id)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to wait for the work: %s", failed, err)
			}
			if unit.Status != boinc.StatusCompleted || unit.CompletedAt.IsZero() {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, unit)
				t.Fatalf("\t%s\tTest 0:\tShould be completed.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be completed.", success)

			if n := core.NetworkStatus().ActiveTasks; n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould release the task in the core, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould release the task in the core.", success)

			stats := m.Statistics()
			if stats.TotalWork != 1 || stats.CompletedWork != 1 || !stats.IsConnected || stats.TotalProjects != 1 || stats.ActiveProjects != 1 {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, stats)
				t.Fatalf("\t%s\tTest 0:\tShould report the completed work.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report the completed work.", success)

			projects := m.Projects()
			if len(projects) != 1 || projects[0].ID != boinc.DefaultProjectID || projects[0].Progress != 1 {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, projects)
				t.Fatalf("\t%s\tTest 0:\tShould credit the default project.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould credit the default project.", success)
		}

		t.Logf("\tTest 1:\tWhen no node can take the work.")
		{
			nodes := network.StaticDiscovery{
				{ID: "store", Capabilities: []string{"storage"}, Status: network.StatusOnline},
			}
			m := newManager(t, boinc.Config{Core: newCore(t, nodes)})

			id, err := m.SubmitWork(context.Background(), boinc.KindCompile, nil, 5, time.Millisecond)
			if !errors.Is(err, network.ErrNoAvailableNode) || id != "" {
				t.Fatalf("\t%s\tTest 1:\tShould fail with ErrNoAvailableNode, got %q %v.", failed, id, err)
			}
			t.Logf("\t%s\tTest 1:\tShould fail with ErrNoAvailableNode.", success)

			if n := m.Statistics().TotalWork; n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould not record the work, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould not record the work.", success)
		}

		t.Logf("\tTest 2:\tWhen submitting an unknown kind or unknown id.")
		{
			m := newManager(t, boinc.Config{Core: newCore(t, nil)})

			if _, err := m.SubmitWork(context.Background(), "mine", nil, 1, time.Millisecond); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject an unknown kind.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject an unknown kind.", success)

			if _, err := m.Work("work-missing"); !errors.Is(err, boinc.ErrWorkNotFound) {
				t.Fatalf("\t%s\tTest 2:\tShould fail with ErrWorkNotFound, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould fail with ErrWorkNotFound.", success)
		}
	}
}

func TestCompletionOrder(t *testing.T) {
	t.Log("Given the need to notify subscribers of completions.")
	{
		t.Logf("\tTest 0:\tWhen submitting a long and a short unit together.")
		{
			m := newManager(t, boinc.Config{Core: newCore(t, nil)})
			ch := m.Subscribe("test")

			ctx := context.Background()
			slow, err := m.SubmitWork(ctx, boinc.KindProcess, nil, 1, 150*time.Millisecond)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit work: %s", failed, err)
			}
			fast, err := m.SubmitWork(ctx, boinc.KindProcess, nil, 1, 20*time.Millisecond)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit work: %s", failed, err)
			}

			var got []string
			timeout := time.After(2 * time.Second)
			for len(got) < 2 {
				select {
				case c := <-ch:
					got = append(got, c.WorkID)
				case <-timeout:
					t.Fatalf("\t%s\tTest 0:\tShould receive both completions, got %v.", failed, got)
				}
			}

			if got[0] != fast || got[1] != slow {
				t.Logf("\t%s\tTest 0:\tgot: %v", failed, got)
				t.Logf("\t%s\tTest 0:\texp: %v", failed, []string{fast, slow})
				t.Fatalf("\t%s\tTest 0:\tShould complete the short unit first.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould complete the short unit first.", success)

			select {
			case c := <-ch:
				t.Fatalf("\t%s\tTest 0:\tShould not deliver a duplicate completion: %+v", failed, c)
			case <-time.After(200 * time.Millisecond):
			}
			t.Logf("\t%s\tTest 0:\tShould deliver each completion exactly once.", success)

			m.Unsubscribe("test")
			if _, open := <-ch; open {
				t.Fatalf("\t%s\tTest 0:\tShould close the channel on unsubscribe.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close the channel on unsubscribe.", success)
		}
	}
}

func TestConvenienceWrappers(t *testing.T) {
	t.Log("Given the need to compile and verify contracts through the network.")
	{
		t.Logf("\tTest 0:\tWhen using the configured policy.")
		{
			m := newManager(t, boinc.Config{
				Core:            newCore(t, nil),
				CompileDuration: 10 * time.Millisecond,
				VerifyDuration:  10 * time.Millisecond,
			})
			ctx := context.Background()

			cid, err := m.DistributedCompile(ctx, "contract A {}", "A")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit a compile: %s", failed, err)
			}
			vid, err := m.DistributedVerify(ctx, "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", "contract A {}")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit a verify: %s", failed, err)
			}

			cu, _ := m.Work(cid)
			vu, _ := m.Work(vid)
			if cu.Kind != boinc.KindCompile || cu.Priority != boinc.DefaultCompilePriority {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, cu)
				t.Fatalf("\t%s\tTest 0:\tShould submit the compile with priority 5.", failed)
			}
			if vu.Kind != boinc.KindVerify || vu.Priority != boinc.DefaultVerifyPriority {
				t.Logf("\t%s\tTest 0:\tgot: %+v", failed, vu)
				t.Fatalf("\t%s\tTest 0:\tShould submit the verify with priority 3.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould apply the policy priorities.", success)

			input, ok := cu.Payload.(boinc.CompileInput)
			if !ok || input.ContractName != "A" {
				t.Fatalf("\t%s\tTest 0:\tShould carry the compile input.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould carry the compile input.", success)

			ctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			for _, id := range []string{cid, vid} {
				if _, err := m.Wait(ctx, id); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould complete %s: %s", failed, id, err)
				}
			}
			if list := m.List(); len(list) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould list both units, got %d.", failed, len(list))
			}
			t.Logf("\t%s\tTest 0:\tShould complete both units.", success)
		}
	}
}

func TestLoadReporting(t *testing.T) {
	t.Log("Given the need to report node load while work runs.")
	{
		t.Logf("\tTest 0:\tWhen each unit adds load.")
		{
			core := newCore(t, nil)
			m := newManager(t, boinc.Config{Core: core, LoadPerWork: 0.1})

			id, err := m.SubmitWork(context.Background(), boinc.KindProcess, nil, 1, 50*time.Millisecond)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit work: %s", failed, err)
			}

			node, _ := core.Node("node-1")
			if math.Abs(node.Load-0.4) > 1e-9 {
				t.Fatalf("\t%s\tTest 0:\tShould raise the load to 0.4, got %v.", failed, node.Load)
			}
			t.Logf("\t%s\tTest 0:\tShould raise the load while the work runs.", success)

			done, _ := m.Done(id)
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould complete the work.", failed)
			}

			node, _ = core.Node("node-1")
			if math.Abs(node.Load-0.3) > 1e-9 {
				t.Fatalf("\t%s\tTest 0:\tShould restore the load to 0.3, got %v.", failed, node.Load)
			}
			t.Logf("\t%s\tTest 0:\tShould restore the load on completion.", success)
		}
	}
}

func TestShutdown(t *testing.T) {
	t.Log("Given the need to shut the dispatcher down.")
	{
		t.Logf("\tTest 0:\tWhen work is still outstanding.")
		{
			m, err := boinc.New(boinc.Config{Core: newCore(t, nil)})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the manager: %s", failed, err)
			}

			ch := m.Subscribe("test")
			id, _ := m.SubmitWork(context.Background(), boinc.KindProcess, nil, 1, time.Hour)

			m.Shutdown()

			if _, open := <-ch; open {
				t.Fatalf("\t%s\tTest 0:\tShould close subscriptions.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close subscriptions.", success)

			if unit, _ := m.Work(id); unit.Status != boinc.StatusDispatched {
				t.Fatalf("\t%s\tTest 0:\tShould leave the work dispatched, got %s.", failed, unit.Status)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the work dispatched.", success)

			if _, err := m.SubmitWork(context.Background(), boinc.KindProcess, nil, 1, time.Millisecond); !errors.Is(err, boinc.ErrNotConnected) {
				t.Fatalf("\t%s\tTest 0:\tShould fail with ErrNotConnected, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould fail with ErrNotConnected.", success)

			if m.Statistics().IsConnected {
				t.Fatalf("\t%s\tTest 0:\tShould report disconnected.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report disconnected.", success)
		}
	}
}

func TestListOrder(t *testing.T) {
	t.Log("Given the need to list work in submission order.")
	{
		t.Logf("\tTest 0:\tWhen many units are submitted within the same instant.")
		{
			m := newManager(t, boinc.Config{Core: newCore(t, nil)})
			ctx := context.Background()

			var ids []string
			for range 50 {
				id, err := m.SubmitWork(ctx, boinc.KindProcess, nil, 1, time.Hour)
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to submit work: %s", failed, err)
				}
				ids = append(ids, id)
			}

			list := m.List()
			if len(list) != len(ids) {
				t.Fatalf("\t%s\tTest 0:\tShould list every unit, got %d.", failed, len(list))
			}
			for i, unit := range list {
				if unit.ID != ids[i] {
					t.Logf("\t%s\tTest 0:\tgot: %s at %d", failed, unit.ID, i)
					t.Logf("\t%s\tTest 0:\texp: %s", failed, ids[i])
					t.Fatalf("\t%s\tTest 0:\tShould list units in submission order.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould list units in submission order.", success)
		}
	}
}
