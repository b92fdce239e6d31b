// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/AleutianAI/AleutianGraph/services/depgraph/facts"
	"github.com/AleutianAI/AleutianGraph/services/depgraph/graph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(StoreOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot(t *testing.T) *graph.GraphSnapshot {
	t.Helper()
	s := facts.NewStream()
	s.AddNode(facts.NodeFact{Path: "a.go", Exports: []string{"A"}, TestCoverage: facts.CoverageUnknown})
	s.AddNode(facts.NodeFact{Path: "b.go", TestCoverage: facts.CoverageUnknown})
	s.AddEdge(facts.EdgeFact{From: "b.go", Target: "./a.go", Symbols: []string{"A"}})
	result, err := graph.NewBuilder().Build(context.Background(), s)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	snap, err := result.Graph.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	snap := testSnapshot(t)

	if err := store.SaveSnapshot(ctx, "current", snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	loaded, err := store.LoadSnapshot(ctx, "current")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(snap, loaded) {
		t.Error("loaded snapshot differs from saved")
	}

	// The loaded snapshot must reconstruct a valid frozen graph.
	g, err := graph.FromSnapshot(loaded)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestStore_Missing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.LoadSnapshot(context.Background(), "absent")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	snap := testSnapshot(t)

	for _, id := range []string{"beta", "alpha"} {
		if err := store.SaveSnapshot(ctx, id, snap); err != nil {
			t.Fatalf("SaveSnapshot(%s): %v", id, err)
		}
	}

	ids, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"alpha", "beta"}) {
		t.Errorf("ids = %v", ids)
	}

	if err := store.DeleteSnapshot(ctx, "alpha"); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	if _, err := store.LoadSnapshot(ctx, "alpha"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("deleted snapshot still loads: %v", err)
	}
}

func TestStore_Closed(t *testing.T) {
	store := openTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.SaveSnapshot(context.Background(), "x", testSnapshot(t)); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("error = %v, want ErrStoreClosed", err)
	}
	// Second close is a no-op.
	if err := store.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
