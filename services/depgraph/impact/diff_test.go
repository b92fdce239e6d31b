// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/src/app/api.ts b/src/app/api.ts
--- a/src/app/api.ts
+++ b/src/app/api.ts
@@ -10,7 +10,7 @@
 import { db } from "./db";

-export function fetchUser(id: string) {
+export function fetchUser(id: string, opts?: FetchOptions) {
   return db.get(id);
 }
diff --git a/src/app/db.ts b/src/app/db.ts
--- a/src/app/db.ts
+++ b/src/app/db.ts
@@ -1,4 +1,5 @@
 const pool = connect();
+let retries = 3;

 export const db = pool;
`

func TestChangesFromDiff(t *testing.T) {
	changes, err := ChangesFromDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, "src/app/api.ts", changes[0].File)
	assert.Equal(t, []string{"fetchUser"}, changes[0].ModifiedExports)

	// No declaration line changed in db.ts; the empty set means the
	// whole namespace is treated as changed.
	assert.Equal(t, "src/app/db.ts", changes[1].File)
	assert.Empty(t, changes[1].ModifiedExports)
}

func TestChangesFromDiff_Go(t *testing.T) {
	raw := `--- a/pkg/store/store.go
+++ b/pkg/store/store.go
@@ -5,6 +5,6 @@
-func Open(path string) (*Store, error) {
+func Open(ctx context.Context, path string) (*Store, error) {
`
	changes, err := ChangesFromDiff([]byte(raw))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "pkg/store/store.go", changes[0].File)
	assert.Equal(t, []string{"Open"}, changes[0].ModifiedExports)
}

func TestChangesFromDiff_Bad(t *testing.T) {
	_, err := ChangesFromDiff([]byte("not a diff at all"))
	// go-diff tolerates some garbage; either parse failure or an empty
	// change set is acceptable, never a fabricated change.
	if err == nil {
		changes, _ := ChangesFromDiff([]byte("not a diff at all"))
		assert.Empty(t, changes)
	} else {
		assert.ErrorIs(t, err, ErrBadDiff)
	}
}
