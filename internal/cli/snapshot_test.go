package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/store"
	"github.com/roach88/roster/internal/testutil"
)

func TestSnapshot_WritesAtCurrentSeq(t *testing.T) {
	db := seedDB(t, testutil.Added("p", "a"), testutil.Added("p", "b"), testutil.Added("q", "c"))

	run := runCLI(t, nil, "--format", "json", "snapshot", "--db", db)
	require.NoError(t, run.err)

	var result SnapshotResult
	decodeData(t, run.stdout, &result)
	assert.Equal(t, int64(3), result.Seq)
	assert.Equal(t, 2, result.Parents)
	assert.NotEmpty(t, result.Digest)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	snap, err := st.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Digest, snap.Digest)
	assert.Equal(t, map[string][]string{"p": {"a", "b"}, "q": {"c"}}, snap.Index.ToMap())
}

func TestSnapshot_ThenShowUsesSnapshotAndTail(t *testing.T) {
	db := seedDB(t, testutil.Added("p", "a"))
	require.NoError(t, runCLI(t, nil, "snapshot", "--db", db).err)
	require.NoError(t, runCLI(t, testutil.NDJSON(t, testutil.Added("p", "b")), "apply", "--db", db).err)

	run := runCLI(t, nil, "show", "--db", db)
	require.NoError(t, run.err)
	assert.Equal(t, "p: a, b\n", run.stdout)
}

func TestSnapshot_Text(t *testing.T) {
	db := seedDB(t, testutil.Added("p", "a"))

	run := runCLI(t, nil, "snapshot", "--db", db)
	require.NoError(t, run.err)
	assert.Equal(t, "Snapshot written at seq 1 (1 parent(s))\n", run.stdout)
}
