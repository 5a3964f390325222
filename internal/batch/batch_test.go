package batch

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labsinal/celltrack/internal/fsutil"
	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/security"
	"github.com/labsinal/celltrack/internal/testutil"
)

var fixture = map[string]string{
	"t1/mitosis_true.csv":               "name,t,x,y\nType_1,10,100,100\nType_1,20,200,200\n",
	"t1/mitosis/batches_b.csv":          "track_id,t,x,y\n1,10,100,100\n2,20,200,200\n",
	"t1/mitosis/batches_a.csv":          "track_id,t,x,y\n1,10,101,99\n2,50,0,0\n",
	"t1/mitosis/notes.txt":              "ignored\n",
	"t2/mitosis_true.csv":               "t,x,y\n5,5,5\n",
	"t2/mitosis/batches_a.csv":          "track_id,t,x,y\n1,100,5,5\n",
	"t3_no_candidates/mitosis_true.csv": "t,x,y\n1,1,1\n",
}

func memFixture(t *testing.T) fsutil.FileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	for name, content := range fixture {
		require.NoError(t, fsys.WriteFile(filepath.Join("root", name), []byte(content), 0o644))
	}
	return fsys
}

func opts(workers int) Options {
	return Options{Tolerance: mitosis.Tolerance{Time: 3, Position: 20}, Workers: workers}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "lr0.1", Label("batches_lr0.1.csv"))
	assert.Equal(t, "plain", Label("plain.csv"))
	assert.Equal(t, "x_batches_", Label("x_batches_"))
}

func TestDiscover(t *testing.T) {
	jobs, err := Discover(memFixture(t), "root", opts(1))
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, 1, jobs[0].Test)
	assert.Equal(t, "a", jobs[0].Label)
	assert.Equal(t, "b", jobs[1].Label)
	assert.Equal(t, 2, jobs[2].Test)
	assert.Equal(t, filepath.Join("root", "t2", "mitosis_true.csv"), jobs[2].GroundTruth)
}

func TestRun(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		rows, err := Run(context.Background(), memFixture(t), "root", opts(workers))
		require.NoError(t, err)
		require.Len(t, rows, 3)

		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, rows))
		want := "batches,teste,precision,recall,f1-score\n" +
			"a,1,0.5,0.5,0.5\n" +
			"b,1,1,1,1\n" +
			"a,2,0,0,0\n"
		assert.Equal(t, want, buf.String(), "workers=%d", workers)
	}
}

func TestRun_Isolate(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("root/t1/mitosis_true.csv", []byte("t,x,y\n1,10,10\n"), 0o644))
	require.NoError(t, fsys.WriteFile("root/t1/mitosis/run.csv", []byte(
		"track_id,parent_track_id,t,x,y\n1,-1,0,9,9\n1,-1,1,10,11\n2,1,2,12,12\n3,1,2,8,8\n"), 0o644))

	o := opts(2)
	o.Isolate = true
	rows, err := Run(context.Background(), fsys, "root", o)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Result.TP)
	assert.Equal(t, "run", rows[0].Label)
}

func TestRun_Errors(t *testing.T) {
	t.Run("empty root", func(t *testing.T) {
		fsys := fsutil.NewMemoryFileSystem()
		require.NoError(t, fsys.MkdirAll("root", 0o755))
		_, err := Run(context.Background(), fsys, "root", opts(1))
		assert.True(t, errors.Is(err, ErrNoTests), "got %v", err)
	})
	t.Run("missing ground truth", func(t *testing.T) {
		fsys := fsutil.NewMemoryFileSystem()
		require.NoError(t, fsys.WriteFile("root/t1/mitosis/a.csv", []byte("t,x,y\n1,1,1\n"), 0o644))
		_, err := Run(context.Background(), fsys, "root", opts(1))
		assert.ErrorContains(t, err, GroundTruthFile)
	})
	t.Run("malformed candidate", func(t *testing.T) {
		fsys := fsutil.NewMemoryFileSystem()
		require.NoError(t, fsys.WriteFile("root/t1/mitosis_true.csv", []byte("t,x,y\n1,1,1\n"), 0o644))
		require.NoError(t, fsys.WriteFile("root/t1/mitosis/a.csv", []byte("t,x,y\n1,oops,1\n"), 0o644))
		_, err := Run(context.Background(), fsys, "root", opts(2))
		assert.ErrorIs(t, err, mitosis.ErrMalformedRow)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, memFixture(t), "root", opts(1))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDiscover_ConfineRejectsSymlinkEscape(t *testing.T) {
	outside := testutil.WriteTree(t, map[string]string{"secret.csv": "t,x,y\n1,1,1\n"})
	root := testutil.WriteTree(t, map[string]string{"t1/mitosis_true.csv": "t,x,y\n1,1,1\n"})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "t1", "mitosis"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.csv"), filepath.Join(root, "t1", "mitosis", "a.csv")))

	o := opts(1)
	_, err := Discover(fsutil.OSFileSystem{}, root, o)
	require.NoError(t, err, "unconfined discovery follows the link")

	o.Confine = true
	_, err = Discover(fsutil.OSFileSystem{}, root, o)
	assert.ErrorIs(t, err, security.ErrPathEscape)
}

func TestSummarize(t *testing.T) {
	rows, err := Run(context.Background(), memFixture(t), "root", opts(2))
	require.NoError(t, err)

	sums := Summarize(rows)
	require.Len(t, sums, 2)

	first := sums[0]
	assert.Equal(t, 1, first.Test)
	assert.Equal(t, "t1", first.Dir)
	assert.Equal(t, 2, first.Runs)
	assert.Equal(t, "b", first.Best)
	assert.InDelta(t, 0.75, first.Precision.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(0.125), first.Precision.StdDev, 1e-9)
	assert.InDelta(t, 0.75, first.F1.Mean, 1e-9)

	second := sums[1]
	assert.Equal(t, 1, second.Runs)
	assert.Equal(t, "a", second.Best)
	assert.Zero(t, second.F1.StdDev)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, sums))
	assert.Contains(t, buf.String(), "1,t1,2,0.75,")
	assert.Contains(t, buf.String(), "2,t2,1,0,0,0,0,0,0,a\n")
}
