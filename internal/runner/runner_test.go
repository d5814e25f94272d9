package runner_test

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"pixpress/internal/aggregate"
	"pixpress/internal/batch"
	"pixpress/internal/runner"
	"pixpress/internal/services/optimizer"
	"pixpress/internal/testsupport"
)

// fakeOptimizer stages a 3-byte "optimized" file for every source, with
// per-basename failure and skip overrides.
type fakeOptimizer struct {
	fail map[string]bool
	skip map[string]bool
}

func (f *fakeOptimizer) Optimize(_ context.Context, sourcePath string, params optimizer.Params) (optimizer.Result, error) {
	base := filepath.Base(sourcePath)
	if f.fail[base] {
		return optimizer.Result{}, errors.New("optimizer exploded")
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return optimizer.Result{}, err
	}
	original := info.Size()

	if f.skip[base] {
		return optimizer.Result{
			OriginalSize: original,
			NewSize:      original,
			OutputPath:   sourcePath,
			Skipped:      true,
		}, nil
	}

	optimized := []byte("opt")
	if params.Overwrite {
		if err := os.WriteFile(sourcePath, optimized, 0o644); err != nil {
			return optimizer.Result{}, err
		}
		return optimizer.Result{
			OriginalSize: original,
			NewSize:      int64(len(optimized)),
			SavedBytes:   original - int64(len(optimized)),
			OutputPath:   sourcePath,
		}, nil
	}

	staged := filepath.Join(params.WorkDir, "staged_"+base)
	if err := os.WriteFile(staged, optimized, 0o644); err != nil {
		return optimizer.Result{}, err
	}
	return optimizer.Result{
		OriginalSize: original,
		NewSize:      int64(len(optimized)),
		SavedBytes:   original - int64(len(optimized)),
		OutputPath:   staged,
	}, nil
}

func TestExecuteDirectoryDropProducesArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	srcDir := filepath.Join(t.TempDir(), "holiday_pics")
	testsupport.WriteFile(t, filepath.Join(srcDir, "a.png"), 100)
	testsupport.WriteFile(t, filepath.Join(srcDir, "sub", "b.png"), 100)
	testsupport.WriteFile(t, filepath.Join(srcDir, "c.png"), 100)
	dest := t.TempDir()

	fake := &fakeOptimizer{
		fail: map[string]bool{"c.png": true},
		skip: map[string]bool{},
	}
	r := runner.New(cfg, nil,
		runner.WithOptimizer(fake),
		runner.WithHistory(store),
		runner.WithChooser(&runner.DirChooser{Dir: dest}))

	summary, err := r.Execute(context.Background(), []string{srcDir})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if summary.Disposition != "archive" {
		t.Fatalf("disposition = %q", summary.Disposition)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 || summary.Skipped != 0 {
		t.Fatalf("counts = %+v", summary)
	}
	if summary.Label != "Holiday Pics" {
		t.Fatalf("label = %q", summary.Label)
	}

	zr, err := zip.OpenReader(summary.OutputPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	members := map[string]bool{}
	for _, f := range zr.File {
		members[f.Name] = true
	}
	if !members["holiday_pics/a.png"] || !members["holiday_pics/sub/b.png"] {
		t.Fatalf("members = %v", members)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Staged temp files were cleaned up after archiving.
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "staged_") {
			t.Fatalf("staged file left behind: %s", entry.Name())
		}
	}

	// Run was persisted to history.
	batches, err := store.ListBatches(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != summary.BatchID || batches[0].Failed != 1 {
		t.Fatalf("history record = %#v", batches)
	}
	items, err := store.ItemsForBatch(context.Background(), summary.BatchID)
	if err != nil {
		t.Fatalf("ItemsForBatch failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("history items = %d", len(items))
	}
}

func TestExecuteSingleFileDropSavesDirectly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	srcDir := t.TempDir()
	source := filepath.Join(srcDir, "logo.png")
	testsupport.WriteFile(t, source, 50)
	dest := t.TempDir()

	r := runner.New(cfg, nil,
		runner.WithOptimizer(&fakeOptimizer{}),
		runner.WithChooser(&runner.DirChooser{Dir: dest}))

	summary, err := r.Execute(context.Background(), []string{source})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Disposition != "single" {
		t.Fatalf("disposition = %q", summary.Disposition)
	}
	if summary.OutputPath != filepath.Join(dest, "logo.png") {
		t.Fatalf("output = %q", summary.OutputPath)
	}
	got, err := os.ReadFile(summary.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "opt" {
		t.Fatalf("delivered content = %q", got)
	}
	// The original stayed untouched.
	if info, err := os.Stat(source); err != nil || info.Size() != 50 {
		t.Fatalf("source modified: %v %v", info, err)
	}
}

func TestExecuteSingleFileAvoidsExistingName(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	source := filepath.Join(t.TempDir(), "logo.png")
	testsupport.WriteFile(t, source, 50)
	dest := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dest, "logo.png"), 1)

	r := runner.New(cfg, nil,
		runner.WithOptimizer(&fakeOptimizer{}),
		runner.WithChooser(&runner.DirChooser{Dir: dest}))

	summary, err := r.Execute(context.Background(), []string{source})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.OutputPath != filepath.Join(dest, "logo (1).png") {
		t.Fatalf("output = %q", summary.OutputPath)
	}
}

func TestExecuteOverwriteLeavesResultsInPlace(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Optimize.Overwrite = true

	srcDir := filepath.Join(t.TempDir(), "pics")
	source := filepath.Join(srcDir, "a.png")
	testsupport.WriteFile(t, source, 100)

	r := runner.New(cfg, nil, runner.WithOptimizer(&fakeOptimizer{}))

	summary, err := r.Execute(context.Background(), []string{srcDir})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Disposition != "in-place" {
		t.Fatalf("disposition = %q", summary.Disposition)
	}
	if summary.OutputPath != "" {
		t.Fatalf("output = %q", summary.OutputPath)
	}
	got, err := os.ReadFile(source)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "opt" {
		t.Fatalf("source content = %q", got)
	}
}

func TestExecuteAllSkippedIsEmptyDisposition(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	srcDir := filepath.Join(t.TempDir(), "pics")
	testsupport.WriteFile(t, filepath.Join(srcDir, "a.png"), 10)

	fake := &fakeOptimizer{skip: map[string]bool{"a.png": true}}
	r := runner.New(cfg, nil,
		runner.WithOptimizer(fake),
		runner.WithChooser(&runner.DirChooser{Dir: t.TempDir()}))

	summary, err := r.Execute(context.Background(), []string{srcDir})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Disposition != "empty" {
		t.Fatalf("disposition = %q", summary.Disposition)
	}
	if summary.Skipped != 1 || summary.Succeeded != 0 {
		t.Fatalf("counts = %+v", summary)
	}

	counts := map[batch.State]int{}
	for _, item := range summary.Items {
		counts[item.State]++
	}
	if counts[batch.StateDone] != 1 {
		t.Fatalf("states = %v", counts)
	}
}

// decliningChooser refuses every destination.
type decliningChooser struct{}

func (decliningChooser) DestDir(b *batch.Batch) string {
	return (&runner.DirChooser{}).DestDir(b)
}

func (decliningChooser) Choose(*batch.Batch, aggregate.Disposition) (string, bool, error) {
	return "", false, nil
}

func TestExecuteDeclinedDestinationKeepsStagedOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	srcDir := filepath.Join(t.TempDir(), "pics")
	testsupport.WriteFile(t, filepath.Join(srcDir, "a.png"), 100)
	testsupport.WriteFile(t, filepath.Join(srcDir, "b.png"), 100)

	r := runner.New(cfg, nil,
		runner.WithOptimizer(&fakeOptimizer{}),
		runner.WithChooser(decliningChooser{}))

	summary, err := r.Execute(context.Background(), []string{srcDir})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Disposition != "cancelled" {
		t.Fatalf("disposition = %q", summary.Disposition)
	}
	if summary.OutputPath != "" {
		t.Fatalf("output = %q", summary.OutputPath)
	}

	// Nothing was packaged and the staged outputs survive.
	staged := 0
	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "staged_") {
			staged++
		}
	}
	if staged != 2 {
		t.Fatalf("staged files = %d, want 2", staged)
	}
}

func TestExecuteRefusesConcurrentRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	source := filepath.Join(t.TempDir(), "a.png")
	testsupport.WriteFile(t, source, 10)

	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "pixpress.lock"))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	r := runner.New(cfg, nil, runner.WithOptimizer(&fakeOptimizer{}))
	if _, err := r.Execute(context.Background(), []string{source}); !errors.Is(err, runner.ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}
}

func TestExecuteNoFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	emptyDir := t.TempDir()

	r := runner.New(cfg, nil, runner.WithOptimizer(&fakeOptimizer{}))
	if _, err := r.Execute(context.Background(), []string{emptyDir}); err == nil {
		t.Fatal("expected error for empty drop")
	}
	if _, err := r.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error for no roots")
	}
}
