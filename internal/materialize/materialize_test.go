package materialize_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/mdpack/internal/materialize"
	"github.com/temirov/mdpack/internal/types"
)

const destinationRoot = "/restore"

func readFile(testingInstance *testing.T, filesystem afero.Fs, relativePath string) string {
	testingInstance.Helper()
	data, err := afero.ReadFile(filesystem, filepath.Join(destinationRoot, filepath.FromSlash(relativePath)))
	if err != nil {
		testingInstance.Fatalf("read %s: %v", relativePath, err)
	}
	return string(data)
}

func TestMaterializeCollisionPolicy(testingInstance *testing.T) {
	entries := []types.Entry{
		{Path: "a.txt", Content: "new a\n"},
		{Path: "dir/b.txt", Content: "new b\n"},
	}
	testCases := []struct {
		testName        string
		options         materialize.Options
		expectedStats   types.MaterializeStats
		expectedContent string
		expectB         bool
	}{
		{
			testName:        "skip existing",
			options:         materialize.Options{},
			expectedStats:   types.MaterializeStats{Written: 1, Skipped: 1},
			expectedContent: "original\n",
			expectB:         true,
		},
		{
			testName:        "overwrite existing",
			options:         materialize.Options{Overwrite: true},
			expectedStats:   types.MaterializeStats{Written: 1, Overwritten: 1},
			expectedContent: "new a\n",
			expectB:         true,
		},
		{
			testName:        "dry run never mutates",
			options:         materialize.Options{Overwrite: true, DryRun: true},
			expectedStats:   types.MaterializeStats{Written: 1, Overwritten: 1},
			expectedContent: "original\n",
			expectB:         false,
		},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.testName, func(subTest *testing.T) {
			filesystem := afero.NewMemMapFs()
			if err := afero.WriteFile(filesystem, filepath.Join(destinationRoot, "a.txt"), []byte("original\n"), 0o644); err != nil {
				subTest.Fatalf("seed: %v", err)
			}
			var observed []types.MaterializeAction
			options := testCase.options
			options.Observer = func(action types.MaterializeAction) { observed = append(observed, action) }

			result, err := materialize.Materialize(context.Background(), filesystem, entries, destinationRoot, options)
			if err != nil {
				subTest.Fatalf("materialize: %v", err)
			}
			if result.Stats != testCase.expectedStats {
				subTest.Fatalf("expected %+v, got %+v", testCase.expectedStats, result.Stats)
			}
			if len(observed) != len(entries) || len(result.Actions) != len(entries) {
				subTest.Fatalf("expected %d actions, observed %d", len(entries), len(observed))
			}
			if actual := readFile(subTest, filesystem, "a.txt"); actual != testCase.expectedContent {
				subTest.Fatalf("a.txt: expected %q, got %q", testCase.expectedContent, actual)
			}
			exists, _ := afero.Exists(filesystem, filepath.Join(destinationRoot, "dir", "b.txt"))
			if exists != testCase.expectB {
				subTest.Fatalf("dir/b.txt existence: expected %v, got %v", testCase.expectB, exists)
			}
		})
	}
}

func TestMaterializeRejectsUnsafePaths(testingInstance *testing.T) {
	filesystem := afero.NewMemMapFs()
	entries := []types.Entry{
		{Path: "../escape.txt", Content: "x"},
		{Path: "/etc/passwd", Content: "x"},
		{Path: "ok/../fine.txt", Content: "fine\n"},
	}
	result, err := materialize.Materialize(context.Background(), filesystem, entries, destinationRoot, materialize.Options{})
	if err != nil {
		testingInstance.Fatalf("materialize: %v", err)
	}
	if result.Stats.Errors != 2 || result.Stats.Written != 1 {
		testingInstance.Fatalf("unexpected stats %+v", result.Stats)
	}
	for _, action := range result.Actions[:2] {
		if action.Kind != types.ActionError || !errors.Is(action.Err, materialize.ErrUnsafePath) {
			testingInstance.Fatalf("expected unsafe path error, got %+v", action)
		}
	}
	if actual := readFile(testingInstance, filesystem, "fine.txt"); actual != "fine\n" {
		testingInstance.Fatalf("fine.txt: %q", actual)
	}
	if exists, _ := afero.Exists(filesystem, "/escape.txt"); exists {
		testingInstance.Fatalf("escaping entry was written")
	}
}

func TestMaterializeDuplicatesLastWriterWins(testingInstance *testing.T) {
	filesystem := afero.NewMemMapFs()
	entries := []types.Entry{
		{Path: "same.txt", Content: "first\n"},
		{Path: "same.txt", Content: "second\n"},
	}
	result, err := materialize.Materialize(context.Background(), filesystem, entries, destinationRoot, materialize.Options{Overwrite: true})
	if err != nil {
		testingInstance.Fatalf("materialize: %v", err)
	}
	if result.Stats.Written != 1 || result.Stats.Overwritten != 1 {
		testingInstance.Fatalf("unexpected stats %+v", result.Stats)
	}
	if actual := readFile(testingInstance, filesystem, "same.txt"); actual != "second\n" {
		testingInstance.Fatalf("expected last writer to win, got %q", actual)
	}

	skipFilesystem := afero.NewMemMapFs()
	if _, err := materialize.Materialize(context.Background(), skipFilesystem, entries, destinationRoot, materialize.Options{}); err != nil {
		testingInstance.Fatalf("materialize: %v", err)
	}
	if actual := readFile(testingInstance, skipFilesystem, "same.txt"); actual != "first\n" {
		testingInstance.Fatalf("expected first entry kept without overwrite, got %q", actual)
	}
}

func TestMaterializeRecordsWriteFailures(testingInstance *testing.T) {
	readOnly := afero.NewReadOnlyFs(afero.NewMemMapFs())
	result, err := materialize.Materialize(context.Background(), readOnly, []types.Entry{{Path: "a.txt", Content: "a"}}, destinationRoot, materialize.Options{})
	if err != nil {
		testingInstance.Fatalf("materialize: %v", err)
	}
	if result.Stats.Errors != 1 {
		testingInstance.Fatalf("expected write error, got %+v", result.Stats)
	}
	dryRun, dryRunErr := materialize.Materialize(context.Background(), readOnly, []types.Entry{{Path: "a.txt", Content: "a"}}, destinationRoot, materialize.Options{DryRun: true})
	if dryRunErr != nil || dryRun.Stats.Written != 1 {
		testingInstance.Fatalf("dry run must not touch the filesystem: %+v %v", dryRun.Stats, dryRunErr)
	}
}

func TestMaterializeHonorsCancellation(testingInstance *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := materialize.Materialize(ctx, afero.NewMemMapFs(), []types.Entry{{Path: "a.txt"}}, destinationRoot, materialize.Options{})
	if !errors.Is(err, context.Canceled) {
		testingInstance.Fatalf("expected cancellation, got %v", err)
	}
}
