package selector_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/mdpack/internal/selector"
	"github.com/temirov/mdpack/internal/types"
)

func createFiles(testingInstance *testing.T, root string, files map[string]string) {
	testingInstance.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			testingInstance.Fatalf("mkdir %s: %v", fullPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			testingInstance.Fatalf("write %s: %v", fullPath, err)
		}
	}
}

func relativeFiles(testingInstance *testing.T, root string, selection selector.Selection) []string {
	testingInstance.Helper()
	result := make([]string, 0, len(selection.Files))
	for _, absolutePath := range selection.Files {
		relativePath, err := filepath.Rel(root, absolutePath)
		if err != nil {
			testingInstance.Fatalf("rel: %v", err)
		}
		result = append(result, filepath.ToSlash(relativePath))
	}
	return result
}

func assertFiles(testingInstance *testing.T, actual []string, expected []string) {
	testingInstance.Helper()
	if len(actual) != len(expected) {
		testingInstance.Fatalf("expected %v, got %v", expected, actual)
	}
	for index := range expected {
		if actual[index] != expected[index] {
			testingInstance.Fatalf("expected %v, got %v", expected, actual)
		}
	}
}

func TestSelectAppliesFilterPrecedence(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{
		"main.py":                "print('main')\n",
		"helper.py":              "print('helper')\n",
		"README.py":              "readme\n",
		"notes.md":               "notes\n",
		"node_modules/lib.js":    "lib\n",
		"core/README_core.txt":   "mandatory readme\n",
		"core/deep/image.bin":    "raw\n",
		"core/deep/any_match.rs": "fn main() {}\n",
		"src/any_module.py":      "any\n",
		"merged_output_proj.md":  "old output\n",
		"src/nested/mainline.ts": "export {}\n",
	})

	testCases := []struct {
		testName string
		rules    types.FilterRules
		expected []string
	}{
		{
			testName: "base rules",
			rules: types.FilterRules{
				ExcludedDirNames:     []string{"node_modules"},
				ExcludedFilePrefixes: []string{"README"},
				IncludedExtensions:   []string{".py", ".ts", ".rs"},
			},
			expected: []string{"core/deep/any_match.rs", "helper.py", "main.py", "src/any_module.py", "src/nested/mainline.ts"},
		},
		{
			testName: "mandatory overrides prefix and extension",
			rules: types.FilterRules{
				MandatoryPaths:       []string{"core"},
				ExcludedDirNames:     []string{"node_modules"},
				ExcludedFilePrefixes: []string{"README"},
				IncludedExtensions:   []string{".py"},
			},
			expected: []string{"core/README_core.txt", "core/deep/any_match.rs", "core/deep/image.bin", "helper.py", "main.py", "src/any_module.py"},
		},
		{
			testName: "just filter wins over any filter",
			rules: types.FilterRules{
				ExcludedDirNames:   []string{"node_modules"},
				IncludedExtensions: []string{".py", ".ts", ".rs"},
				JustPrefixes:       []string{"main"},
				AnyContains:        []string{"ANY"},
			},
			expected: []string{"main.py", "src/nested/mainline.ts"},
		},
		{
			testName: "any filter matches case-insensitively",
			rules: types.FilterRules{
				ExcludedDirNames:   []string{"node_modules"},
				IncludedExtensions: []string{".py", ".ts", ".rs"},
				AnyContains:        []string{"ANY"},
			},
			expected: []string{"core/deep/any_match.rs", "src/any_module.py"},
		},
		{
			testName: "empty extension list keeps only mandatory files",
			rules: types.FilterRules{
				MandatoryPaths:     []string{"core"},
				ExcludedDirNames:   []string{"node_modules"},
				IncludedExtensions: []string{},
			},
			expected: []string{"core/README_core.txt", "core/deep/any_match.rs", "core/deep/image.bin"},
		},
		{
			testName: "globs prune directories and skip files",
			rules: types.FilterRules{
				ExcludedDirNames:   []string{"node_modules"},
				IncludedExtensions: []string{".py", ".ts", ".rs"},
				ExcludedGlobs:      []string{"src/**", "*.rs", "core/deep"},
			},
			expected: []string{"README.py", "helper.py", "main.py"},
		},
	}
	for _, testCase := range testCases {
		testingInstance.Run(testCase.testName, func(subTest *testing.T) {
			selection, err := selector.Select(context.Background(), root, testCase.rules, selector.Options{SkipNames: []string{"merged_output_proj.md"}})
			if err != nil {
				subTest.Fatalf("select: %v", err)
			}
			assertFiles(subTest, relativeFiles(subTest, root, selection), testCase.expected)
		})
	}
}

func TestSelectSkipsOutputDocument(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{
		"keep.md":     "keep\n",
		"output.md":   "previous merge\n",
		"mdpack.yaml": "project_description: x\n",
	})
	rules := types.FilterRules{IncludedExtensions: []string{".md", ".yaml"}}
	selection, err := selector.Select(context.Background(), root, rules, selector.Options{SkipNames: []string{"output.md", "mdpack.yaml"}})
	if err != nil {
		testingInstance.Fatalf("select: %v", err)
	}
	assertFiles(testingInstance, relativeFiles(testingInstance, root, selection), []string{"keep.md"})
}

func TestSelectWithEmptyExtensionListSkipsUnlistedFiles(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{
		"a.py":     "print('a')\n",
		"blob.bin": string([]byte{0x00, 0x01, 0x02}),
	})
	selection, err := selector.Select(context.Background(), root, types.FilterRules{IncludedExtensions: []string{}}, selector.Options{})
	if err != nil {
		testingInstance.Fatalf("select: %v", err)
	}
	if len(selection.Files) != 0 {
		testingInstance.Fatalf("expected no eligible files, got %v", selection.Files)
	}
}

func TestSelectKeywordFilter(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{
		"alpha.py":  "# TODO: refactor\nimport os\n",
		"beta.py":   "print('nothing here')\n",
		"gamma.py":  "x = 1  # fixme and todo\n",
		"data.py":   string([]byte{0xff, 0xfe, 0x00, 'T', 'O', 'D', 'O'}),
		"core/c.py": "no keyword but mandatory\n",
	})
	rules := types.FilterRules{
		MandatoryPaths:     []string{"core"},
		IncludedExtensions: []string{".py"},
		SearchKeywords:     []string{"todo", "FIXME"},
	}
	selection, err := selector.Select(context.Background(), root, rules, selector.Options{})
	if err != nil {
		testingInstance.Fatalf("select: %v", err)
	}
	assertFiles(testingInstance, relativeFiles(testingInstance, root, selection), []string{"alpha.py", "core/c.py", "gamma.py"})
	if selection.SkippedByKeywords != 2 {
		testingInstance.Fatalf("expected 2 keyword skips, got %d", selection.SkippedByKeywords)
	}
	assertFiles(testingInstance, selection.Keywords["gamma.py"], []string{"FIXME", "todo"})
	assertFiles(testingInstance, selection.Keywords["alpha.py"], []string{"todo"})
	if _, exists := selection.Keywords["core/c.py"]; exists {
		testingInstance.Fatalf("mandatory files are not keyword-scanned")
	}
}

func TestSelectRespectsGitignore(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{
		".gitignore":        "generated/\n*.log.py\n",
		"app.py":            "app\n",
		"debug.log.py":      "log\n",
		"generated/stub.py": "stub\n",
	})
	rules := types.FilterRules{IncludedExtensions: []string{".py"}, RespectGitignore: true}
	selection, err := selector.Select(context.Background(), root, rules, selector.Options{})
	if err != nil {
		testingInstance.Fatalf("select: %v", err)
	}
	assertFiles(testingInstance, relativeFiles(testingInstance, root, selection), []string{"app.py"})

	rules.RespectGitignore = false
	selection, err = selector.Select(context.Background(), root, rules, selector.Options{})
	if err != nil {
		testingInstance.Fatalf("select: %v", err)
	}
	assertFiles(testingInstance, relativeFiles(testingInstance, root, selection), []string{"app.py", "debug.log.py", "generated/stub.py"})
}

func TestSelectIsDeterministic(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{
		"b/z.py": "z\n", "a/y.py": "y\n", "c.py": "c\n", "a/b/x.py": "x\n",
	})
	rules := types.FilterRules{IncludedExtensions: []string{".py"}}
	first, firstErr := selector.Select(context.Background(), root, rules, selector.Options{})
	second, secondErr := selector.Select(context.Background(), root, rules, selector.Options{})
	if firstErr != nil || secondErr != nil {
		testingInstance.Fatalf("select: %v %v", firstErr, secondErr)
	}
	assertFiles(testingInstance, second.Files, first.Files)
	assertFiles(testingInstance, relativeFiles(testingInstance, root, first), []string{"a/b/x.py", "a/y.py", "b/z.py", "c.py"})
}

func TestSelectHonorsCancellation(testingInstance *testing.T) {
	root := testingInstance.TempDir()
	createFiles(testingInstance, root, map[string]string{"a.py": "a\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := selector.Select(ctx, root, types.FilterRules{}, selector.Options{}); err == nil {
		testingInstance.Fatalf("expected cancellation error")
	}
}
