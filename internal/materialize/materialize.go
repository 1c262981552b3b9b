// Package materialize writes parsed entries back onto a filesystem.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/temirov/mdpack/internal/types"
)

const (
	directoryPermissions = 0o755
	filePermissions      = 0o644

	errorCreateDirectoryFormat = "create directory %s: %w"
	errorWriteFileFormat       = "write %s: %w"
	errorInspectFormat         = "inspect %s: %w"
)

// ErrUnsafePath marks an entry path that is absolute or leaves the destination root.
var ErrUnsafePath = errors.New("entry path escapes the destination directory")

// Options selects the collision and dry-run policy.
type Options struct {
	Overwrite bool
	DryRun    bool
	// Observer, when set, receives every action as soon as it is decided.
	Observer func(types.MaterializeAction)
}

// Result holds the aggregated stats and the per-entry actions in entry order.
type Result struct {
	Stats   types.MaterializeStats
	Actions []types.MaterializeAction
}

// Materialize writes entries under destinationRoot. Per-entry failures are recorded and
// processing continues; only cancellation stops the run early.
func Materialize(ctx context.Context, filesystem afero.Fs, entries []types.Entry, destinationRoot string, options Options) (Result, error) {
	var result Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		action := materializeEntry(filesystem, entry, destinationRoot, options)
		switch action.Kind {
		case types.ActionWrite:
			result.Stats.Written++
		case types.ActionOverwrite:
			result.Stats.Overwritten++
		case types.ActionSkip:
			result.Stats.Skipped++
		case types.ActionError:
			result.Stats.Errors++
		}
		result.Actions = append(result.Actions, action)
		if options.Observer != nil {
			options.Observer(action)
		}
	}
	return result, nil
}

func materializeEntry(filesystem afero.Fs, entry types.Entry, destinationRoot string, options Options) types.MaterializeAction {
	action := types.MaterializeAction{Path: entry.Path}
	destinationPath, resolveErr := DestinationPath(destinationRoot, entry.Path)
	if resolveErr != nil {
		action.Kind = types.ActionError
		action.Err = resolveErr
		return action
	}

	exists, existsErr := afero.Exists(filesystem, destinationPath)
	if existsErr != nil {
		action.Kind = types.ActionError
		action.Err = fmt.Errorf(errorInspectFormat, destinationPath, existsErr)
		return action
	}
	if exists && !options.Overwrite {
		action.Kind = types.ActionSkip
		return action
	}
	action.Kind = types.ActionWrite
	if exists {
		action.Kind = types.ActionOverwrite
	}
	if options.DryRun {
		return action
	}

	if err := filesystem.MkdirAll(filepath.Dir(destinationPath), directoryPermissions); err != nil {
		action.Kind = types.ActionError
		action.Err = fmt.Errorf(errorCreateDirectoryFormat, filepath.Dir(destinationPath), err)
		return action
	}
	if err := afero.WriteFile(filesystem, destinationPath, []byte(entry.Content), filePermissions); err != nil {
		action.Kind = types.ActionError
		action.Err = fmt.Errorf(errorWriteFileFormat, destinationPath, err)
		return action
	}
	return action
}

// DestinationPath joins a forward-slash entry path onto destinationRoot, rejecting paths
// that are absolute or climb out of it.
func DestinationPath(destinationRoot string, entryPath string) (string, error) {
	localPath := filepath.FromSlash(entryPath)
	if filepath.IsAbs(localPath) || !filepath.IsLocal(localPath) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, entryPath)
	}
	return filepath.Join(destinationRoot, localPath), nil
}
