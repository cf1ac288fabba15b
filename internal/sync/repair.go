package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corvid/transcriptkeeper/internal/pathcodec"
	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
)

// RepairResult reports what one idempotent repair pass did.
type RepairResult struct {
	Fixed     []string
	Unfixable []string
}

// RepairScratchDirs recreates missing scratch working-directory folders.
// Project folders with no corresponding working directory are reported as
// unfixable: recreating an arbitrary project path from its encoded name
// alone risks creating the wrong directory when the encoding was
// ambiguous, whereas scratch directories are synthetic and always safe to
// recreate.
func (e *Engine) RepairScratchDirs(scratchRoot string) (RepairResult, error) {
	var res RepairResult
	projectsDir := filepath.Join(e.Root, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, fmt.Errorf("read projects directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		decoded := pathcodec.Decode(entry.Name())
		if !strings.HasPrefix(decoded, scratchRoot) {
			if _, err := os.Stat(decoded); err != nil {
				res.Unfixable = append(res.Unfixable, decoded)
			}
			continue
		}
		if _, err := os.Stat(decoded); err == nil {
			continue
		}
		if err := os.MkdirAll(decoded, 0755); err != nil {
			res.Unfixable = append(res.Unfixable, decoded)
			continue
		}
		res.Fixed = append(res.Fixed, decoded)
	}
	return res, nil
}

// RepairCwdFields rewrites the cwd fields in every transcript to match its
// parent directory's decoded path. Every file rewritten without error is
// reported as fixed, whether or not its cwd fields differed.
func (e *Engine) RepairCwdFields() (RepairResult, error) {
	var res RepairResult
	onDisk, err := e.enumerate()
	if err != nil {
		return res, fmt.Errorf("enumerate transcript root: %w", err)
	}
	for _, f := range onDisk {
		expected := pathcodec.Decode(f.encodedDir)
		if err := rewriteCwd(f.path, expected); err != nil {
			res.Unfixable = append(res.Unfixable, f.path)
			continue
		}
		res.Fixed = append(res.Fixed, f.path)
	}
	return res, nil
}

// RepairMissingIndex walks the transcript root and indexes any file whose
// absolute path is unknown to the store.
func (e *Engine) RepairMissingIndex(ctx context.Context) (RepairResult, error) {
	var res RepairResult
	onDisk, err := e.enumerate()
	if err != nil {
		return res, fmt.Errorf("enumerate transcript root: %w", err)
	}
	indexed, err := e.Store.ListSessions(ctx, sqlite.ListFilter{IncludeDeleted: true, IncludeArchived: true})
	if err != nil {
		return res, fmt.Errorf("load indexed file rows: %w", err)
	}
	known := make(map[string]bool, len(indexed))
	for _, row := range indexed {
		known[row.FilePath] = true
	}
	for _, f := range onDisk {
		if known[f.path] {
			continue
		}
		if err := e.indexNewFile(ctx, f); err != nil {
			res.Unfixable = append(res.Unfixable, f.path)
			continue
		}
		res.Fixed = append(res.Fixed, f.path)
	}
	return res, nil
}
