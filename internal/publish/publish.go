package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"daylist-cli/internal/model"
)

type WriteOptions struct {
	RenderOptions
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WritePages writes one <date>.md file per page into toDir/<workspace-id>/.
func WritePages(ws model.Workspace, pages []model.Page, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	if strings.TrimSpace(ws.ID) == "" {
		return WriteResult{}, errors.New("missing workspace id")
	}
	outDir := filepath.Join(filepath.Clean(toDir), ws.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	written := make([]string, 0, len(pages))
	for _, p := range pages {
		if err := model.ValidateDate(p.Date); err != nil {
			return WriteResult{Written: written}, err
		}
		md := RenderPageMarkdown(ws.Name, p, opt.RenderOptions)
		path := filepath.Join(outDir, p.Date+".md")
		if err := writeFile(path, []byte(md), opt.Overwrite); err != nil {
			return WriteResult{Written: written}, err
		}
		written = append(written, path)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
