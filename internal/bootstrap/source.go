package bootstrap

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/optiprofile/ranker/pkg/types"
)

// FileSource reads benchmark content from a JSONL file, one Content
// object per line. Blank lines are ignored.
type FileSource struct {
	Path string
}

var _ ContentSource = (*FileSource)(nil)

// NewFileSource creates a source backed by the given JSONL file.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads and validates all content lines, filtered by platform
// when one is given.
func (f *FileSource) Fetch(ctx context.Context, platform types.Platform) ([]Content, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open content file: %w", err)
	}
	defer file.Close()

	var contents []Content
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c Content
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrValidation, lineNo, err)
		}
		if !types.ValidPlatform(c.Platform) {
			return nil, fmt.Errorf("%w: line %d: unknown platform %q", types.ErrValidation, lineNo, c.Platform)
		}
		if c.Section == "" || c.SourceRef == "" {
			return nil, fmt.Errorf("%w: line %d: section and sourceRef are required", types.ErrValidation, lineNo)
		}
		if platform != "" && c.Platform != platform {
			continue
		}
		contents = append(contents, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}
	return contents, nil
}
