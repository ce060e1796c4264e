// Package params parses dataset parameter descriptor files.
//
// A parameter file is line-oriented text where each line declares one
// parameter as "key: value". A file may carry several logical blocks;
// a new block begins whenever a key repeats that was already seen in
// the current block. Each block yields one ParameterSet.
package params

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// DefaultFilename is the conventional parameter descriptor name inside
// a dataset directory.
const DefaultFilename = "params.txt"

// Block is one logical parameter grouping within a parameter file.
type Block struct {
	// Params maps parameter names to their typed values.
	Params types.ParameterSet

	// Raw is the source text of the block's lines, newline-joined.
	// It feeds the row fingerprint and the stored provenance copy.
	Raw string
}

// Parse reads parameter blocks from r. The parser is tolerant: blank
// lines and lines without a "key: value" shape are skipped, never
// surfaced. Only a read failure on r itself produces an error.
func Parse(r io.Reader) ([]Block, error) {
	var (
		blocks []Block
		cur    types.ParameterSet
		lines  []string
	)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		blocks = append(blocks, Block{
			Params: cur,
			Raw:    strings.Join(lines, "\n"),
		})
		cur = nil
		lines = nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := splitLine(line)
		if !ok {
			continue
		}
		if _, seen := cur[key]; seen {
			// Repeated key starts a new block.
			flush()
		}
		if cur == nil {
			cur = make(types.ParameterSet)
		}
		cur[key] = types.ParseValue(value)
		lines = append(lines, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewParseError("failed to read parameter file", err)
	}
	flush()

	return blocks, nil
}

// ParseFile parses the parameter file at path. An unreadable file is a
// parse error carrying the path; per-line malformations are absorbed.
func ParseFile(path string) ([]Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("cannot open parameter file %s", path), err)
	}
	defer f.Close()

	blocks, err := Parse(f)
	if err != nil {
		return nil, errors.NewParseError(fmt.Sprintf("cannot read parameter file %s", path), err)
	}
	return blocks, nil
}

// splitLine extracts the key and raw value from a "key: value" line.
// Lines without a colon, or with an empty key, do not parse.
func splitLine(line string) (key, value string, ok bool) {
	if strings.TrimSpace(line) == "" {
		return "", "", false
	}
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}
