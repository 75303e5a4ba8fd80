// Package export writes normalized comments as analysis input and post-processes categorized
// output files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/target/sensemaker/internal/domain/model"
)

// Column names of the analysis input file.
const (
	ColumnID        = "comment-id"
	ColumnText      = "comment_text"
	ColumnAgrees    = "agrees"
	ColumnDisagrees = "disagrees"
	ColumnPasses    = "passes"
	ColumnAuthor    = "author-id"
)

// Header is the header row written by WriteComments.
var Header = []string{ColumnID, ColumnText, ColumnAgrees, ColumnDisagrees, ColumnPasses, ColumnAuthor}

// UnfilteredSuffix names the backup written next to a filtered file.
const UnfilteredSuffix = ".unfiltered"

// WriteComments writes comments as CSV. Passes are the votes not counted as up or down.
func WriteComments(w io.Writer, comments []model.NormalizedComment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range comments {
		if err := cw.Write(commentRow(c)); err != nil {
			return fmt.Errorf("write comment %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func commentRow(c model.NormalizedComment) []string {
	passes := max(c.CachedVotesTotal-c.CachedVotesUp-c.CachedVotesDown, 0)
	author := ""
	if c.UserID != nil {
		author = strconv.FormatInt(*c.UserID, 10)
	}
	return []string{
		c.ID,
		c.Body,
		strconv.Itoa(c.CachedVotesUp),
		strconv.Itoa(c.CachedVotesDown),
		strconv.Itoa(passes),
		author,
	}
}

// ExportFile writes comments to path, creating parent directories as needed.
func ExportFile(path string, comments []model.NormalizedComment) error {
	var buf bytes.Buffer
	if err := WriteComments(&buf, comments); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	return replaceFile(path, buf.Bytes(), modeOf(path, 0o644))
}

// FilterZeroVoteComments drops rows whose agrees, disagrees and passes sum to zero and returns
// the number of rows kept. Missing vote columns count as zero and other columns pass through.
//
// When at least one row is removed the original content is saved to path+".unfiltered" before
// path is replaced. A missing file is not an error and nothing is written.
func FilterZeroVoteComments(path string) (int, error) {
	original, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	cr := csv.NewReader(bytes.NewReader(original))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	header, rows := records[0], records[1:]
	voteCols := voteColumns(header)
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if voteSum(row, voteCols) != 0 {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(rows) {
		return len(kept), nil
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(append([][]string{header}, kept...)); err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	mode := modeOf(path, 0o644)
	if err := replaceFile(path+UnfilteredSuffix, original, mode); err != nil {
		return 0, err
	}
	if err := replaceFile(path, buf.Bytes(), mode); err != nil {
		return 0, err
	}
	return len(kept), nil
}

func voteColumns(header []string) []int {
	var cols []int
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ColumnAgrees, ColumnDisagrees, ColumnPasses:
			cols = append(cols, i)
		}
	}
	return cols
}

// voteSum adds the vote cells of row. Blank, short or non-numeric cells count as zero.
func voteSum(row []string, cols []int) float64 {
	var sum float64
	for _, i := range cols {
		if i >= len(row) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			continue
		}
		sum += n
	}
	return sum
}

// modeOf returns the permission bits of path, or fallback when it cannot be read.
func modeOf(path string, fallback fs.FileMode) fs.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return fallback
	}
	return info.Mode().Perm()
}

// replaceFile writes data to a temporary sibling and renames it over path with the given mode.
func replaceFile(path string, data []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
