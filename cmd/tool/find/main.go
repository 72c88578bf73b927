// Package find implements the directory search tool: count the files under
// a directory and the lines in them containing a search string.
package find

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	findUsage      = "find"
	findShortDesc  = "Count files and matching lines under a directory"
	findLongDesc   = "Walks the --dir tree counting regular files and the lines containing the --search string"
	findDirDesc    = "directory to search"
	findSearchDesc = "string to search for"
)

var (
	// Cmd is the find command.
	Cmd = &cobra.Command{
		Use:     findUsage,
		Short:   findShortDesc,
		Long:    findLongDesc,
		Example: "packetlogd tool find --dir /etc --search localhost",
		RunE:    executeFind,
	}
	findDir    string
	findSearch string
)

func init() {
	Cmd.Flags().StringVarP(&findDir, "dir", "d", "", findDirDesc)
	Cmd.Flags().StringVarP(&findSearch, "search", "s", "", findSearchDesc)
	Cmd.MarkFlagRequired("dir")
	Cmd.MarkFlagRequired("search")
}

func executeFind(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	files, lines, err := Count(findDir, findSearch)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"The number of files are %d and the number of matching lines are %d\n", files, lines)
	return nil
}

// Count walks the directory tree rooted at dir and returns the number of
// regular files and the number of lines across them containing search.
func Count(dir, search string) (files, lines int, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, 0, fmt.Errorf("%s is not a directory", dir)
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		files++

		n, err := countMatchingLines(path, search)
		if err != nil {
			return err
		}
		lines += n
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, lines, nil
}

func countMatchingLines(path, search string) (int, error) {
	fp, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer fp.Close()

	count := 0
	scanner := bufio.NewScanner(fp)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), search) {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan %s: %w", path, err)
	}
	return count, nil
}
