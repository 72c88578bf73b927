// Package write implements the single-shot file writer tool: create a file
// at a given path and store one newline-terminated string in it. The parent
// directory must already exist.
package write

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetlog/packetlogd/utils/log"
)

const (
	writeUsage     = "write"
	writeShortDesc = "Write a string to a file, creating the file"
	writeLongDesc  = "Creates (or truncates) the file at --file and writes the --text string to it, newline-terminated"
	writeFileDesc  = "path of the file to write"
	writeTextDesc  = "string to store in the file"
)

var (
	// Cmd is the write command.
	Cmd = &cobra.Command{
		Use:     writeUsage,
		Short:   writeShortDesc,
		Long:    writeLongDesc,
		Example: "packetlogd tool write --file /tmp/out.txt --text hello",
		RunE:    executeWrite,
	}
	writeFilePath string
	writeText     string
)

func init() {
	Cmd.Flags().StringVarP(&writeFilePath, "file", "f", "", writeFileDesc)
	Cmd.Flags().StringVarP(&writeText, "text", "t", "", writeTextDesc)
	Cmd.MarkFlagRequired("file")
	Cmd.MarkFlagRequired("text")
}

func executeWrite(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	log.Debug("writing '%s' to '%s'", writeText, writeFilePath)
	if err := os.WriteFile(writeFilePath, []byte(writeText+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", writeFilePath, err)
	}
	return nil
}
