package tool

import (
	"github.com/spf13/cobra"

	"github.com/packetlog/packetlogd/cmd/tool/find"
	"github.com/packetlog/packetlogd/cmd/tool/write"
)

const (
	toolUsage     = "tool"
	toolShortDesc = "Executes tools as subcommands"
	toolLongDesc  = "This command executes the specified file utility tool"
	toolExample   = "packetlogd tool write [flags]"
)

var (
	// Cmd is the tool command.
	Cmd = &cobra.Command{
		Use:        toolUsage,
		Short:      toolShortDesc,
		Long:       toolLongDesc,
		SuggestFor: []string{"write", "find"},
		Example:    toolExample,
	}
)

func init() {
	Cmd.AddCommand(write.Cmd)
	Cmd.AddCommand(find.Cmd)
}
