package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewAgentsCmd создаёт команду для просмотра обнаруженных агентов.
func NewAgentsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List discovered remote agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			agents, err := client.ListAgents()
			if err != nil {
				return err
			}

			headers := []string{"AGENT_ID", "NAME", "CAPABILITIES", "DESCRIPTION"}
			rows := make([][]string, len(agents))
			for i, a := range agents {
				rows[i] = []string{
					a.AgentID, a.Name,
					strings.Join(a.Capabilities, ","),
					truncate(a.Description, 48),
				}
			}

			out.Print(headers, rows, agents)
			return nil
		},
	}
}
