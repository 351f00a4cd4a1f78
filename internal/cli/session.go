package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewSessionCmd создаёт группу команд для управления sessions.
func NewSessionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage orchestration sessions",
	}

	cmd.AddCommand(
		newSessionSubmitCmd(clientFn, outputFn),
		newSessionListCmd(clientFn, outputFn),
		newSessionShowCmd(clientFn, outputFn),
		newSessionTasksCmd(clientFn, outputFn),
		newSessionApproveCmd(clientFn, outputFn),
		newSessionRejectCmd(clientFn, outputFn),
		newSessionModifyCmd(clientFn, outputFn),
	)

	return cmd
}

func newSessionSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var mode string
	var maxReplans int

	cmd := &cobra.Command{
		Use:   "submit REQUEST",
		Short: "Submit a new request for orchestration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateSessionRequest{
				Request: args[0],
				Mode:    mode,
			}
			if cmd.Flags().Changed("max-replans") {
				req.MaxReplans = &maxReplans
			}

			sess, err := client.CreateSession(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Session submitted: %s", sess.ID))
			out.Print(
				[]string{"ID", "MODE", "STATUS", "CREATED"},
				[][]string{{sess.ID, sess.Mode, sess.Status, sess.CreatedAt}},
				sess,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Execution mode (auto, interactive, review)")
	cmd.Flags().IntVar(&maxReplans, "max-replans", 0, "Replanning budget for the session")

	return cmd
}

func newSessionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sessions, err := client.ListSessions(ListSessionsOpts{
				Status: status,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "MODE", "STATUS", "REPLANS", "REQUEST", "CREATED"}
			rows := make([][]string, len(sessions))
			for i, s := range sessions {
				rows[i] = []string{
					s.ID, s.Mode, s.Status,
					fmt.Sprintf("%d/%d", s.ReplanCount, s.MaxReplans),
					truncate(s.Request, 48), s.CreatedAt,
				}
			}

			out.Print(headers, rows, sessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, EXECUTING, AWAITING_APPROVAL, COMPLETED, REJECTED, ...)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newSessionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var transcript bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			sess, err := client.GetSession(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "MODE", "STATUS", "REPLANS", "CREATED", "FINISHED"},
				[][]string{{
					sess.ID, sess.Mode, sess.Status,
					fmt.Sprintf("%d/%d", sess.ReplanCount, sess.MaxReplans),
					sess.CreatedAt, sess.FinishedAt,
				}},
				sess,
			)

			if transcript {
				for _, m := range sess.Messages {
					out.Success(fmt.Sprintf("[%s] %s", m.Role, m.Content))
				}
			} else if sess.FinalResponse != "" {
				out.Success("")
				out.Success(sess.FinalResponse)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&transcript, "transcript", false, "Print the full message transcript")

	return cmd
}

func newSessionTasksCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks ID",
		Short: "List tasks in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListSessionTasks(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "AGENT", "STATUS", "DEPENDS_ON", "DESCRIPTION", "ERROR"}
			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{
					t.ID, t.AgentName, t.Status,
					strings.Join(t.DependsOn, ","),
					truncate(t.Description, 48), t.Error,
				}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}
}

func newSessionApproveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "approve ID",
		Short: "Approve the proposed plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.SubmitDecision(args[0], DecisionRequest{Decision: "APPROVED"})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan approved: %s", result.SessionID))
			return nil
		},
	}
}

func newSessionRejectCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject ID",
		Short: "Reject the proposed plan and request replanning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.SubmitDecision(args[0], DecisionRequest{
				Decision: "REJECTED",
				Reason:   reason,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan rejected: %s", result.SessionID))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Feedback for the next planning attempt")

	return cmd
}

func newSessionModifyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var reason string
	var planFile string

	cmd := &cobra.Command{
		Use:   "modify ID",
		Short: "Modify the proposed plan (feedback or replacement plan)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := DecisionRequest{
				Decision: "MODIFIED",
				Reason:   reason,
			}

			if planFile != "" {
				data, err := os.ReadFile(planFile)
				if err != nil {
					return fmt.Errorf("failed to read plan file: %w", err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("plan file %s is not valid JSON", planFile)
				}
				req.Plan = json.RawMessage(data)
			}

			if req.Plan == nil && req.Reason == "" {
				return fmt.Errorf("either --plan or --reason is required")
			}

			result, err := client.SubmitDecision(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Plan modification submitted: %s", result.SessionID))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Feedback for the next planning attempt")
	cmd.Flags().StringVar(&planFile, "plan", "", "Path to a JSON file with the replacement plan")

	return cmd
}

// truncate обрезает строку до n символов для табличного вывода.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	if n > 3 {
		return s[:n-3] + "..."
	}
	return s[:n]
}
