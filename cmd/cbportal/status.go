package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go.klb.dev/cbportal/internal/ipc"
	"go.klb.dev/cbportal/internal/payload"
	"go.klb.dev/cbportal/internal/statusrpc"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running sync daemon's activity",
		Long: `Queries a running "cbportal sync" through the local status socket and
prints its broker, topic and message counters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			return runStatus(jsonOut)
		},
	}

	cmd.Flags().Bool("json", false, "output raw JSON")

	return cmd
}

func runStatus(jsonOut bool) error {
	path := ipc.SocketPath()
	if !ipc.IsRunning(path) {
		return errors.New("no cbportal sync running (socket " + path + ")")
	}
	conn, err := statusrpc.Dial(path)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := statusrpc.Healthy(ctx, conn)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if !ok {
		return errors.New("cbportal sync is not serving status")
	}
	st, err := statusrpc.Get(ctx, conn)
	if err != nil {
		return err
	}

	if jsonOut {
		enc, err := json.MarshalIndent(statusJSON(st), "", "  ")
		if err != nil {
			return fmt.Errorf("encode status: %w", err)
		}
		fmt.Println(string(enc))
		return nil
	}
	printStatus(st)
	return nil
}

// jsonStatus is the --json shape: snake_case keys, interval as a duration string.
type jsonStatus struct {
	Version     string    `json:"version"`
	Broker      string    `json:"broker"`
	Topic       string    `json:"topic"`
	Backend     string    `json:"backend"`
	Started     time.Time `json:"started"`
	Interval    string    `json:"interval"`
	Published   int64     `json:"published"`
	Applied     int64     `json:"applied"`
	Rejected    int64     `json:"rejected"`
	Duplicates  int64     `json:"duplicates"`
	LastSent    string    `json:"last_sent"`
	LastApplied string    `json:"last_applied"`
}

func statusJSON(st *statusrpc.Status) jsonStatus {
	return jsonStatus{
		Version:     st.Version,
		Broker:      st.Broker,
		Topic:       st.Topic,
		Backend:     st.Backend,
		Started:     st.Started,
		Interval:    st.Interval.String(),
		Published:   st.Published,
		Applied:     st.Applied,
		Rejected:    st.Rejected,
		Duplicates:  st.Duplicates,
		LastSent:    st.LastSent,
		LastApplied: st.LastApplied,
	}
}

func printStatus(st *statusrpc.Status) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", st.Version)
	fmt.Fprintf(w, "Broker:\t%s\n", st.Broker)
	fmt.Fprintf(w, "Topic:\t%s\n", st.Topic)
	fmt.Fprintf(w, "Clipboard:\t%s\n", st.Backend)
	if !st.Started.IsZero() {
		fmt.Fprintf(w, "Running:\tsince %s (%s)\n", st.Started.Local().Format(time.RFC3339), fmtAge(st.Started))
	}
	fmt.Fprintf(w, "Interval:\t%s\n", st.Interval)
	fmt.Fprintf(w, "Published:\t%d\n", st.Published)
	fmt.Fprintf(w, "Applied:\t%d\n", st.Applied)
	fmt.Fprintf(w, "Rejected:\t%d\n", st.Rejected)
	fmt.Fprintf(w, "Duplicates:\t%d\n", st.Duplicates)
	fmt.Fprintf(w, "Last sent:\t%s\n", shortOrDash(st.LastSent))
	fmt.Fprintf(w, "Last applied:\t%s\n", shortOrDash(st.LastApplied))
	_ = w.Flush()
}

func shortOrDash(hash string) string {
	if hash == "" {
		return "-"
	}
	return payload.Short(hash)
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return fmt.Sprintf("%dh%dm ago", int(age.Hours()), int(age.Minutes())%60)
}
