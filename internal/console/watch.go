package console

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	perr "callrota/internal/platform/errors"
	ctrl "callrota/internal/services/control/domain"
)

// WatchCmd follows an agent's status stream
func WatchCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live status of one agent",
		Long: `Connect to an agent's status stream and print every snapshot it publishes
until interrupted or the agent closes the stream.

Examples:
  callrota-console watch --agent http://rediris-agent:4000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			agent, _ := cmd.Flags().GetString("agent")
			count, _ := cmd.Flags().GetInt("count")
			u, err := streamURL(agent)
			if err != nil {
				return err
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "connect %s", u)
			}
			defer conn.Close()
			go func() {
				<-ctx.Done()
				_ = conn.Close()
			}()

			fmt.Fprintf(out, "%s %s\n", faint.Sprint("conectado a"), u)
			for n := 0; count <= 0 || n < count; n++ {
				var s ctrl.Snapshot
				if err := conn.ReadJSON(&s); err != nil {
					var ce *websocket.CloseError
					if ctx.Err() != nil || errors.As(err, &ce) {
						return nil
					}
					return perr.Wrap(err, perr.ErrorCodeUnavailable, "status stream")
				}
				printSnapshot(out, s, a.now().In(a.zone()))
			}
			return nil
		},
	}
	cmd.Flags().String("agent", "http://localhost:4000", "agent base URL")
	cmd.Flags().Int("count", 0, "stop after this many snapshots; 0 follows forever")
	return cmd
}

// streamURL maps the agent base URL onto its websocket endpoint
func streamURL(agent string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(agent))
	if err != nil || u.Host == "" {
		return "", perr.WithField(perr.Newf(perr.ErrorCodeValidation, "bad agent url %q", agent), "agent")
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", perr.WithField(perr.Newf(perr.ErrorCodeValidation, "unsupported scheme %q", u.Scheme), "agent")
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/status/stream"
	return u.String(), nil
}

func printSnapshot(out io.Writer, s ctrl.Snapshot, at time.Time) {
	line := fmt.Sprintf("%-8s %-24s %s", s.Status, s.ResultCode, s.Resultado)
	if s.LastTargetName != "" {
		line += " → " + s.LastTargetName
	}
	if s.ApplyID != "" {
		line += faint.Sprintf(" [%s %s]", s.ApplyTrigger, s.ApplyID)
	}
	fmt.Fprintf(out, "%s %s\n", faint.Sprint(at.Format("15:04:05")), resultColor(s.ResultCode).Sprint(line))
}
