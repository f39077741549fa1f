package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/agent"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/logging"
	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run event stream and status API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = agentConfig.Server.Addr
	}

	bus := agent.NewBus()
	registry := agent.NewRegistry(agentConfig.Agent.RegistryEviction)

	// mirror log lines onto the event stream for observers
	logging.GetLogger().SetSink(func(level int, line string) {
		bus.Publish(agent.Event{Type: agent.EventLogLine, Message: line})
	})

	server := stream.NewServer(bus, registry)
	logging.Info("event stream listening on %s", addr)
	fmt.Printf("speedagent serving on %s (websocket at /events)\n", addr)

	return http.ListenAndServe(addr, server)
}
