package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/photobatch/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend REST endpoint (default from Config)
//	-w string   URL of the upload progress WebSocket endpoint
//	-t string   bearer token for authenticated uploads
//	-p int      poll fallback interval in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-t", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the backend server")
	fs.StringVar(&cfg.WSEndpointAddr, "w", cfg.WSEndpointAddr, "upload progress websocket endpoint")
	fs.StringVar(&cfg.AuthToken, "t", cfg.AuthToken, "bearer token (empty for anonymous uploads)")
	pollInterval := fs.Int("p", int(cfg.PollInterval.Seconds()), "poll fallback interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*pollInterval) * time.Second
}
