package benchmarks

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/leanrl/lean-rl-search/cache"
	"github.com/leanrl/lean-rl-search/server"
	"github.com/spf13/cobra"
)

// Serve runs the HTTP session server until interrupted
func Serve(ctx context.Context, addr, redisAddr string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tacticCache cache.TacticCache
	if redisAddr != "" {
		tacticCache = cache.NewRedisCache(redisAddr)
	}

	s := server.New(ctx, &server.Config{
		Addr:       addr,
		RootDir:    leanRoot,
		BinaryPath: leanBin,
		Timeout:    time.Duration(stepTimeout) * time.Second,
		Cache:      tacticCache,
	})
	s.Start()
	fmt.Printf("serving on %s\n", addr)

	<-ctx.Done()
	return nil
}

func ServeCommand() *cobra.Command {
	var addr string
	var redisAddr string

	cmd := &cobra.Command{
		Use: "serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Serve(context.Background(), addr, redisAddr)
		},
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "localhost:8123", "Address to listen on")
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address for the shared tactic cache")
	return cmd
}
