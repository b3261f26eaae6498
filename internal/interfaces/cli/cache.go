package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	redisinfra "github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/database/redis"
)

// NewCacheCmd groups fingerprint cache maintenance.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the redis fingerprint cache",
	}
	cmd.AddCommand(newCachePurgeCmd())
	return cmd
}

func newCachePurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every cached fingerprint under cache.key_prefix",
		Long: "Purge connects to cache.addr and deletes the keys under cache.key_prefix,\n" +
			"whether or not cache.enabled is set.  Run it after changing the fingerprint\n" +
			"radius or hydrogen handling so stale fingerprints are not reused.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config.Cache
			client, err := redisinfra.NewClient(redisinfra.ConfigFrom(cfg), cliCtx.Logger)
			if err != nil {
				return err
			}
			defer client.Close()

			cache := redisinfra.NewFingerprintCache(client, cliCtx.Logger, redisinfra.WithPrefix(cfg.KeyPrefix))
			n, err := cache.Purge(cmd.Context())
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("purged %d cached fingerprints from %s", n, cfg.Addr))
			return nil
		},
	}
}

//Personal.AI order the ending
