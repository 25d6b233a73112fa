package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Simran251393/fraud-detection-system/internal/app/bootstrap"
)

type client struct {
	BaseURL   string
	AdminKey  string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(ctx context.Context, method, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	if c.AdminKey != "" {
		req.Header.Set("X-Admin-Key", c.AdminKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *client) call(ctx context.Context, method, path string) error {
	status, body, err := c.do(ctx, method, path)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s %s failed: status=%d body=%s", method, path, status, strings.TrimSpace(string(body)))
	}
	c.print(body)
	return nil
}

func (c *client) print(body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			pretty, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(pretty))
			return
		}
	}
	fmt.Println(strings.TrimSpace(string(body)))
}

func main() {
	var (
		baseURL    = envOr("RISKCTL_URL", "http://localhost:8080")
		adminKey   = envOr("RISKCTL_ADMIN_KEY", "")
		out        = envOr("RISKCTL_OUT", "json")
		configPath = envOr("CONFIG_PATH", "configs/default.yaml")
	)
	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Operator CLI for the risk auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cl.BaseURL = baseURL
			cl.AdminKey = adminKey
			cl.OutFormat = out
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "service base URL (env RISKCTL_URL)")
	root.PersistentFlags().StringVar(&adminKey, "admin-key", adminKey, "admin API key (env RISKCTL_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "output format: json|text")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate attempt statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd.Context(), http.MethodGet, "/api/admin/stats")
		},
	}

	var limit int
	attemptsCmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recent login attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/admin/attempts"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			return cl.call(cmd.Context(), http.MethodGet, path)
		},
	}
	attemptsCmd.Flags().IntVar(&limit, "limit", 0, "maximum attempts to return")

	unblockCmd := &cobra.Command{
		Use:   "unblock <email>",
		Short: "Clear the blocked flag on an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd.Context(), http.MethodPost, "/api/admin/identities/"+url.PathEscape(args[0])+"/unblock")
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := bootstrap.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
	migrateCmd.Flags().StringVar(&configPath, "config", configPath, "config file path (env CONFIG_PATH)")

	root.AddCommand(statsCmd, attemptsCmd, unblockCmd, migrateCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
