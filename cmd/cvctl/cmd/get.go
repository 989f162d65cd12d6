package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

var getCmd = &cobra.Command{
	Use:   "get <api-path>",
	Short: "Perform an authenticated GET and print the response",
	Long: `Sends GET <api-path> with the stored session and prints the response
envelope. An expired access token is refreshed once and the request replayed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())
		sdkClient, err := cfg.ClientProvider.SDKClient()
		if err != nil {
			return err
		}
		path := args[0]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, cfg.ServerURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := sdkClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		var out bytes.Buffer
		if json.Indent(&out, body, "", "  ") != nil {
			out.Reset()
			out.Write(body)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())

		if resp.StatusCode >= 300 {
			return fmt.Errorf("GET %s: %s", path, resp.Status)
		}
		return nil
	},
}
