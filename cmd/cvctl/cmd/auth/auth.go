package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duongduc025/CV-Management-sub000/cmd/cvctl/internal/config"
)

// AuthCmd is the parent command for auth operations.
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Commands for signing in, signing out, registering and checking the session.`,
}

func init() {
	AuthCmd.AddCommand(loginCmd)
	AuthCmd.AddCommand(logoutCmd)
	AuthCmd.AddCommand(statusCmd)
	AuthCmd.AddCommand(registerCmd)
}

// readPassword takes the password from flag, from the first line of in when
// fromStdin is set, or from an interactive masked prompt.
func readPassword(cfg *config.GlobalConfig, flag string, fromStdin bool, in io.Reader) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password from stdin: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errors.New("password is required")
		}
		return line, nil
	}
	if cfg.NonInteractive {
		return "", errors.New("password is required (use --password or --stdin in non-interactive mode)")
	}
	password, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
