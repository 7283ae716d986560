package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/tui"
)

// newBrowseCmd creates the 'browse' command.
func newBrowseCmd() *cobra.Command {
	var downloadDir, logFile string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive drive browser",
		Long: `Open a full-screen browser over the drive.

Keys:
  j/k move, enter open, h up, g root, r refresh
  space select, a select all, 1/2/3 sort by name/modified/size, v list/grid
  / search, n new folder, u upload, d download, D delete
  m pick up an item, p drop it on the folder under the cursor,
  P drop it into the current folder, esc cancel, q quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("browse needs an interactive terminal; use ls, mv and friends for scripting")
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Logs would tear the alternate screen, so they go to a file or nowhere
			log := logging.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				log = logging.New(f)
			}

			sess, _, err := newSession(cfg, log)
			if err != nil {
				return err
			}
			defer sess.Nav.Close()
			defer sess.Thumbs.Close()

			return tui.Run(GetContext(), sess.Nav, sess.Drag, sess.Notices, downloadDir)
		},
	}

	cmd.Flags().StringVarP(&downloadDir, "download-dir", "o", ".", "Directory downloads are saved into")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the browser runs")

	return cmd
}
