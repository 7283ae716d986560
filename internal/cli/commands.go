package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/files"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/sortutil"
	"github.com/ngenohkevin/hivedeck-drive/internal/view"
)

// parseFolderID parses a folder argument. Empty, "root" and the root
// sentinel all denote the drive root.
func parseFolderID(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "root") {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid folder id %q", s)
	}
	if id == models.RootSentinelID {
		return nil, nil
	}
	return &id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// newLsCmd creates the 'ls' command.
func newLsCmd() *cobra.Command {
	var sortField string
	var desc, asJSON bool

	cmd := &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List a folder",
		Long: `List the files and folders in a folder (default: the root).

Example:
  hivedeck-drive ls
  hivedeck-drive ls 42 --sort size --desc`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			folderArg := ""
			if len(args) == 1 {
				folderArg = args[0]
			}
			folder, err := parseFolderID(folderArg)
			if err != nil {
				return err
			}

			field, err := sortutil.ParseField(sortField)
			if err != nil {
				return err
			}
			spec := sortutil.Spec{Field: field, Order: sortutil.Ascending}
			if desc {
				spec.Order = sortutil.Descending
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			entries, err := client.ListChildren(GetContext(), folder)
			if err != nil {
				return fmt.Errorf("failed to list folder: %w", err)
			}
			entries = sortutil.NewComparator(localeOf(cfg, log)).Sort(entries, spec)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "This folder is empty")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tSIZE\tMODIFIED\tNAME")
			for _, e := range entries {
				size := e.Size
				if e.IsFolder() || size == "" {
					size = "-"
				}
				modified := "-"
				if t := sortutil.ParseTimestamp(e.ModifiedAt); !t.IsZero() {
					modified = t.Local().Format("2006-01-02 15:04")
				}
				name := e.Name
				if e.IsFolder() {
					name += "/"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Kind, size, modified, name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&sortField, "sort", "s", "name", "Sort by name, modified or size")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")

	return cmd
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	var parentArg string

	cmd := &cobra.Command{
		Use:   "mkdir <name>",
		Short: "Create a folder",
		Long: `Create a folder (default: in the root).

Example:
  hivedeck-drive mkdir "Invoices 2025" --parent 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			parent, err := parseFolderID(parentArg)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			created, err := client.CreateFolder(GetContext(), args[0], parent)
			if err != nil {
				return fmt.Errorf("failed to create folder: %w", err)
			}

			log.Info().Str("name", args[0]).Str("parent", models.FolderLabel(parent)).Msg("folder created")
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Folder created\n")
			fmt.Fprintf(out, "  Name: %s\n", strings.TrimSpace(args[0]))
			if created != nil {
				fmt.Fprintf(out, "  ID: %d\n", created.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&parentArg, "parent", "", "Parent folder id (default: root)")

	return cmd
}

// newRmCmd creates the 'rm' command.
func newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id> [id...]",
		Short: "Delete files and folders",
		Long: `Delete entries in one batch. Folders are deleted with their contents.

Example:
  hivedeck-drive rm 12 13 14`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			ack, err := client.DeleteEntries(GetContext(), ids)
			if err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}

			msg := ack.Message
			if msg == "" {
				msg = fmt.Sprintf("%d item(s) deleted", len(ids))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", msg)
			return nil
		},
	}

	return cmd
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var parentArg string

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload local files",
		Long: `Upload local files in one request (default: into the root).

Example:
  hivedeck-drive upload report.pdf photo.png --parent 42`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			parent, err := parseFolderID(parentArg)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			batch, err := files.Open(args)
			if err != nil {
				return err
			}
			defer batch.Close()

			log.Info().Int("files", len(batch.Files)).Int64("bytes", batch.TotalSize()).Str("parent", models.FolderLabel(parent)).Msg("uploading")

			counter, done := newProgress(cmd.ErrOrStderr(), batch.TotalSize(), "uploading")
			ack, err := client.UploadFiles(GetContext(), trackUploads(batch.Uploads(), counter), parent)
			done()
			if err != nil {
				return fmt.Errorf("failed to upload: %w", err)
			}

			msg := ack.Message
			if msg == "" {
				msg = fmt.Sprintf("%d file(s) uploaded", len(batch.Files))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s)\n", msg, sortutil.FormatSize(batch.TotalSize()))
			return nil
		},
	}

	cmd.Flags().StringVar(&parentArg, "parent", "", "Target folder id (default: root)")

	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "download <id> [id...]",
		Short: "Download files or folders",
		Long: `Download entries. One file is saved as is; several entries or a
folder arrive as a zip archive.

Example:
  hivedeck-drive download 12 -o ~/Downloads`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			ctx := GetContext()
			var dl *drive.Download
			if len(ids) == 1 {
				dl, err = client.DownloadSingle(ctx, ids[0], "")
			} else {
				dl, err = client.DownloadZip(ctx, ids)
			}
			if err != nil {
				return fmt.Errorf("failed to download: %w", err)
			}

			total := dl.Size
			if total <= 0 {
				total = -1
			}
			counter, done := newProgress(cmd.ErrOrStderr(), total, "downloading")
			saved, err := files.Save(trackDownload(dl, counter), outDir)
			done()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Saved %s (%s)\n", saved.Path, sortutil.FormatSize(saved.Size))
			if saved.Renamed {
				fmt.Fprintf(out, "  %s already existed; the download was renamed\n", dl.Filename)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Directory to save into")

	return cmd
}

// newUsageCmd creates the 'usage' command.
func newUsageCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}

			u, err := client.Usage(GetContext())
			if err != nil {
				return fmt.Errorf("failed to get drive info: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(u)
			}
			if u.Email != "" {
				fmt.Fprintf(out, "Account: %s\n", u.Email)
			}
			fmt.Fprintln(out, view.UsageLine(u))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print usage as JSON")

	return cmd
}
