package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/hivedeck-drive/internal/dragmove"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/models"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
)

// defaultCrawlLimit bounds how many folders mv lists while locating the
// entry and the target.
const defaultCrawlLimit = 500

// crawlTree is the part of the drive tree mv has listed. It gives the drop
// checks the same parent map the navigator builds while browsing.
type crawlTree struct {
	lister    lister
	rootLabel string
	entries   map[int64]models.Entry
}

type lister interface {
	ListChildren(ctx context.Context, parent *int64) ([]models.Entry, error)
}

func newCrawlTree(l lister, rootLabel string) *crawlTree {
	return &crawlTree{lister: l, rootLabel: rootLabel, entries: make(map[int64]models.Entry)}
}

// crawl lists folders breadth-first from the root until every wanted id
// has been seen or limit folders have been listed.
func (t *crawlTree) crawl(ctx context.Context, want []int64, limit int) error {
	missing := make(map[int64]struct{}, len(want))
	for _, id := range want {
		missing[id] = struct{}{}
	}

	queue := []*int64{nil}
	for listed := 0; len(queue) > 0 && len(missing) > 0 && listed < limit; listed++ {
		folder := queue[0]
		queue = queue[1:]

		children, err := t.lister.ListChildren(ctx, folder)
		if err != nil {
			return err
		}
		for _, e := range children {
			e.ParentID = folder
			t.entries[e.ID] = e
			delete(missing, e.ID)
			if e.IsFolder() {
				queue = append(queue, models.ID(e.ID))
			}
		}
	}
	return nil
}

func (t *crawlTree) Lookup(id int64) (models.Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

func (t *crawlTree) ParentOf(id int64) (*int64, bool) {
	e, ok := t.entries[id]
	return e.ParentID, ok
}

func (t *crawlTree) IsKnownDescendant(target, ancestor int64) bool {
	seen := make(map[int64]struct{})
	for cur := target; ; {
		e, ok := t.entries[cur]
		if !ok || e.ParentID == nil {
			return false
		}
		if *e.ParentID == ancestor {
			return true
		}
		if _, loop := seen[cur]; loop {
			return false
		}
		seen[cur] = struct{}{}
		cur = *e.ParentID
	}
}

func (t *crawlTree) ResolveTarget(id int64) *int64 {
	if id == models.RootSentinelID {
		return nil
	}
	return models.ID(id)
}

func (t *crawlTree) CurrentFolder() *int64 { return nil }
func (t *crawlTree) RootLabel() string     { return t.rootLabel }

func (t *crawlTree) NoteMoved(id int64, newParent *int64) {
	if e, ok := t.entries[id]; ok {
		e.ParentID = newParent
		t.entries[id] = e
	}
}

func (t *crawlTree) AfterMutation(context.Context) {}

func (t *crawlTree) UploadTo(context.Context, []drive.UploadFile, *int64) error {
	return errors.New("uploads are not supported by mv")
}

// newMvCmd creates the 'mv' command.
func newMvCmd() *cobra.Command {
	var (
		toArg  string
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "mv <id>",
		Short: "Move a file or folder",
		Long: `Move an entry into another folder (default: the root).

The move is refused without contacting the backend when the target is
the entry itself, one of its subfolders, or the folder it already
sits in.

Example:
  hivedeck-drive mv 12 --to 42
  hivedeck-drive mv 12 --to root`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			ctx := GetContext()

			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			id := ids[0]
			target, err := parseFolderID(toArg)
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

			tree := newCrawlTree(client, cfg.RootLabel)
			want := []int64{id}
			if target != nil {
				want = append(want, *target)
			}
			if err := tree.crawl(ctx, want, limit); err != nil {
				return fmt.Errorf("failed to list drive: %w", err)
			}

			entry, ok := tree.Lookup(id)
			if !ok {
				return fmt.Errorf("item %d not found", id)
			}
			if target != nil {
				dest, ok := tree.Lookup(*target)
				if !ok {
					return fmt.Errorf("folder %d not found", *target)
				}
				if !dest.IsFolder() {
					return fmt.Errorf("%q is not a folder", dest.Name)
				}
			}

			notices := notify.NewQueue(maxNotices, drive.UserMessage)
			ctrl := dragmove.New(client, tree, notices, log)
			payload := dragmove.EntryPayload(id, entry.Kind)
			out := cmd.OutOrStdout()

			if dryRun {
				if err := ctrl.Validate(payload, target); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s can be moved\n", entry.Name)
				return nil
			}

			err = ctrl.DropInto(ctx, payload, target)
			if errors.Is(err, dragmove.ErrAlreadyInFolder) {
				fmt.Fprintf(out, "%s\n", err)
				return nil
			}
			if err != nil {
				return err
			}

			if last, ok := notices.Last(); ok {
				fmt.Fprintf(out, "✓ %s\n", last.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&toArg, "to", "", "Target folder id (default: root)")
	cmd.Flags().IntVar(&limit, "crawl-limit", defaultCrawlLimit, "Maximum number of folders to list while locating entries")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only check whether the move is allowed")

	return cmd
}
