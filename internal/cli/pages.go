package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pocketpages/internal/domain"
	"pocketpages/internal/service"
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a page",
	Args:  cobra.MaximumNArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		title := ""
		if len(args) == 1 {
			title = args[0]
		}
		p, err := r.pages().Create(cmd.Context(), title)
		if err != nil {
			return err
		}
		cmd.Println(p.ID)
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pages, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, r *runtime) error {
		query, err := cmd.Flags().GetString("query")
		if err != nil {
			return fmt.Errorf("getting query flag: %w", err)
		}
		pages, err := r.pages().Search(cmd.Context(), query)
		if err != nil {
			return err
		}
		printPages(cmd, pages, func(p domain.Page) time.Time { return p.UpdatedAt })
		return nil
	}),
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a page as text",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		p, err := r.pages().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Print(renderPage(p))
		return nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Move a page to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		if err := r.pages().MoveToTrash(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Moved %s to trash\n", args[0])
		return nil
	}),
}

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "List trashed pages, most recently deleted first",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, r *runtime) error {
		pages, err := r.pages().ListTrash(cmd.Context())
		if err != nil {
			return err
		}
		printPages(cmd, pages, func(p domain.Page) time.Time {
			if p.DeletedAt == nil {
				return time.Time{}
			}
			return *p.DeletedAt
		})
		return nil
	}),
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Bring a page back from the trash",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		if err := r.pages().Restore(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Restored %s\n", args[0])
		return nil
	}),
}

var purgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete a page",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		if err := r.pages().Purge(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Purged %s\n", args[0])
		return nil
	}),
}

var emptyTrashCmd = &cobra.Command{
	Use:   "empty-trash",
	Short: "Permanently delete trashed pages",
	Long: `Permanently delete every page in the trash.

With --expired, only pages trashed longer ago than trash.retention_days
are removed, the same as the scheduled purge.`,
	Args: cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, r *runtime) error {
		expired, err := cmd.Flags().GetBool("expired")
		if err != nil {
			return fmt.Errorf("getting expired flag: %w", err)
		}
		var n int
		if expired {
			trash := service.NewTrashService(r.store, r.cfg.Trash.RetentionDays, r.cfg.Trash.PurgeSchedule, nil, r.log)
			n, err = trash.PurgeExpired(cmd.Context())
		} else {
			n, err = r.pages().EmptyTrash(cmd.Context())
		}
		if err != nil {
			return err
		}
		cmd.Printf("Purged %d pages\n", n)
		return nil
	}),
}

func init() {
	listCmd.Flags().StringP("query", "q", "", "only pages whose title or text contains this")
	emptyTrashCmd.Flags().Bool("expired", false, "only purge pages past the retention period")

	rootCmd.AddCommand(newCmd, listCmd, showCmd, deleteCmd, trashCmd, restoreCmd, purgeCmd, emptyTrashCmd)
}

// ── Output ─────────────────────────────────────────────────

func printPages(cmd *cobra.Command, pages []domain.Page, stamp func(domain.Page) time.Time) {
	if len(pages) == 0 {
		cmd.Println("No pages")
		return
	}
	for _, p := range pages {
		cmd.Printf("%s  %s  %s\n", p.ID, stamp(p).Local().Format("2006-01-02 15:04"), displayTitle(p.Title))
	}
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}

// renderPage formats a page as markdown-flavoured text.
func renderPage(p *domain.Page) string {
	var sb strings.Builder
	sb.WriteString("# " + displayTitle(p.Title) + "\n\n")
	number := 0
	for _, b := range p.Blocks {
		if b.Type == domain.BlockTypeNumberedList {
			number++
		} else {
			number = 0
		}
		sb.WriteString(renderBlock(b, number))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderBlock(b domain.Block, number int) string {
	switch b.Type {
	case domain.BlockTypeHeading1:
		return "# " + b.Content
	case domain.BlockTypeHeading2:
		return "## " + b.Content
	case domain.BlockTypeHeading3:
		return "### " + b.Content
	case domain.BlockTypeBulletList:
		return "- " + b.Content
	case domain.BlockTypeNumberedList:
		return fmt.Sprintf("%d. %s", number, b.Content)
	case domain.BlockTypeTodo:
		if b.Completed() {
			return "[x] " + b.Content
		}
		return "[ ] " + b.Content
	case domain.BlockTypeQuote:
		return "> " + b.Content
	case domain.BlockTypeCode:
		return "```\n" + b.Content + "\n```"
	case domain.BlockTypeDivider:
		return "---"
	}
	return b.Content
}
