package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/store"
)

// layoutsCommand creates the command group for stored layouts.
func (c *CLI) layoutsCommand() *cobra.Command {
	var mongoURI string

	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Manage layouts saved with generate --store",
	}
	cmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", "", "read layouts from MongoDB instead of the local store")

	open := func(ctx context.Context) (store.Store, error) { return newStore(ctx, mongoURI) }

	cmd.AddCommand(c.layoutsListCommand(open))
	cmd.AddCommand(c.layoutsShowCommand(open))
	cmd.AddCommand(c.layoutsDeleteCommand(open))

	return cmd
}

type storeOpener func(context.Context) (store.Store, error)

func (c *CLI) layoutsListCommand(open storeOpener) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored layouts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			summaries, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				printInfo("No stored layouts")
				return nil
			}
			rows := make([][]string, len(summaries))
			for i, s := range summaries {
				rows[i] = []string{
					s.ID,
					s.Name,
					strconv.Itoa(s.Rooms),
					strconv.FormatUint(s.Seed, 10),
					s.CreatedAt.Local().Format("2006-01-02 15:04"),
				}
			}
			fmt.Println(renderTable([]string{"ID", "Name", "Rooms", "Seed", "Created"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "maximum number of layouts")

	return cmd
}

func (c *CLI) layoutsShowCommand(open storeOpener) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored layout as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output != "" {
				if err := maplayout.WriteFile(rec.Layout, output); err != nil {
					return err
				}
				printFile(output)
				return nil
			}
			data, err := maplayout.Marshal(rec.Layout)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(data, '\n'))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func (c *CLI) layoutsDeleteCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}
