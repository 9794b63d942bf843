package cli

import (
	"io"
	"os"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/spf13/cobra"
)

func newDocCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Ingest and inspect documents",
	}
	cmd.AddCommand(
		newDocCreateCommand(a),
		newDocGetCommand(a),
		newDocListCommand(a),
		newDocDeleteCommand(a),
	)
	return cmd
}

func newDocCreateCommand(a *app) *cobra.Command {
	var (
		nd   model.NewDocument
		file string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a document from --text, --file or stdin (--file -)",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			if file != "" {
				text, err := readText(cmd, file)
				if err != nil {
					return err
				}
				nd.Text = text
			}
			doc, err := a.store.CreateDocument(cmd.Context(), nd)
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		}),
	}
	f := cmd.Flags()
	f.StringVar(&nd.Text, "text", "", "document text")
	f.StringVar(&file, "file", "", "read the text from this file; - reads stdin")
	f.StringVar(&nd.Summary, "summary", "", "short summary")
	f.StringVar(&nd.Source, "source", "", "where the document came from")
	f.StringVar(&nd.SourceType, "source-type", "", "kind of source, e.g. email or chat")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	cmd.MarkFlagsOneRequired("text", "file")
	return cmd
}

func readText(cmd *cobra.Command, file string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newDocGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("document_id", args[0])
			if err != nil {
				return err
			}
			doc, err := a.store.GetDocument(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		}),
	}
}

func newDocListCommand(a *app) *cobra.Command {
	var page model.Page
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			docs, err := a.store.ListDocuments(cmd.Context(), page)
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []model.Document{}
			}
			return printJSON(cmd, docs)
		}),
	}
	cmd.Flags().IntVar(&page.Limit, "limit", 50, "maximum number of documents; 0 for all")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "number of documents to skip")
	return cmd
}

func newDocDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and all of its links",
		Args:  cobra.ExactArgs(1),
		RunE: a.withStore(func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID("document_id", args[0])
			if err != nil {
				return err
			}
			n, err := a.relations.DeleteDocument(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, deleteResult{ID: id, LinksRemoved: n})
		}),
	}
}
