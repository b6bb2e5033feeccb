package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// askCmd runs a one-shot assistant query from the terminal.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the document assistant a question",
	Long: `Answers a question from the indexed policy documents and renders the
answer as markdown. Without an API credential the most relevant excerpts
are shown instead.

Example:
  peopleops ask "What is the vacation policy?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	nDocs, _ := a.docs.Count()
	if nDocs == 0 {
		fmt.Println("No documents indexed yet. Drop .txt/.md/.csv/.html files into the upload")
		fmt.Println("directory (see `peopleops status`) or POST them to the running dashboard.")
		return nil
	}

	answer, err := a.assistant.Answer(ctx, question)
	if err != nil {
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if rendered, rerr := renderer.Render(answer.Text); rerr == nil {
			fmt.Print(rendered)
		} else {
			fmt.Println(answer.Text)
		}
	} else {
		fmt.Println(answer.Text)
	}

	if len(answer.Sources) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(answer.Sources, ", "))
	}
	if verbose {
		fmt.Printf("(%dms, generated=%v)\n", answer.DurationMS, answer.Generated)
	}
	return nil
}
