// Command extract runs slide extraction on a local deck and prints the
// resulting document as JSON. It makes no remote calls.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Devpradp/TA-Chatbot/internal/deck"
)

type extractOptions struct {
	input        string
	courseID     string
	lectureTitle string
	output       string
}

func newExtractCmd() *cobra.Command {
	opts := &extractOptions{}
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract slide text from a .pptx or .pdf deck",
		Long: `Reads a lecture deck and prints its slides as JSON in presentation order:
title, text blocks and speaker notes per slide. The images list is always empty.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExtract(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "path to the .pptx or .pdf file")
	cmd.Flags().StringVar(&opts.courseID, "course-id", "", "course identifier (default \"unknown\")")
	cmd.Flags().StringVar(&opts.lectureTitle, "lecture-title", "", "lecture title (default: file name)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON to this file instead of stdout")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runExtract(cmd *cobra.Command, opts *extractOptions) error {
	data, err := os.ReadFile(filepath.Clean(opts.input))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	doc, err := deck.Load(filepath.Base(opts.input), data, deck.Metadata{
		CourseID:     opts.courseID,
		LectureTitle: opts.lectureTitle,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if opts.output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	if err := os.WriteFile(opts.output, append(out, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d slides to %s\n", len(doc.Slides), opts.output)
	return nil
}

func main() {
	cmd := newExtractCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
