package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glimte/paperless-go/contracts"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newPublishCmd(flags *globalFlags) *cobra.Command {
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a single pipeline message",
	}

	publishCmd.AddCommand(
		newPublishOcrCommandCmd(flags),
		newPublishGenAICommandCmd(flags),
		newPublishGenAIEventCmd(flags),
	)
	return publishCmd
}

// send connects, publishes msg and disconnects
func send(ctx context.Context, flags *globalFlags, msg contracts.Message) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	client, err := connect(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Publisher().Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.MessageType(), err)
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	return id, nil
}

func newPublishOcrCommandCmd(flags *globalFlags) *cobra.Command {
	var jobID, fileName, filePath string

	cmd := &cobra.Command{
		Use:   "ocr-command",
		Short: "Request OCR for a stored document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileName == "" || filePath == "" {
				return errors.New("--file-name and --file-path are required")
			}
			id, err := parseID(jobID)
			if err != nil {
				return err
			}
			if err := send(cmd.Context(), flags, contracts.OcrCommand{JobID: id, FileName: fileName, FilePath: filePath}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s\n", contracts.OcrCommandType, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job-id", "", "Job id (random when empty)")
	cmd.Flags().StringVar(&fileName, "file-name", "", "Original file name")
	cmd.Flags().StringVar(&filePath, "file-path", "", "Object storage path of the file")
	return cmd
}

func newPublishGenAICommandCmd(flags *globalFlags) *cobra.Command {
	var documentID, fileName, text, textFile string

	cmd := &cobra.Command{
		Use:   "genai-command",
		Short: "Request a summary of document text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFile != "" {
				b, err := os.ReadFile(textFile)
				if err != nil {
					return fmt.Errorf("read text file: %w", err)
				}
				text = string(b)
			}
			id, err := parseID(documentID)
			if err != nil {
				return err
			}
			if err := send(cmd.Context(), flags, contracts.GenAICommand{DocumentID: id, Text: text, FileName: fileName}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s\n", contracts.GenAICommandType, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "document-id", "", "Document id (random when empty)")
	cmd.Flags().StringVar(&fileName, "file-name", "", "Original file name")
	cmd.Flags().StringVar(&text, "text", "", "Text to summarize")
	cmd.Flags().StringVar(&textFile, "text-file", "", "Read the text to summarize from a file")
	cmd.MarkFlagsMutuallyExclusive("text", "text-file")
	return cmd
}

func newPublishGenAIEventCmd(flags *globalFlags) *cobra.Command {
	var documentID, summary, errMsg string

	cmd := &cobra.Command{
		Use:   "genai-event",
		Short: "Publish a summary result, e.g. to exercise the live stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (summary == "") == (errMsg == "") {
				return errors.New("exactly one of --summary and --error is required")
			}
			id, err := parseID(documentID)
			if err != nil {
				return err
			}
			event := contracts.NewGenAISummary(id, summary, time.Now().UTC())
			if errMsg != "" {
				event = contracts.NewGenAIFailure(id, errMsg, time.Now().UTC())
			}
			if err := send(cmd.Context(), flags, event); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s %s\n", event.EventName(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "document-id", "", "Document id (random when empty)")
	cmd.Flags().StringVar(&summary, "summary", "", "Summary text")
	cmd.Flags().StringVar(&errMsg, "error", "", "Failure message")
	return cmd
}
