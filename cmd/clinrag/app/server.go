// Package app provides the ClinRAG server application.
package app

import (
	"context"
	"fmt"

	"github.com/kart-io/clinrag/cmd/clinrag/app/options"
	"github.com/kart-io/clinrag/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "clinrag"

	// commandDesc is the description of the command.
	commandDesc = `ClinRAG Service

A question answering assistant over biomedical documents.

This server provides:
  - Upload and chunking of PDF, text and markdown documents
  - Exact L2 retrieval over document chunk embeddings
  - Clinical code context from ClinVec PheCode embeddings
  - Answer generation with a text-to-text model
  - NLI faithfulness and cosine relevance scoring per turn
  - Session history with CSV metrics export`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Clinical document RAG assistant"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// The server manager listens for SIGINT/SIGTERM itself.
		ctx := context.Background()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return server.Run(ctx)
	}
}
