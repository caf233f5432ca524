// SPDX-License-Identifier: Apache-2.0
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"irx/grammar"
	"irx/internal/dialect"
	"irx/internal/irdl"
	"irx/internal/lsp"
)

const lsName = "irx" // Name identifier for the language server

var (
	version = "0.1.0"        // Server version
	handler protocol.Handler // Protocol handler instance (wired up below)
)

func main() {
	var (
		verbosity int
		dialects  string
	)
	cmd := &cobra.Command{
		Use:     "irx-lsp",
		Short:   "Language server for irx modules, IRDL dialects and PDL patterns",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(verbosity, dialects)
		},
	}
	cmd.Flags().IntVarP(&verbosity, "verbose", "v", 1, "log verbosity")
	cmd.Flags().StringVar(&dialects, "dialects", "", "IRDL file with additional dialects")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(verbosity int, dialects string) error {
	commonlog.Configure(verbosity, nil)
	log := commonlog.GetLogger("irx.lsp")

	reg := dialect.NewBuiltinRegistry()
	if dialects != "" {
		source, err := grammar.ReadSource(dialects)
		if err == nil {
			_, err = irdl.Load(reg, dialects, source)
		}
		if err != nil {
			log.Errorf("Failed to load dialects: %s", err)
			return err
		}
	}
	reg.Freeze()

	irxHandler := lsp.NewIRXHandler(reg)

	// Wire up the handler with specific LSP method implementations
	handler = protocol.Handler{
		Initialize:                     irxHandler.Initialize,
		Initialized:                    irxHandler.Initialized,
		Shutdown:                       irxHandler.Shutdown,
		SetTrace:                       irxHandler.SetTrace,
		TextDocumentDidOpen:            irxHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           irxHandler.TextDocumentDidClose,
		TextDocumentDidChange:          irxHandler.TextDocumentDidChange,
		TextDocumentCompletion:         irxHandler.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: irxHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Infof("Starting irx LSP server %s...", version)

	// Start the server over standard input/output (used by most editors for LSP)
	if err := s.RunStdio(); err != nil {
		log.Errorf("Error starting irx LSP server: %s", err)
		return err
	}
	return nil
}
