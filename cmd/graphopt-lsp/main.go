// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"graphopt/internal/lsp"
)

const lsName = "graphopt"

var handler protocol.Handler

func main() {
	verbosity := flag.Int("v", 1, "log verbosity (0 = quiet, 1 = info, 2 = debug)")
	flag.Parse()

	commonlog.Configure(*verbosity, nil)
	log := commonlog.GetLogger("graphopt.lsp")

	graphHandler := lsp.NewGraphHandler()

	handler = protocol.Handler{
		Initialize:                     graphHandler.Initialize,
		Initialized:                    graphHandler.Initialized,
		Shutdown:                       graphHandler.Shutdown,
		SetTrace:                       graphHandler.SetTrace,
		TextDocumentDidOpen:            graphHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           graphHandler.TextDocumentDidClose,
		TextDocumentDidChange:          graphHandler.TextDocumentDidChange,
		TextDocumentCompletion:         graphHandler.TextDocumentCompletion,
		TextDocumentHover:              graphHandler.TextDocumentHover,
		TextDocumentSemanticTokensFull: graphHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Info("starting graph language server")
	if err := s.RunStdio(); err != nil {
		log.Errorf("language server stopped: %s", err)
		os.Exit(1)
	}
}
