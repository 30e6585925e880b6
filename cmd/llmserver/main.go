package main

// @title           LLM Server API
// @version         1.0
// @description     Course document retrieval and LLM orchestration. Indexes PDF documents as page embeddings, ranks them by semantic similarity and asks language models to explain the ranking.

// @contact.name   Custodia Labs
// @contact.url    https://github.com/custodia-labs/llmserver/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
