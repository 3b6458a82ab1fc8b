package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"bankpilot.app/concierge/common/id"
	"bankpilot.app/concierge/common/llm"
	"bankpilot.app/concierge/common/logger"
	"bankpilot.app/concierge/core/config"
	"bankpilot.app/concierge/core/db"
	"bankpilot.app/concierge/internal/answer"
	"bankpilot.app/concierge/internal/catalog"
	"bankpilot.app/concierge/internal/faq"
	"bankpilot.app/concierge/internal/registry"
	"bankpilot.app/concierge/internal/routing"
	"bankpilot.app/concierge/internal/session"
)

// Terminal client for local testing. Same components as the server, one
// in-memory session, no HTTP.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeChat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if !cfg.LLM.Enabled() {
		fmt.Fprintln(os.Stderr, "LLM_API_KEY is required")
		os.Exit(1)
	}
	if !cfg.Embedding.Enabled() {
		fmt.Fprintln(os.Stderr, "EMBEDDING_API_KEY is required")
		os.Exit(1)
	}

	if err := id.Init(1); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize id generator: %v\n", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	embedder, err := llm.NewEmbedder(llm.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create embedder: %v\n", err)
		os.Exit(1)
	}

	faqIndex, err := faq.NewChromemIndex(faq.Config{
		PersistPath: cfg.FAQ.PersistPath,
		Collection:  cfg.FAQ.Collection,
	}, embedder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open faq index: %v\n", err)
		os.Exit(1)
	}

	llmCfg := llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	}
	textClient, err := llm.NewTextClient(llmCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create llm client: %v\n", err)
		os.Exit(1)
	}
	chatClient, err := llm.New(llmCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create llm client: %v\n", err)
		os.Exit(1)
	}

	store := catalog.NewProductStore(database.Pool())
	reg := registry.New(store, cfg.Routing.RegistryTTL)
	sessions := session.NewManager(cfg.Session.TTL)
	retriever := routing.NewRetriever(store, faqIndex, cfg.Routing.EvidenceTimeout, cfg.Routing.EvidenceBackoff)
	router := routing.NewRouter(reg, sessions, retriever, cfg.Routing)
	svc := answer.NewService(router, store, textClient, chatClient, cfg.LLM.MaxTokens)

	sessionID := fmt.Sprintf("chat-%d", os.Getpid())

	fmt.Fprintln(os.Stderr, "Concierge chat ready. 'reset' starts over, 'quit' exits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}
		switch utterance {
		case "quit", "exit", "q":
			return
		case "reset":
			svc.Reset(sessionID)
			fmt.Println("(new conversation)")
			continue
		}

		turnCtx, cancel := context.WithTimeout(ctx, cfg.Routing.RequestTimeout)
		result, err := svc.Answer(turnCtx, sessionID, utterance)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(result.Reply)
		if os.Getenv("CHAT_DEBUG") != "" {
			for _, op := range result.Decision.Operations {
				fmt.Fprintf(os.Stderr, "  [%s] bank=%q category=%q product=%q\n",
					op.Tag, op.Scope.Bank, op.Scope.Category, op.Scope.ProductName)
			}
			if result.Decision.Rewritten != "" {
				fmt.Fprintf(os.Stderr, "  rewritten: %s\n", result.Decision.Rewritten)
			}
		}
	}
}
