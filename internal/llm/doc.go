// Package llm provides a unified interface for interacting with Large Language Models.
//
// # Overview
//
// This package defines a Provider interface that hides the model server
// behind a common API. The consultation service uses it to send the
// prompt built by package prompt and hand the completion to package parser.
//
// # Architecture
//
// Provider-specific implementations live in subpackages. To avoid import
// cycles, subpackages (like ollama) define their own types that match the
// Provider interface, and this package bridges them with adapter types.
//
//	┌──────────────┐
//	│ llm package  │  ← Defines Provider interface
//	│              │  ← Factory: NewProvider()
//	│              │  ← Adapters for each provider
//	└──────┬───────┘
//	       │
//	┌──────▼──────┐
//	│ llm/ollama  │
//	└─────────────┘
//
// # Usage
//
//	provider, err := llm.NewProvider(cfg, logger)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := provider.Chat(ctx, prompt.Messages(pc, question), llm.ChatOptionsFrom(cfg))
//	if err != nil {
//	    // errors.Is(err, llm.ErrProviderUnavailable) etc.
//	    return err
//	}
//	result := parser.Parse(resp.Content)
//
// # Error Handling
//
//   - ErrProviderUnavailable: model server is not reachable
//   - ErrModelNotFound: requested model has not been pulled
//   - ErrInvalidResponse: provider sent no chat response at all (an empty
//     completion is not an error)
//   - ErrContextCanceled: operation was canceled via context
//
// # Configuration
//
//	llm:
//	  provider: ollama
//	  temperature: 0.05
//	  max_tokens: 1024
//	  ollama:
//	    host: http://localhost:11434
//	    model: medllama2
//	    num_ctx: 4096
//
// Environment variables use the DRAI_ prefix, e.g. DRAI_LLM_OLLAMA_HOST.
//
// # Thread Safety
//
// All Provider implementations must be safe for concurrent use.
package llm
